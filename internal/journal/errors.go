// Package journal manages a user's saved decisions and their follow-ups,
// action plans and check-ins on top of a persistence Repository.
package journal

import (
	"errors"

	"github.com/thebtf/decision-fitness/internal/db"
)

var (
	// ErrDecisionNotFound is returned for unknown decision IDs. It is the same
	// value the stores return so errors.Is works across layers.
	ErrDecisionNotFound = db.ErrDecisionNotFound
	// ErrItemNotFound is returned for unknown action plan item IDs.
	ErrItemNotFound = errors.New("action plan item not found")
	// ErrPlanFull is returned when adding beyond MaxPlanItems.
	ErrPlanFull = errors.New("action plan is full")
	// ErrQuotaExceeded is returned when the owner's plan does not allow
	// another saved decision.
	ErrQuotaExceeded = errors.New("decision quota exceeded")
	// ErrInvalidDraft is returned when a draft cannot be scored.
	ErrInvalidDraft = errors.New("invalid draft")
	// ErrInvalidFollowUp is returned for unknown action or outcome values.
	ErrInvalidFollowUp = errors.New("invalid follow-up")
	// ErrInvalidCheckIn is returned for unknown clarity directions.
	ErrInvalidCheckIn = errors.New("invalid check-in")
)
