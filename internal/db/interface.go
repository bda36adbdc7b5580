// Package db defines database interfaces for the decision-fitness stores.
package db

import (
	"context"
	"errors"

	"github.com/thebtf/decision-fitness/pkg/models"
)

// ErrDecisionNotFound is returned by writers when the parent decision row
// does not exist.
var ErrDecisionNotFound = errors.New("decision not found")

// DecisionReader defines read operations for decisions and their sub-records.
// Sub-record listings are keyed by decision ID; joining them is the caller's job.
type DecisionReader interface {
	// ListDecisions returns a user's decisions, newest first.
	ListDecisions(ctx context.Context, userID string) ([]models.DecisionRecord, error)
	CountDecisions(ctx context.Context, userID string) (int, error)
	ListFollowUps(ctx context.Context, decisionIDs []string) ([]models.FollowUpRecord, error)
	ListActionPlans(ctx context.Context, decisionIDs []string) ([]models.ActionPlanRecord, error)
	ListCheckIns(ctx context.Context, decisionIDs []string) ([]models.CheckInRecord, error)
}

// DecisionWriter defines write operations for decisions and their sub-records.
type DecisionWriter interface {
	// CreateDecision inserts the decision and, when plan is non-nil, its
	// action plan in one transaction.
	CreateDecision(ctx context.Context, rec models.DecisionRecord, plan *models.ActionPlanRecord) error
	// ReplaceFollowUp creates the follow-up or overwrites the existing one.
	ReplaceFollowUp(ctx context.Context, rec models.FollowUpRecord) error
	UpsertActionPlan(ctx context.Context, rec models.ActionPlanRecord) error
	UpsertCheckIn(ctx context.Context, rec models.CheckInRecord) error
}

// DecisionStore combines read and write operations for decisions.
type DecisionStore interface {
	DecisionReader
	DecisionWriter
}
