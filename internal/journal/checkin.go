package journal

import (
	"time"

	"github.com/thebtf/decision-fitness/pkg/models"
)

// CheckInDays is the reflection period after saving a decision.
const CheckInDays = 7

// CheckInDay is the number of whole days since createdAt, clamped to
// [0, CheckInDays].
func CheckInDay(createdAt, now time.Time) int {
	if createdAt.IsZero() || now.Before(createdAt) {
		return 0
	}
	days := int(now.Sub(createdAt) / (24 * time.Hour))
	return min(days, CheckInDays)
}

// CheckInDue reports whether the decision reached its check-in day without
// a check-in.
func CheckInDue(d models.SavedDecision, now time.Time) bool {
	return d.CheckIn == nil && CheckInDay(d.Created(), now) >= CheckInDays
}
