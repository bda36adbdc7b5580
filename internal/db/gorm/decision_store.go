package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/decision-fitness/internal/db"
	"github.com/thebtf/decision-fitness/pkg/models"
)

// Ensure DecisionStore implements the interface.
var _ db.DecisionStore = (*DecisionStore)(nil)

// DecisionStore provides decision-related database operations using GORM.
type DecisionStore struct {
	store *Store
}

// NewDecisionStore creates a new decision store.
func NewDecisionStore(store *Store) *DecisionStore {
	return &DecisionStore{store: store}
}

// ListDecisions returns a user's decisions, newest first.
func (s *DecisionStore) ListDecisions(ctx context.Context, userID string) ([]models.DecisionRecord, error) {
	ctx, cancel := s.store.WithTimeout(ctx, DefaultQueryTimeout, "list_decisions")
	defer cancel()

	var rows []Decision
	err := s.store.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at_epoch DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}

	out := make([]models.DecisionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

// CountDecisions returns how many decisions a user has saved.
func (s *DecisionStore) CountDecisions(ctx context.Context, userID string) (int, error) {
	ctx, cancel := s.store.WithTimeout(ctx, DefaultQueryTimeout, "count_decisions")
	defer cancel()

	var n int64
	if err := s.store.DB.WithContext(ctx).Model(&Decision{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count decisions: %w", err)
	}
	return int(n), nil
}

// ListFollowUps returns the follow-ups of the given decisions.
func (s *DecisionStore) ListFollowUps(ctx context.Context, decisionIDs []string) ([]models.FollowUpRecord, error) {
	rows, err := listByDecision[FollowUp](ctx, s.store, "list_follow_ups", decisionIDs)
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	out := make([]models.FollowUpRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

// ListActionPlans returns the action plans of the given decisions.
func (s *DecisionStore) ListActionPlans(ctx context.Context, decisionIDs []string) ([]models.ActionPlanRecord, error) {
	rows, err := listByDecision[ActionPlan](ctx, s.store, "list_action_plans", decisionIDs)
	if err != nil {
		return nil, fmt.Errorf("list action plans: %w", err)
	}
	out := make([]models.ActionPlanRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

// ListCheckIns returns the check-ins of the given decisions.
func (s *DecisionStore) ListCheckIns(ctx context.Context, decisionIDs []string) ([]models.CheckInRecord, error) {
	rows, err := listByDecision[CheckIn](ctx, s.store, "list_check_ins", decisionIDs)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	out := make([]models.CheckInRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

// listByDecision loads rows of T whose decision_id is in ids, chunking the
// IN list.
func listByDecision[T any](ctx context.Context, store *Store, operation string, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := store.WithTimeout(ctx, DefaultQueryTimeout, operation)
	defer cancel()

	var all []T
	for _, chunk := range chunkIDs(ids, inClauseChunk) {
		var rows []T
		if err := store.DB.WithContext(ctx).Where("decision_id IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// CreateDecision inserts the decision and, when plan is non-nil, its action
// plan in one transaction. Either both rows exist afterwards or neither does.
func (s *DecisionStore) CreateDecision(ctx context.Context, rec models.DecisionRecord, plan *models.ActionPlanRecord) error {
	row := decisionFromRecord(rec)
	return s.store.TransactionWithTimeout(ctx, WriteTimeout, "create_decision", func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert decision: %w", err)
		}
		if plan == nil {
			return nil
		}
		p := actionPlanFromRecord(*plan)
		p.DecisionID = row.ID
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("insert action plan: %w", err)
		}
		return nil
	})
}

// ReplaceFollowUp creates the decision's follow-up or overwrites the
// existing one. The original creation time is kept.
func (s *DecisionStore) ReplaceFollowUp(ctx context.Context, rec models.FollowUpRecord) error {
	row := followUpFromRecord(rec)
	return s.store.TransactionWithTimeout(ctx, WriteTimeout, "replace_follow_up", func(tx *gorm.DB) error {
		if err := EnsureDecisionExists(tx, row.DecisionID); err != nil {
			return err
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "decision_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"action_taken", "outcome", "regret", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert follow-up: %w", err)
		}
		return touchDecision(tx, row.DecisionID, row.UpdatedAt)
	})
}

// UpsertActionPlan stores the decision's plan, replacing its items.
func (s *DecisionStore) UpsertActionPlan(ctx context.Context, rec models.ActionPlanRecord) error {
	row := actionPlanFromRecord(rec)
	return s.store.TransactionWithTimeout(ctx, WriteTimeout, "upsert_action_plan", func(tx *gorm.DB) error {
		if err := EnsureDecisionExists(tx, row.DecisionID); err != nil {
			return err
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "decision_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert action plan: %w", err)
		}
		return touchDecision(tx, row.DecisionID, row.UpdatedAt)
	})
}

// UpsertCheckIn stores the decision's 7-day check-in, replacing any earlier one.
func (s *DecisionStore) UpsertCheckIn(ctx context.Context, rec models.CheckInRecord) error {
	row := checkInFromRecord(rec)
	return s.store.TransactionWithTimeout(ctx, WriteTimeout, "upsert_check_in", func(tx *gorm.DB) error {
		if err := EnsureDecisionExists(tx, row.DecisionID); err != nil {
			return err
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "decision_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"what_changed", "clarity_direction", "new_data", "completed_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert check-in: %w", err)
		}
		return touchDecision(tx, row.DecisionID, row.CompletedAt)
	})
}
