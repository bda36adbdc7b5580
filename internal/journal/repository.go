package journal

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/decision-fitness/internal/db"
	"github.com/thebtf/decision-fitness/pkg/models"
)

// Repository persists a user's decisions. Sub-record writes replace the
// previous value; there is no history.
type Repository interface {
	// Load returns the user's decisions, newest first, with sub-records joined.
	Load(ctx context.Context, userID string) ([]models.SavedDecision, error)
	Count(ctx context.Context, userID string) (int, error)
	// Create stores the decision and its plan, if any, atomically. The draft
	// carries the questionnaire answers kept alongside the decision.
	Create(ctx context.Context, userID string, d models.SavedDecision, draft models.Draft) error
	SaveFollowUp(ctx context.Context, userID, decisionID string, fu models.FollowUp) error
	SavePlan(ctx context.Context, userID, decisionID string, plan models.ActionPlan) error
	SaveCheckIn(ctx context.Context, userID, decisionID string, ci models.CheckIn) error
}

// Ensure RecordRepository implements the interface.
var _ Repository = (*RecordRepository)(nil)

// RecordRepository maps decisions onto a relational DecisionStore.
type RecordRepository struct {
	store db.DecisionStore
	newID func() string
}

// NewRecordRepository wraps store.
func NewRecordRepository(store db.DecisionStore) *RecordRepository {
	return &RecordRepository{store: store, newID: uuid.NewString}
}

// Load reads the decisions, then their sub-records in parallel, and joins them.
func (r *RecordRepository) Load(ctx context.Context, userID string) ([]models.SavedDecision, error) {
	recs, err := r.store.ListDecisions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return []models.SavedDecision{}, nil
	}

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}

	var (
		followUps []models.FollowUpRecord
		plans     []models.ActionPlanRecord
		checkIns  []models.CheckInRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		followUps, err = r.store.ListFollowUps(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		plans, err = r.store.ListActionPlans(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		checkIns, err = r.store.ListCheckIns(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Assemble(recs, followUps, plans, checkIns), nil
}

// Count returns how many decisions the user has saved.
func (r *RecordRepository) Count(ctx context.Context, userID string) (int, error) {
	return r.store.CountDecisions(ctx, userID)
}

// Create stores the decision row and its plan in one transaction.
func (r *RecordRepository) Create(ctx context.Context, userID string, d models.SavedDecision, draft models.Draft) error {
	var plan *models.ActionPlanRecord
	if d.ActionPlan != nil {
		plan = &models.ActionPlanRecord{
			ID:         r.newID(),
			DecisionID: d.ID,
			Items:      d.ActionPlan.Items,
			CreatedAt:  d.ActionPlan.CreatedAt,
			UpdatedAt:  d.ActionPlan.UpdatedAt,
		}
	}
	return r.store.CreateDecision(ctx, RecordFrom(userID, d, draft), plan)
}

func (r *RecordRepository) SaveFollowUp(ctx context.Context, _ string, decisionID string, fu models.FollowUp) error {
	return r.store.ReplaceFollowUp(ctx, models.FollowUpRecord{
		ID:          r.newID(),
		DecisionID:  decisionID,
		ActionTaken: fu.ActionTaken,
		Outcome:     fu.Outcome,
		Regret:      fu.Regret,
		CreatedAt:   fu.UpdatedAt,
		UpdatedAt:   fu.UpdatedAt,
	})
}

func (r *RecordRepository) SavePlan(ctx context.Context, _ string, decisionID string, plan models.ActionPlan) error {
	return r.store.UpsertActionPlan(ctx, models.ActionPlanRecord{
		ID:         r.newID(),
		DecisionID: decisionID,
		Items:      plan.Items,
		CreatedAt:  plan.CreatedAt,
		UpdatedAt:  plan.UpdatedAt,
	})
}

func (r *RecordRepository) SaveCheckIn(ctx context.Context, _ string, decisionID string, ci models.CheckIn) error {
	return r.store.UpsertCheckIn(ctx, models.CheckInRecord{
		DecisionID:       decisionID,
		WhatChanged:      ci.WhatChanged,
		ClarityDirection: ci.ClarityDirection,
		NewData:          ci.NewData,
		CompletedAt:      ci.CompletedAt,
	})
}

// RecordFrom builds the decision row: the scored snapshot plus the
// questionnaire answers from the draft.
func RecordFrom(userID string, d models.SavedDecision, draft models.Draft) models.DecisionRecord {
	cost, state := draft.Levels()
	rec := models.DecisionRecord{
		ID:              d.ID,
		UserID:          userID,
		DecisionText:    d.DecisionText,
		Objective:       strings.TrimSpace(draft.Objective),
		EvidenceFor:     strings.TrimSpace(draft.EvidenceFor),
		EvidenceMissing: strings.TrimSpace(draft.EvidenceMissing),
		CostLevel:       cost,
		EmotionalState:  state,
		Reversibility:   d.Input.Reversibility,
		Recommendation:  d.Recommendation,
		ReasonText:      d.Reason,
		DecisionType:    d.DecisionType,
		Alternatives:    draft.CleanAlternatives(),
		Score:           d.Score,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.CreatedAt,
	}
	if in, ok := d.Input.Complete(); ok {
		rec.Conviction = &in.Conviction
		rec.CostIfWrong = &in.CostIfWrong
		rec.Energy = &in.Energy
	}
	return rec
}

// Assemble joins sub-records onto their decisions by decision ID, keeping
// the order of recs. When several follow-ups exist for one decision the most
// recently updated wins.
func Assemble(recs []models.DecisionRecord, followUps []models.FollowUpRecord, plans []models.ActionPlanRecord, checkIns []models.CheckInRecord) []models.SavedDecision {
	latest := make(map[string]models.FollowUpRecord, len(followUps))
	for _, fu := range followUps {
		if cur, ok := latest[fu.DecisionID]; !ok || newer(fu.FollowUp().UpdatedAt, cur.FollowUp().UpdatedAt) {
			latest[fu.DecisionID] = fu
		}
	}
	planByID := make(map[string]models.ActionPlanRecord, len(plans))
	for _, p := range plans {
		planByID[p.DecisionID] = p
	}
	checkInByID := make(map[string]models.CheckInRecord, len(checkIns))
	for _, ci := range checkIns {
		checkInByID[ci.DecisionID] = ci
	}

	out := make([]models.SavedDecision, 0, len(recs))
	for _, rec := range recs {
		d := models.SavedDecision{
			ID:             rec.ID,
			CreatedAt:      rec.CreatedAt,
			DecisionText:   rec.DecisionText,
			Recommendation: rec.Recommendation,
			Reason:         rec.ReasonText,
			DecisionType:   rec.DecisionType,
			Input:          rec.StoredInput(),
			Score:          rec.Score,
		}
		if fu, ok := latest[rec.ID]; ok {
			d.FollowUp = fu.FollowUp()
		}
		if p, ok := planByID[rec.ID]; ok {
			d.ActionPlan = p.ActionPlan()
		}
		if ci, ok := checkInByID[rec.ID]; ok {
			d.CheckIn = ci.CheckIn()
		}
		out = append(out, d)
	}
	return out
}

// newer compares two stored timestamps, falling back to string order when
// either does not parse.
func newer(a, b string) bool {
	ta, errA := models.ParseTime(a)
	tb, errB := models.ParseTime(b)
	if errA != nil || errB != nil {
		return a > b
	}
	return ta.After(tb)
}
