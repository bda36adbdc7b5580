package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	gormdb "github.com/thebtf/decision-fitness/internal/db/gorm"
	"github.com/thebtf/decision-fitness/pkg/models"
)

func TestAssemble_JoinsByDecisionID(t *testing.T) {
	recs := []models.DecisionRecord{
		{ID: "b", DecisionText: "B", Reversibility: models.Reversible, Recommendation: models.RecActuarHoy,
			Conviction: intp(9), CostIfWrong: intp(3), Energy: intp(0), Score: 71, CreatedAt: "2026-01-02T00:00:00.000Z"},
		{ID: "a", DecisionText: "A", Reversibility: models.Semi, Recommendation: models.RecEsperar7Dias,
			CostLevel: models.CostAlto, EmotionalState: models.StateCalmado, Score: 50, CreatedAt: "2026-01-01T00:00:00.000Z"},
	}
	followUps := []models.FollowUpRecord{
		{ID: "f1", DecisionID: "a", ActionTaken: models.ActionActue, Outcome: models.OutcomePeor, Regret: true,
			CreatedAt: "2026-01-03T00:00:00.000Z", UpdatedAt: "2026-01-03T00:00:00.000Z"},
		{ID: "f2", DecisionID: "a", ActionTaken: models.ActionEspere, Outcome: models.OutcomeMejor,
			CreatedAt: "2026-01-05T00:00:00.000Z"},
		{ID: "f0", DecisionID: "a", ActionTaken: models.ActionDescarte, Outcome: models.OutcomeIgual,
			UpdatedAt: "2026-01-04T00:00:00.000Z"},
		{ID: "orphan", DecisionID: "zzz", ActionTaken: models.ActionActue, Outcome: models.OutcomeIgual},
	}
	plans := []models.ActionPlanRecord{
		{ID: "p1", DecisionID: "b", Items: []models.ActionPlanItem{{ID: "i1", Text: "x"}}},
	}
	checkIns := []models.CheckInRecord{
		{DecisionID: "b", ClarityDirection: models.ClaritySubio, CompletedAt: "2026-01-09T00:00:00.000Z"},
	}

	got := Assemble(recs, followUps, plans, checkIns)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].ID, "input order kept")
	assert.Nil(t, got[0].FollowUp)
	require.NotNil(t, got[0].ActionPlan)
	assert.Equal(t, "x", got[0].ActionPlan.Items[0].Text)
	require.NotNil(t, got[0].CheckIn)
	assert.Equal(t, models.ClaritySubio, got[0].CheckIn.ClarityDirection)

	a := got[1]
	require.NotNil(t, a.FollowUp)
	assert.Equal(t, models.ActionEspere, a.FollowUp.ActionTaken, "most recently updated follow-up wins")
	assert.Equal(t, "2026-01-05T00:00:00.000Z", a.FollowUp.UpdatedAt, "falls back to created_at")
	assert.Nil(t, a.ActionPlan)

	in, ok := a.Input.Complete()
	require.True(t, ok)
	assert.Equal(t, models.GuidedConviction, in.Conviction)
	assert.Equal(t, 9, in.CostIfWrong)
	assert.Equal(t, 0, in.Energy)
}

func TestRecordFrom_KeepsQuestionnaire(t *testing.T) {
	draft := guided("Cambiar de trabajo")
	draft.Objective = " Crecer "
	draft.Alternatives = []string{"Quedarme", "  "}
	in, err := draft.Input()
	require.NoError(t, err)

	d := models.SavedDecision{
		ID: "d1", CreatedAt: "2026-01-01T00:00:00.000Z", DecisionText: "Cambiar de trabajo",
		Recommendation: models.RecEsperar7Dias, Reason: "r", DecisionType: models.TypeCarrera,
		Input: models.InputFrom(in), Score: 41,
	}
	rec := RecordFrom("u1", d, draft)

	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "Crecer", rec.Objective)
	assert.Equal(t, []string{"Quedarme"}, rec.Alternatives)
	assert.Equal(t, models.CostMedio, rec.CostLevel)
	assert.Equal(t, models.StateBajoPresion, rec.EmotionalState)
	require.NotNil(t, rec.Energy)
	assert.Equal(t, -3, *rec.Energy)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
}

// TestService_OverRelationalStore runs the service end to end on SQLite.
func TestService_OverRelationalStore(t *testing.T) {
	store, err := gormdb.NewStore(gormdb.Config{
		Driver:   gormdb.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "journal.db"),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	repo := NewRecordRepository(gormdb.NewDecisionStore(store))
	svc := NewService(repo, WithClock(func() time.Time { return now }))

	draft := guided("Cambiar de trabajo")
	draft.Plan = []string{"Actualizar CV"}
	saved, err := svc.Save(ctx, Owner{UserID: "u1"}, draft)
	require.NoError(t, err)

	_, err = svc.RecordFollowUp(ctx, "u1", saved.ID, FollowUpInput{
		ActionTaken: models.ActionEspere, Outcome: models.OutcomeMejor,
	})
	require.NoError(t, err)
	_, err = svc.AddPlanItem(ctx, "u1", saved.ID, "Pedir referencias")
	require.NoError(t, err)
	_, err = svc.RecordCheckIn(ctx, "u1", saved.ID, CheckInInput{ClarityDirection: models.ClaritySubio})
	require.NoError(t, err)

	// A fresh service reads everything back from the database.
	fresh := NewService(repo)
	list, err := fresh.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, saved.Score, got.Score)
	assert.Equal(t, saved.Reason, got.Reason)
	require.NotNil(t, got.FollowUp)
	assert.Equal(t, models.OutcomeMejor, got.FollowUp.Outcome)
	require.NotNil(t, got.ActionPlan)
	require.Len(t, got.ActionPlan.Items, 2)
	assert.Equal(t, "Actualizar CV", got.ActionPlan.Items[0].Text)
	assert.Equal(t, "Pedir referencias", got.ActionPlan.Items[1].Text)
	require.NotNil(t, got.CheckIn)

	in, ok := got.Input.Complete()
	require.True(t, ok)
	assert.Equal(t, models.DecisionInput{Reversibility: models.Semi, Conviction: 6, CostIfWrong: 6, Energy: -3}, in)

	n, err := repo.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
