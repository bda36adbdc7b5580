package playbook

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/decision-fitness/pkg/models"
)

// PlaybookSuite is a test suite for the embedded content.
type PlaybookSuite struct {
	suite.Suite
	book *Book
}

func (s *PlaybookSuite) SetupTest() {
	s.book = Default()
}

func TestPlaybookSuite(t *testing.T) {
	suite.Run(t, new(PlaybookSuite))
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *PlaybookSuite) TestLookup_GoodScenarios_EveryCell() {
	for _, rec := range models.Recommendations {
		for _, t := range models.DecisionTypes {
			e := s.book.Lookup(rec, t)
			s.NotEmpty(e.Diagnosis, "%s/%s diagnosis", rec, t)
			s.NotEmpty(e.ActionTitle, "%s/%s title", rec, t)
			s.NotEmpty(e.NextStep, "%s/%s next step", rec, t)
			s.GreaterOrEqual(len(e.Steps), 2, "%s/%s steps", rec, t)
		}
	}
}

func (s *PlaybookSuite) TestLookup_GoodScenarios_Snapshot() {
	s.Equal(Entry{
		Diagnosis:   "Alta convicción y bajo costo de error.",
		ActionTitle: "Actuar hoy",
		NextStep:    "Da un paso concreto en las próximas 24 h.",
		Steps: []string{
			"Fija un tope de gasto antes de pagar.",
			"Si supera el tope, espera 24 h y repasa necesidad.",
		},
	}, s.book.Lookup(models.RecActuarHoy, models.TypeCompra))

	s.Equal(Entry{
		Diagnosis:   "Decisión difícil de revertir o con alto costo.",
		ActionTitle: "Preparar plan",
		NextStep:    "Prepara un plan antes de actuar.",
		Steps: []string{
			"Define 3 riesgos y cómo mitigarlos.",
			"Fija una fecha de decisión y criterios de salida.",
		},
	}, s.book.Lookup(models.RecPrepararPlan, models.TypeOtra))

	s.Equal(Entry{
		Diagnosis:   "Poca evidencia o presión; conviene esperar.",
		ActionTitle: "Esperar 7 días",
		NextStep:    "No compres hoy; revisa en 7 días con calma.",
		Steps: []string{
			"Espera 24 h antes de pagar (mínimo).",
			"Define presupuesto máximo.",
			"Si aún lo quieres, aplica regla 1-in-1-out.",
		},
	}, s.book.Lookup(models.RecEsperar7Dias, models.TypeCompra))

	s.Equal(Entry{
		Diagnosis:   "Baja convicción; mejor no avanzar hoy.",
		ActionTitle: "No avanzar",
		NextStep:    "Si en 30 días sigue importando, reevalúalo.",
		Steps: []string{
			"Deja anotado por si reaparece.",
			"Revisa en 30 días si sigue importando.",
		},
	}, s.book.Lookup(models.RecDescartar, models.TypeOtra))
}

func (s *PlaybookSuite) TestLookup_GoodScenarios_TitlesMatchMode() {
	for _, rec := range models.Recommendations {
		labels, ok := s.book.Labels(rec)
		s.Require().True(ok)
		for _, t := range models.DecisionTypes {
			s.Equal(labels.Mode, s.book.Lookup(rec, t).ActionTitle, "%s/%s", rec, t)
		}
	}
}

func (s *PlaybookSuite) TestLabels_GoodScenarios_Tables() {
	tests := []struct {
		rec       models.Recommendation
		mode      string
		friendly  string
		firstStep string
	}{
		{models.RecActuarHoy, "Actuar hoy", "Actúa hoy con un paso sencillo.", "Reserva tiempo hoy para escribir tu plan mínimo."},
		{models.RecPrepararPlan, "Preparar plan", "Prepara un plan detallado.", "Anota riesgos y mitigaciones."},
		{models.RecEsperar7Dias, "Esperar 7 días", "Espera 7 días y revisa con datos.", "Define los datos faltantes y cómo obtenerlos."},
		{models.RecDescartar, "No avanzar", "No avanzar por ahora.", "Libera espacio mental y revisa en 30 días."},
	}

	for _, tt := range tests {
		s.Run(string(tt.rec), func() {
			l, ok := s.book.Labels(tt.rec)
			s.Require().True(ok)
			s.Equal(tt.mode, l.Mode)
			s.Equal(tt.friendly, l.Friendly)
			s.Equal(tt.firstStep, l.FirstStep)
			s.NotEmpty(l.Label)
			s.NotEmpty(l.SmallStep)
		})
	}
}

func (s *PlaybookSuite) TestTemplate_GoodScenarios_FreshPlan() {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	n := 0
	newID := func() string { n++; return fmt.Sprintf("item-%d", n) }

	plan := s.book.Template(models.RecPrepararPlan, now, newID)

	s.Require().Len(plan.Items, 3)
	s.Equal([]models.ActionPlanItem{
		{ID: "item-1", Text: "Escribe 3 riesgos y mitigaciones"},
		{ID: "item-2", Text: "Define plan mínimo (qué, cuándo)"},
		{ID: "item-3", Text: "Agenda fecha de decisión"},
	}, plan.Items)
	s.Equal("2026-03-01T09:30:00.000Z", plan.CreatedAt)
	s.Equal(plan.CreatedAt, plan.UpdatedAt)
}

func (s *PlaybookSuite) TestTemplate_GoodScenarios_EveryRecommendationHasThreeItems() {
	for _, rec := range models.Recommendations {
		s.Len(s.book.TemplateTexts(rec), 3, string(rec))
	}
}

func (s *PlaybookSuite) TestFollowUpLabels_GoodScenarios() {
	s.Equal("Actué", s.book.ActionLabel(models.ActionActue))
	s.Equal("Esperé", s.book.ActionLabel(models.ActionEspere))
	s.Equal("Lo descarté", s.book.ActionLabel(models.ActionDescarte))
	s.Equal("Mejor", s.book.OutcomeLabel(models.OutcomeMejor))
	s.Equal("Igual", s.book.OutcomeLabel(models.OutcomeIgual))
	s.Equal("Peor", s.book.OutcomeLabel(models.OutcomePeor))
}

// =============================================================================
// WORSE SCENARIOS - Unknown keys fall back
// =============================================================================

func (s *PlaybookSuite) TestLookup_WorseScenarios_UnknownTypeUsesOtra() {
	s.Equal(s.book.Lookup(models.RecEsperar7Dias, models.TypeOtra), s.book.Lookup(models.RecEsperar7Dias, "viaje"))
	s.Equal(s.book.Lookup(models.RecDescartar, models.TypeOtra), s.book.Lookup(models.RecDescartar, ""))
}

func (s *PlaybookSuite) TestLookup_WorseScenarios_UnknownRecommendation() {
	e := s.book.Lookup("REVISAR", models.TypeSalud)

	s.Equal("Revisa los factores y vuelve a evaluar.", e.Diagnosis)
	s.Equal("REVISAR", e.ActionTitle)
	s.Equal("Define tu próximo paso.", e.NextStep)
	s.Equal([]string{"Anota qué necesitas para decidir.", "Revisa en 7 días."}, e.Steps)
}

func (s *PlaybookSuite) TestTemplate_WorseScenarios_UnknownRecommendationWaits() {
	s.Equal(s.book.TemplateTexts(models.RecEsperar7Dias), s.book.TemplateTexts("REVISAR"))
	_, ok := s.book.Labels("REVISAR")
	s.False(ok)
}

func (s *PlaybookSuite) TestLookup_WorseScenarios_ReturnedStepsAreCopies() {
	e := s.book.Lookup(models.RecActuarHoy, models.TypeSalud)
	e.Steps[0] = "changed"
	s.NotEqual("changed", s.book.Lookup(models.RecActuarHoy, models.TypeSalud).Steps[0])
}

// =============================================================================
// BAD SCENARIOS - Invalid documents
// =============================================================================

func TestParse_BadScenarios(t *testing.T) {
	_, err := Parse([]byte("recommendations: ["))
	require.Error(t, err)

	_, err = Parse([]byte("recommendations:\n  ACTUAR_HOY:\n    template: [a]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestReplayEvaluation(t *testing.T) {
	tests := []struct {
		rec     models.Recommendation
		action  models.ActionTaken
		outcome models.Outcome
		want    string
	}{
		{models.RecEsperar7Dias, models.ActionActue, models.OutcomePeor, ReplaySystemRight},
		{models.RecActuarHoy, models.ActionActue, models.OutcomeMejor, ReplayRecommendOK},
		{models.RecPrepararPlan, models.ActionActue, models.OutcomePeor, ReplayNoPlanRisk},
		{models.RecDescartar, models.ActionActue, models.OutcomeMejor, ReplayConservative},
		{models.RecActuarHoy, models.ActionEspere, models.OutcomeMejor, ReplayConservative},
		{models.RecEsperar7Dias, models.ActionActue, models.OutcomeMejor, ReplayConservative},
		{models.RecDescartar, models.ActionActue, models.OutcomePeor, ReplayConsistent},
		{models.RecEsperar7Dias, models.ActionEspere, models.OutcomeMejor, ReplayConsistent},
		{models.RecActuarHoy, models.ActionDescarte, models.OutcomeIgual, ReplayConsistent},
		{"REVISAR", models.ActionActue, models.OutcomeMejor, ReplayConsistent},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%s/%s/%s", tt.rec, tt.action, tt.outcome)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplayEvaluation(tt.rec, tt.action, tt.outcome))
		})
	}
}

func TestContradicts(t *testing.T) {
	assert.True(t, Contradicts(models.RecActuarHoy, models.ActionEspere))
	assert.True(t, Contradicts(models.RecActuarHoy, models.ActionDescarte))
	assert.False(t, Contradicts(models.RecActuarHoy, models.ActionActue))
	for _, rec := range []models.Recommendation{models.RecPrepararPlan, models.RecEsperar7Dias, models.RecDescartar} {
		assert.True(t, Contradicts(rec, models.ActionActue), rec)
		assert.False(t, Contradicts(rec, models.ActionEspere), rec)
		assert.False(t, Contradicts(rec, models.ActionDescarte), rec)
	}
	assert.False(t, Contradicts("REVISAR", models.ActionActue))
}
