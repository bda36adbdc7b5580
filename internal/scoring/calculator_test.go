package scoring

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/thebtf/decision-fitness/pkg/models"
)

// CalculatorSuite is a test suite for the clarity score and recommendation rules.
type CalculatorSuite struct {
	suite.Suite
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorSuite))
}

func input(rev models.Reversibility, conviction, cost, energy int) models.DecisionInput {
	return models.DecisionInput{Reversibility: rev, Conviction: conviction, CostIfWrong: cost, Energy: energy}
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *CalculatorSuite) TestClarityScore_GoodScenarios_KnownValues() {
	tests := []struct {
		name string
		in   models.DecisionInput
		want int
	}{
		{"neutral midpoint", input(models.Semi, 5, 5, 0), 50},
		{"guided medio calmado", input(models.Semi, 6, 6, 0), 52},
		{"high conviction low cost", input(models.Semi, 9, 3, 0), 71},
		{"low conviction high cost", input(models.Semi, 3, 9, 0), 32},
		{"anxious medium cost", input(models.Semi, 6, 6, -4), 38},
		{"guided bajo presion", input(models.Semi, 6, 6, -3), 41},
		{"half rounds up", input(models.Reversible, 1, 1, -5), 27},
		{"just under half", input(models.Semi, 6, 3, -4), 45},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.Equal(tt.want, ClarityScore(tt.in))
		})
	}
}

func (s *CalculatorSuite) TestClarityScore_GoodScenarios_Extremes() {
	// Best and worst in-range factors. The weighted sum tops out at 0.975
	// and bottoms at 0.04 because costPenalty spans 0..0.9 and
	// convictionScore 0.1..1.
	s.Equal(98, ClarityScore(input(models.Reversible, 10, 1, 5)))
	s.Equal(4, ClarityScore(input(models.Irreversible, 1, 10, -5)))
}

func (s *CalculatorSuite) TestClarityScore_GoodScenarios_ReversibilityIgnored() {
	for _, rev := range []models.Reversibility{models.Reversible, models.Semi, models.Irreversible} {
		s.Equal(61, ClarityScore(input(rev, 9, 7, 0)))
	}
}

func (s *CalculatorSuite) TestComponents_GoodScenarios_Breakdown() {
	c := Components(input(models.Semi, 8, 4, 0))

	s.InDelta(0.5, c.NormalizedEnergy, 1e-12)
	s.InDelta(0.8, c.ConvictionScore, 1e-12)
	s.InDelta(0.6, c.CostPenalty, 1e-12)
	s.InDelta(0.645, c.Clarity, 1e-12)
	s.Equal(65, c.Score)
}

func (s *CalculatorSuite) TestRecommend_GoodScenarios_DocumentedCases() {
	tests := []struct {
		name string
		in   models.DecisionInput
		want models.Recommendation
	}{
		{"irreversible high cost pre-empts act", input(models.Irreversible, 9, 7, 0), models.RecPrepararPlan},
		{"act today", input(models.Semi, 9, 3, 0), models.RecActuarHoy},
		{"discard", input(models.Semi, 3, 9, 0), models.RecDescartar},
		{"low energy pre-empts default", input(models.Semi, 6, 6, -4), models.RecEsperar7Dias},
		{"falls through to default", input(models.Semi, 5, 5, 0), models.RecEsperar7Dias},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.Equal(tt.want, Recommend(tt.in))
		})
	}
}

func (s *CalculatorSuite) TestRecommend_GoodScenarios_Boundaries() {
	tests := []struct {
		name string
		in   models.DecisionInput
		want models.Recommendation
		rule int
	}{
		// rule 1: cost 7 vs 6 on irreversible
		{"irreversible cost 7", input(models.Irreversible, 5, 7, 0), models.RecPrepararPlan, 1},
		{"irreversible cost 6", input(models.Irreversible, 5, 6, 0), models.RecEsperar7Dias, 6},
		{"semi cost 7 is not rule 1", input(models.Semi, 5, 7, 0), models.RecEsperar7Dias, 6},
		{"irreversible beats low energy", input(models.Irreversible, 9, 9, -5), models.RecPrepararPlan, 1},

		// rule 2: energy -3 vs -2
		{"energy -3", input(models.Semi, 9, 1, -3), models.RecEsperar7Dias, 2},
		{"energy -2", input(models.Semi, 9, 1, -2), models.RecActuarHoy, 3},

		// rule 3: conviction 8 vs 7, cost 4 vs 5
		{"conviction 8 cost 4", input(models.Semi, 8, 4, 0), models.RecActuarHoy, 3},
		{"conviction 7 cost 4", input(models.Semi, 7, 4, 0), models.RecEsperar7Dias, 6},
		{"conviction 8 cost 5", input(models.Semi, 8, 5, 0), models.RecEsperar7Dias, 6},

		// rule 4: conviction 7 vs 6, cost 6 vs 5
		{"conviction 7 cost 6", input(models.Semi, 7, 6, 0), models.RecPrepararPlan, 4},
		{"conviction 6 cost 6", input(models.Semi, 6, 6, 0), models.RecEsperar7Dias, 6},
		{"conviction 7 cost 5", input(models.Semi, 7, 5, 0), models.RecEsperar7Dias, 6},
		{"reversible conviction 10 cost 10", input(models.Reversible, 10, 10, 5), models.RecPrepararPlan, 4},

		// rule 5: conviction 4 vs 5
		{"conviction 4", input(models.Semi, 4, 5, 0), models.RecDescartar, 5},
		{"conviction 5", input(models.Semi, 5, 5, 0), models.RecEsperar7Dias, 6},
		{"low energy beats discard", input(models.Semi, 1, 5, -4), models.RecEsperar7Dias, 2},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			r := MatchRule(tt.in)
			s.Equal(tt.want, r.Recommendation)
			s.Equal(tt.rule, r.Number)
		})
	}
}

func (s *CalculatorSuite) TestMatchRule_GoodScenarios_DiagnosticLines() {
	s.Equal("Decisión difícil de revertir con alto costo.", MatchRule(input(models.Irreversible, 5, 8, 0)).Diagnostic)
	s.Equal("Energía negativa y alta incertidumbre.", MatchRule(input(models.Semi, 5, 5, -4)).Diagnostic)
	s.Equal("Alta convicción y bajo costo.", MatchRule(input(models.Semi, 9, 2, 0)).Diagnostic)
	s.Equal("Alta convicción pero alto costo.", MatchRule(input(models.Semi, 9, 8, 0)).Diagnostic)
	s.Equal("Baja convicción.", MatchRule(input(models.Semi, 2, 5, 0)).Diagnostic)
	s.Equal("Incertidumbre moderada; conviene esperar.", MatchRule(input(models.Semi, 6, 5, 0)).Diagnostic)
}

func (s *CalculatorSuite) TestReason_GoodScenarios_PerRecommendation() {
	in := input(models.Semi, 5, 5, 0)

	s.Equal("Alta convicción y bajo costo. Avanza hoy con un paso pequeño.", Reason(in, models.RecActuarHoy))
	s.Equal("No tomes la decisión irreversible aún. Prepara un plan concreto.", Reason(in, models.RecPrepararPlan))
	s.Equal("Espera 7 días y revisa esta decisión con menos ruido.", Reason(in, models.RecEsperar7Dias))
	s.Equal("Hoy no vale el costo. Mejor no avanzar.", Reason(in, models.RecDescartar))
}

func (s *CalculatorSuite) TestReason_GoodScenarios_InputDoesNotChangeText() {
	a := Reason(input(models.Reversible, 10, 1, 5), models.RecPrepararPlan)
	b := Reason(input(models.Irreversible, 1, 10, -5), models.RecPrepararPlan)
	s.Equal(a, b)
}

func (s *CalculatorSuite) TestEvaluate_GoodScenarios_Composed() {
	got := Evaluate(input(models.Semi, 9, 3, 0))

	s.Equal(models.ClarityResult{
		Score:          71,
		Recommendation: models.RecActuarHoy,
		Reason:         "Alta convicción y bajo costo. Avanza hoy con un paso pequeño.",
	}, got)
}

// =============================================================================
// WORSE SCENARIOS - Out of range input
// =============================================================================

func (s *CalculatorSuite) TestClarityScore_WorseScenarios_ClampsHigh() {
	s.Equal(100, ClarityScore(input(models.Semi, 20, 1, 5)))
}

func (s *CalculatorSuite) TestClarityScore_WorseScenarios_ClampsLow() {
	s.Equal(0, ClarityScore(input(models.Semi, 1, 10, -10)))
	s.Equal(0, ClarityScore(input(models.Semi, -5, 20, -5)))
}

func (s *CalculatorSuite) TestClarityScore_WorseScenarios_IntermediateTermsNotClamped() {
	// Energy far below range drags the score down instead of stopping at 0.
	c := Components(input(models.Semi, 6, 6, -10))
	s.InDelta(-0.5, c.NormalizedEnergy, 1e-12)
	s.Equal(17, c.Score)
}

func (s *CalculatorSuite) TestRecommend_WorseScenarios_UnknownReversibility() {
	s.Equal(models.RecEsperar7Dias, Recommend(input(models.Reversibility("maybe"), 5, 9, 0)))
}

// =============================================================================
// BAD SCENARIOS - Unknown recommendation codes
// =============================================================================

func (s *CalculatorSuite) TestReason_BadScenarios_UnknownCode() {
	s.Equal(FallbackReason, Reason(input(models.Semi, 5, 5, 0), models.Recommendation("HACER_ALGO")))
	s.Equal(FallbackReason, Reason(input(models.Semi, 5, 5, 0), ""))
}
