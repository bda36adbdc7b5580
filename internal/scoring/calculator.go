// Package scoring computes the clarity score and recommendation for a decision.
package scoring

import (
	"math"

	"github.com/thebtf/decision-fitness/pkg/models"
)

// Factor weights of the clarity formula. They sum to 1.
const (
	ConvictionWeight = 0.4
	EnergyWeight     = 0.35
	CostWeight       = 0.25
)

// Recommendation thresholds.
const (
	IrreversibleCostMin  = 7  // rule 1: irreversible and costIfWrong >= 7
	LowEnergyMax         = -3 // rule 2: energy <= -3
	ActConvictionMin     = 8  // rule 3: conviction >= 8 ...
	ActCostMax           = 4  // ... and costIfWrong <= 4
	PlanConvictionMin    = 7  // rule 4: conviction >= 7 ...
	PlanCostMin          = 6  // ... and costIfWrong >= 6
	DiscardConvictionMax = 4  // rule 5: conviction <= 4
)

// Fallback reason for unknown recommendation codes.
const FallbackReason = "Revisa los factores y vuelve a evaluar."

var reasons = map[models.Recommendation]string{
	models.RecActuarHoy:    "Alta convicción y bajo costo. Avanza hoy con un paso pequeño.",
	models.RecPrepararPlan: "No tomes la decisión irreversible aún. Prepara un plan concreto.",
	models.RecEsperar7Dias: "Espera 7 días y revisa esta decisión con menos ruido.",
	models.RecDescartar:    "Hoy no vale el costo. Mejor no avanzar.",
}

// ScoreComponents is the breakdown of a clarity score.
type ScoreComponents struct {
	NormalizedEnergy float64 `json:"normalizedEnergy"`
	ConvictionScore  float64 `json:"convictionScore"`
	CostPenalty      float64 `json:"costPenalty"`
	Clarity          float64 `json:"clarity"`
	Score            int     `json:"score"`
}

// Components returns every intermediate term of the clarity formula.
//
//	clarity = conviction/10 × 0.4 + (energy+5)/10 × 0.35 + (10-costIfWrong)/10 × 0.25
//	score   = clamp(round(clarity × 100), 0, 100)
//
// Inputs are not validated; only the final score is clamped.
func Components(in models.DecisionInput) ScoreComponents {
	normalizedEnergy := float64(in.Energy+5) / 10
	convictionScore := float64(in.Conviction) / 10
	costPenalty := float64(10-in.CostIfWrong) / 10

	// Explicit conversions keep each product rounded before the sum.
	clarity := float64(convictionScore*ConvictionWeight) +
		float64(normalizedEnergy*EnergyWeight) +
		float64(costPenalty*CostWeight)

	return ScoreComponents{
		NormalizedEnergy: normalizedEnergy,
		ConvictionScore:  convictionScore,
		CostPenalty:      costPenalty,
		Clarity:          clarity,
		Score:            clamp(roundHalfUp(float64(clarity*100)), 0, 100),
	}
}

// ClarityScore returns the 0-100 clarity score.
func ClarityScore(in models.DecisionInput) int {
	return Components(in).Score
}

// Rule is one entry of the ordered recommendation list.
type Rule struct {
	Recommendation models.Recommendation `json:"recommendation"`
	Diagnostic     string                `json:"diagnostic"`
	Number         int                   `json:"number"`
}

var rules = []struct {
	match func(models.DecisionInput) bool
	Rule
}{
	{
		match: func(in models.DecisionInput) bool {
			return in.Reversibility == models.Irreversible && in.CostIfWrong >= IrreversibleCostMin
		},
		Rule: Rule{Number: 1, Recommendation: models.RecPrepararPlan, Diagnostic: "Decisión difícil de revertir con alto costo."},
	},
	{
		match: func(in models.DecisionInput) bool { return in.Energy <= LowEnergyMax },
		Rule:  Rule{Number: 2, Recommendation: models.RecEsperar7Dias, Diagnostic: "Energía negativa y alta incertidumbre."},
	},
	{
		match: func(in models.DecisionInput) bool {
			return in.Conviction >= ActConvictionMin && in.CostIfWrong <= ActCostMax
		},
		Rule: Rule{Number: 3, Recommendation: models.RecActuarHoy, Diagnostic: "Alta convicción y bajo costo."},
	},
	{
		match: func(in models.DecisionInput) bool {
			return in.Conviction >= PlanConvictionMin && in.CostIfWrong >= PlanCostMin
		},
		Rule: Rule{Number: 4, Recommendation: models.RecPrepararPlan, Diagnostic: "Alta convicción pero alto costo."},
	},
	{
		match: func(in models.DecisionInput) bool { return in.Conviction <= DiscardConvictionMax },
		Rule:  Rule{Number: 5, Recommendation: models.RecDescartar, Diagnostic: "Baja convicción."},
	},
}

var defaultRule = Rule{Number: 6, Recommendation: models.RecEsperar7Dias, Diagnostic: "Incertidumbre moderada; conviene esperar."}

// MatchRule returns the first rule that matches. Order is significant:
// an irreversible high-cost decision is sent to planning even with high
// conviction.
func MatchRule(in models.DecisionInput) Rule {
	for _, r := range rules {
		if r.match(in) {
			return r.Rule
		}
	}
	return defaultRule
}

// Recommend returns the recommendation for the input.
func Recommend(in models.DecisionInput) models.Recommendation {
	return MatchRule(in).Recommendation
}

// Reason returns the sentence explaining a recommendation. Only the
// recommendation selects the sentence; the input is not consulted.
func Reason(_ models.DecisionInput, rec models.Recommendation) string {
	if r, ok := reasons[rec]; ok {
		return r
	}
	return FallbackReason
}

// Evaluate scores the input and explains the result.
func Evaluate(in models.DecisionInput) models.ClarityResult {
	rec := Recommend(in)
	return models.ClarityResult{
		Score:          ClarityScore(in),
		Recommendation: rec,
		Reason:         Reason(in, rec),
	}
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
