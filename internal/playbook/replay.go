package playbook

import "github.com/thebtf/decision-fitness/pkg/models"

// Replay verdicts comparing what the user did with what was recommended.
const (
	ReplaySystemRight  = "El sistema probablemente tenía razón."
	ReplayRecommendOK  = "La recomendación fue acertada."
	ReplayNoPlanRisk   = "Actuar sin plan aumentó el riesgo."
	ReplayConservative = "El sistema fue conservador en esta ocasión."
	ReplayConsistent   = "Resultado coherente con la decisión tomada."
)

// Contradicts reports whether the action taken went against the
// recommendation: not acting on ACTUAR_HOY, or acting on anything else.
func Contradicts(rec models.Recommendation, action models.ActionTaken) bool {
	switch rec {
	case models.RecActuarHoy:
		return action == models.ActionEspere || action == models.ActionDescarte
	case models.RecEsperar7Dias, models.RecPrepararPlan, models.RecDescartar:
		return action == models.ActionActue
	}
	return false
}

// ReplayEvaluation judges a follow-up against the recommendation that was
// given. The first matching verdict wins.
func ReplayEvaluation(rec models.Recommendation, action models.ActionTaken, outcome models.Outcome) string {
	switch {
	case rec == models.RecEsperar7Dias && action == models.ActionActue && outcome == models.OutcomePeor:
		return ReplaySystemRight
	case rec == models.RecActuarHoy && action == models.ActionActue && outcome == models.OutcomeMejor:
		return ReplayRecommendOK
	case rec == models.RecPrepararPlan && action == models.ActionActue && outcome == models.OutcomePeor:
		return ReplayNoPlanRisk
	case Contradicts(rec, action) && outcome == models.OutcomeMejor:
		return ReplayConservative
	}
	return ReplayConsistent
}
