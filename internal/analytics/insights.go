package analytics

import "github.com/thebtf/decision-fitness/pkg/models"

// Metric names the dashboard metric a tip targets.
type Metric string

const (
	MetricNone      Metric = ""
	MetricClaridad  Metric = "claridad"
	MetricConfianza Metric = "confianza"
)

// Levels for scores and sample sizes.
const (
	LevelAlta  = "Alta"
	LevelMedia = "Media"
	LevelBaja  = "Baja"
)

// Levels for regret rates.
const (
	LevelBajo  = "Bajo"
	LevelMedio = "Medio"
	LevelAlto  = "Alto"
)

// Score banding.
const (
	HighScoreMin   = 70
	MediumScoreMin = 45
)

// Regret banding.
const (
	LowRegretMax    = 15
	MediumRegretMax = 35
)

// Weekly insight thresholds.
const (
	DeltaSignificant = 5
	HighRegretRate   = 35
)

// Weekly insights, in evaluation order.
const (
	InsightClarityUp      = "Claridad subiendo: estás decidiendo más consistente."
	InsightClarityDown    = "Claridad bajando: reduce variables y decide con un paso pequeño."
	InsightConfidenceDown = "Confianza bajando: define 3 criterios antes de decidir."
	InsightHighRegret     = "Arrepentimiento alto: usa «Preparar plan» en decisiones difíciles de revertir."
	InsightSteady         = "Buen ritmo. Mantén el seguimiento para aprender más."
)

// LowestMetric picks the metric to improve. Both nil gives MetricNone; a
// nil clarity gives confianza; a nil confidence gives claridad; ties go to
// claridad.
func LowestMetric(clarity, confidence *int) Metric {
	switch {
	case clarity == nil && confidence == nil:
		return MetricNone
	case clarity == nil:
		return MetricConfianza
	case confidence == nil:
		return MetricClaridad
	case *clarity <= *confidence:
		return MetricClaridad
	}
	return MetricConfianza
}

// TipForMetric returns the advice for the weakest metric.
func TipForMetric(m Metric, avgClarity *int) string {
	switch m {
	case MetricClaridad:
		switch {
		case avgClarity == nil:
			return "Registra una decisión para recibir tu primer tip."
		case *avgClarity >= HighScoreMin:
			return "Mantén el ritmo: una decisión pequeña por semana."
		case *avgClarity >= MediumScoreMin:
			return "Antes de decidir, escribe en una línea qué pasaría si te equivocas."
		}
		return "Elige una sola decisión pendiente y date 7 días antes de actuar."
	case MetricConfianza:
		return "Reduce la incertidumbre: anota qué información te falta y define un criterio claro antes de decidir."
	}
	return "Registra decisiones para ver tu próximo paso."
}

// SystemConfidence rates how far aggregate numbers can be trusted, from
// sample size alone.
func SystemConfidence(count int) string {
	switch {
	case count < 5:
		return LevelBaja
	case count <= 15:
		return LevelMedia
	}
	return LevelAlta
}

// LevelFromScore bands a 0-100 score; "" for nil.
func LevelFromScore(score *int) string {
	switch {
	case score == nil:
		return ""
	case *score >= HighScoreMin:
		return LevelAlta
	case *score >= MediumScoreMin:
		return LevelMedia
	}
	return LevelBaja
}

// LevelFromRegretRate bands a regret percentage; "" for nil.
func LevelFromRegretRate(rate *int) string {
	switch {
	case rate == nil:
		return ""
	case *rate <= LowRegretMax:
		return LevelBajo
	case *rate <= MediumRegretMax:
		return LevelMedio
	}
	return LevelAlto
}

// InterpretClarity explains the average clarity.
func InterpretClarity(score *int) string {
	switch {
	case score == nil:
		return "Registra decisiones para ver tu lectura."
	case *score >= HighScoreMin:
		return "Tus decisiones tienden a ser coherentes."
	case *score >= MediumScoreMin:
		return "Hay espacio para ganar claridad."
	}
	return "Tus decisiones no están siendo consistentes."
}

// InterpretConfidence explains the confidence score.
func InterpretConfidence(score *int) string {
	switch {
	case score == nil:
		return "Más datos para ver tu nivel de confianza."
	case *score >= HighScoreMin:
		return "Cierras bien; poca duda al decidir."
	case *score >= MediumScoreMin:
		return "Tu duda está en rango medio."
	}
	return "Estás dudando más de lo ideal."
}

// InterpretRegret explains the regret rate.
func InterpretRegret(rate *int) string {
	if rate == nil {
		return "Actívalo con seguimiento"
	}
	return "Cuántas decisiones lamentas con el tiempo."
}

// WeeklyInsight picks one message; the first matching rule wins, so a
// rising clarity hides a falling confidence.
func WeeklyInsight(clarityDelta, confidenceDelta, regretRate *int) string {
	switch {
	case clarityDelta != nil && *clarityDelta >= DeltaSignificant:
		return InsightClarityUp
	case clarityDelta != nil && *clarityDelta <= -DeltaSignificant:
		return InsightClarityDown
	case confidenceDelta != nil && *confidenceDelta <= -DeltaSignificant:
		return InsightConfidenceDown
	case regretRate != nil && *regretRate > HighRegretRate:
		return InsightHighRegret
	}
	return InsightSteady
}

// MetricReading is one dashboard metric with its band and explanation.
type MetricReading struct {
	Value          *int   `json:"value"`
	Level          string `json:"level,omitempty"`
	Interpretation string `json:"interpretation"`
}

// Dashboard bundles every statistic rendered for a history.
type Dashboard struct {
	AvgDoubt         *float64      `json:"avgDoubt"`
	Alignment        *int          `json:"alignment"`
	LowestMetric     Metric        `json:"lowestMetric,omitempty"`
	Tip              string        `json:"tip"`
	WeeklyInsight    string        `json:"weeklyInsight"`
	SystemConfidence string        `json:"systemConfidence"`
	ClarityDelta     string        `json:"clarityDeltaLabel,omitempty"`
	ConfidenceDelta  string        `json:"confidenceDeltaLabel,omitempty"`
	Clarity          MetricReading `json:"clarity"`
	Confidence       MetricReading `json:"confidence"`
	Regret           MetricReading `json:"regret"`
	Trend            Trend         `json:"trend"`
	RegretMetrics    RegretMetrics `json:"regretMetrics"`
	Count            int           `json:"count"`
}

// Compute derives the dashboard for a newest-first history.
func Compute(decisions []models.SavedDecision) Dashboard {
	clarity := AvgClarity(decisions)
	confidence := Confidence(decisions)
	regret := Regret(decisions)
	trend := BuildTrend(decisions)
	lowest := LowestMetric(clarity, confidence)

	return Dashboard{
		Count:            len(decisions),
		AvgDoubt:         AvgDoubt(decisions),
		Alignment:        AvgAlignment(decisions),
		LowestMetric:     lowest,
		Tip:              TipForMetric(lowest, clarity),
		WeeklyInsight:    WeeklyInsight(trend.ClarityDelta, trend.ConfidenceDelta, regret.Rate),
		SystemConfidence: SystemConfidence(len(decisions)),
		ClarityDelta:     FormatDelta(trend.ClarityDelta),
		ConfidenceDelta:  FormatDelta(trend.ConfidenceDelta),
		Clarity: MetricReading{
			Value:          clarity,
			Level:          LevelFromScore(clarity),
			Interpretation: InterpretClarity(clarity),
		},
		Confidence: MetricReading{
			Value:          confidence,
			Level:          LevelFromScore(confidence),
			Interpretation: InterpretConfidence(confidence),
		},
		Regret: MetricReading{
			Value:          regret.Rate,
			Level:          LevelFromRegretRate(regret.Rate),
			Interpretation: InterpretRegret(regret.Rate),
		},
		Trend:         trend,
		RegretMetrics: regret,
	}
}
