package models

import (
	"errors"
	"strings"
)

// UntitledDecision replaces an empty decision text.
const UntitledDecision = "Decisión sin título"

// GuidedConviction is the conviction assumed by the guided questionnaire,
// which never asks for it directly.
const GuidedConviction = 6

// CostLevel is the coarse cost-if-wrong answer.
type CostLevel string

const (
	CostBajo  CostLevel = "bajo"
	CostMedio CostLevel = "medio"
	CostAlto  CostLevel = "alto"
)

// CostIfWrong maps the level to the 1-10 scale. Unknown levels count as medio.
func (c CostLevel) CostIfWrong() int {
	switch c {
	case CostBajo:
		return 3
	case CostAlto:
		return 9
	}
	return 6
}

// EmotionalState is the guided questionnaire's emotional answer.
type EmotionalState string

const (
	StateCalmado     EmotionalState = "calmado"
	StateBajoPresion EmotionalState = "bajo presion"
	StateAnsioso     EmotionalState = "ansioso"
)

// Energy maps the state to the -5..5 scale. Unknown states count as bajo presion.
func (s EmotionalState) Energy() int {
	switch s {
	case StateCalmado:
		return 0
	case StateAnsioso:
		return -4
	}
	return -3
}

// EvidenceLevel is the quick form's evidence answer.
type EvidenceLevel string

const (
	EvidencePoca  EvidenceLevel = "poca"
	EvidenceMedia EvidenceLevel = "media"
	EvidenceAlta  EvidenceLevel = "alta"
)

// Conviction maps the level to the 1-10 scale.
func (e EvidenceLevel) Conviction() int {
	switch e {
	case EvidencePoca:
		return 3
	case EvidenceMedia:
		return 6
	}
	return 9
}

// Pressure is the quick form's pressure answer.
type Pressure string

const (
	PressureCalma   Pressure = "calma"
	PressurePresion Pressure = "presion"
)

// Energy maps the answer to the -5..5 scale.
func (p Pressure) Energy() int {
	if p == PressureCalma {
		return 0
	}
	return -4
}

// EmotionalState converts the quick form answer into the guided vocabulary.
func (p Pressure) EmotionalState() EmotionalState {
	if p == PressureCalma {
		return StateCalmado
	}
	return StateBajoPresion
}

// ErrIncompleteDraft is returned when a draft carries neither questionnaire
// answers nor explicit factors.
var ErrIncompleteDraft = errors.New("draft has no cost or emotional answer")

// Draft is a finished questionnaire that has not been saved yet.
//
// A draft is scored from, in order of precedence: explicit numeric factors,
// the quick form (Evidence + Pressure) and the guided flow (CostLevel +
// EmotionalState, with GuidedConviction).
type Draft struct {
	Conviction      *int           `json:"conviction,omitempty"`
	CostIfWrong     *int           `json:"costIfWrong,omitempty"`
	Energy          *int           `json:"energy,omitempty"`
	DecisionText    string         `json:"decisionText"`
	DecisionType    DecisionType   `json:"decisionType,omitempty"`
	Objective       string         `json:"objective,omitempty"`
	EvidenceFor     string         `json:"evidenceFor,omitempty"`
	EvidenceMissing string         `json:"evidenceMissing,omitempty"`
	Reversibility   Reversibility  `json:"reversibility"`
	CostLevel       CostLevel      `json:"costLevel,omitempty"`
	EmotionalState  EmotionalState `json:"emotionalState,omitempty"`
	Evidence        EvidenceLevel  `json:"evidence,omitempty"`
	Pressure        Pressure       `json:"pressure,omitempty"`
	Alternatives    []string       `json:"alternatives,omitempty"`
	Plan            []string       `json:"plan,omitempty"`
}

// Title returns the trimmed decision text, or UntitledDecision.
func (d Draft) Title() string {
	if t := strings.TrimSpace(d.DecisionText); t != "" {
		return t
	}
	return UntitledDecision
}

// Input resolves the draft into engine factors.
func (d Draft) Input() (DecisionInput, error) {
	in := DecisionInput{Reversibility: d.Reversibility}
	if in.Reversibility == "" {
		in.Reversibility = Semi
	}

	switch {
	case d.Evidence != "":
		in.Conviction = d.Evidence.Conviction()
	default:
		in.Conviction = GuidedConviction
	}

	switch {
	case d.CostLevel != "":
		in.CostIfWrong = d.CostLevel.CostIfWrong()
	case d.CostIfWrong == nil:
		return DecisionInput{}, ErrIncompleteDraft
	}

	switch {
	case d.Pressure != "":
		in.Energy = d.Pressure.Energy()
	case d.EmotionalState != "":
		in.Energy = d.EmotionalState.Energy()
	case d.Energy == nil:
		return DecisionInput{}, ErrIncompleteDraft
	}

	if d.Conviction != nil {
		in.Conviction = *d.Conviction
	}
	if d.CostIfWrong != nil {
		in.CostIfWrong = *d.CostIfWrong
	}
	if d.Energy != nil {
		in.Energy = *d.Energy
	}
	return in, nil
}

// Levels returns the coarse answers stored alongside the decision. Drafts
// built from explicit factors get the closest level.
func (d Draft) Levels() (CostLevel, EmotionalState) {
	cost := d.CostLevel
	if cost == "" {
		cost = costLevelFor(d.CostIfWrong)
	}
	state := d.EmotionalState
	if state == "" {
		switch {
		case d.Pressure != "":
			state = d.Pressure.EmotionalState()
		default:
			state = emotionalStateFor(d.Energy)
		}
	}
	return cost, state
}

// CleanAlternatives drops blank alternatives.
func (d Draft) CleanAlternatives() []string {
	var out []string
	for _, a := range d.Alternatives {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func costLevelFor(v *int) CostLevel {
	switch {
	case v == nil:
		return CostMedio
	case *v <= 4:
		return CostBajo
	case *v >= 8:
		return CostAlto
	}
	return CostMedio
}

func emotionalStateFor(v *int) EmotionalState {
	switch {
	case v == nil, *v >= 0:
		return StateCalmado
	case *v <= -4:
		return StateAnsioso
	}
	return StateBajoPresion
}
