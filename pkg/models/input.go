package models

import (
	"math"
	"strconv"

	json "github.com/goccy/go-json"
)

// InputShape tells which stored input layout a record was read from.
type InputShape string

const (
	// ShapeModern has conviction, costIfWrong and energy.
	ShapeModern InputShape = "modern"
	// ShapeLegacy used at least one of doubt, financialImpact or emotionalEnergy.
	ShapeLegacy InputShape = "legacy"
	// ShapePartial is missing one or more factors and has no legacy fields.
	ShapePartial InputShape = "partial"
)

// Placeholder is rendered for factors a stored input does not carry.
const Placeholder = "—"

// DefaultDoubt is the doubt assumed for inputs without conviction.
const DefaultDoubt = 5.0

// StoredInput is the input of a saved decision as read back from storage.
// Older records used other field names; they are resolved once when the
// record is decoded, so every consumer sees the canonical factors. Missing
// factors stay nil.
type StoredInput struct {
	Conviction    *float64
	CostIfWrong   *float64
	Energy        *float64
	Alignment     *float64
	Reversibility Reversibility
	Shape         InputShape
}

// InputFrom wraps a complete engine input.
func InputFrom(in DecisionInput) StoredInput {
	return StoredInput{
		Reversibility: in.Reversibility,
		Conviction:    floatPtr(float64(in.Conviction)),
		CostIfWrong:   floatPtr(float64(in.CostIfWrong)),
		Energy:        floatPtr(float64(in.Energy)),
		Shape:         ShapeModern,
	}
}

// NormalizeInput resolves a decoded JSON object of any accepted shape.
// Canonical names win over legacy ones; values that are not numbers are
// treated as missing.
func NormalizeInput(raw map[string]interface{}) StoredInput {
	var in StoredInput
	legacy := false

	if v, ok := raw["reversibility"].(string); ok {
		in.Reversibility = Reversibility(v)
	}

	if v := number(raw, "conviction"); v != nil {
		in.Conviction = v
	} else if d := number(raw, "doubt"); d != nil {
		in.Conviction = floatPtr(10 - *d)
		legacy = true
	}

	if v := number(raw, "costIfWrong"); v != nil {
		in.CostIfWrong = v
	} else if f := number(raw, "financialImpact"); f != nil {
		in.CostIfWrong = f
		legacy = true
	}

	if v := number(raw, "energy"); v != nil {
		in.Energy = v
	} else if e := number(raw, "emotionalEnergy"); e != nil {
		in.Energy = e
		legacy = true
	}

	in.Alignment = number(raw, "alignment")

	switch {
	case legacy:
		in.Shape = ShapeLegacy
	case in.Conviction != nil && in.CostIfWrong != nil && in.Energy != nil:
		in.Shape = ShapeModern
	default:
		in.Shape = ShapePartial
	}
	return in
}

// UnmarshalJSON never fails: anything that is not an object decodes to an
// empty partial input.
func (in *StoredInput) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = nil
	}
	*in = NormalizeInput(raw)
	return nil
}

type canonicalInput struct {
	Reversibility Reversibility `json:"reversibility,omitempty"`
	Conviction    *float64      `json:"conviction,omitempty"`
	CostIfWrong   *float64      `json:"costIfWrong,omitempty"`
	Energy        *float64      `json:"energy,omitempty"`
	Alignment     *float64      `json:"alignment,omitempty"`
}

// MarshalJSON always writes canonical field names.
func (in StoredInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(canonicalInput{
		Reversibility: in.Reversibility,
		Conviction:    in.Conviction,
		CostIfWrong:   in.CostIfWrong,
		Energy:        in.Energy,
		Alignment:     in.Alignment,
	})
}

// Doubt is 10 - conviction, or DefaultDoubt when conviction is unknown.
func (in StoredInput) Doubt() float64 {
	if in.Conviction != nil {
		return 10 - *in.Conviction
	}
	return DefaultDoubt
}

// Complete returns the engine input when every factor is present.
// Fractional legacy values are rounded half up.
func (in StoredInput) Complete() (DecisionInput, bool) {
	if in.Conviction == nil || in.CostIfWrong == nil || in.Energy == nil {
		return DecisionInput{}, false
	}
	return DecisionInput{
		Reversibility: in.Reversibility,
		Conviction:    roundHalfUp(*in.Conviction),
		CostIfWrong:   roundHalfUp(*in.CostIfWrong),
		Energy:        roundHalfUp(*in.Energy),
	}, true
}

// InputDisplay is the printable form of a stored input.
type InputDisplay struct {
	Conviccion     string `json:"conviccion"`
	Costo          string `json:"costo"`
	Energia        string `json:"energia"`
	Reversibilidad string `json:"reversibilidad"`
}

// Display renders every factor, using Placeholder for missing ones.
func (in StoredInput) Display() InputDisplay {
	rev := string(in.Reversibility)
	if rev == "" {
		rev = Placeholder
	}
	return InputDisplay{
		Conviccion:     formatFactor(in.Conviction),
		Costo:          formatFactor(in.CostIfWrong),
		Energia:        formatFactor(in.Energy),
		Reversibilidad: rev,
	}
}

func (in StoredInput) clone() StoredInput {
	c := in
	c.Conviction = copyFloat(in.Conviction)
	c.CostIfWrong = copyFloat(in.CostIfWrong)
	c.Energy = copyFloat(in.Energy)
	c.Alignment = copyFloat(in.Alignment)
	return c
}

func number(raw map[string]interface{}, key string) *float64 {
	v, ok := raw[key].(float64)
	if !ok || math.IsNaN(v) {
		return nil
	}
	return &v
}

func formatFactor(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func floatPtr(v float64) *float64 {
	return &v
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return floatPtr(*v)
}
