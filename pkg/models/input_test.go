package models

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeInput(t *testing.T, raw string) StoredInput {
	t.Helper()
	var in StoredInput
	require.NoError(t, json.Unmarshal([]byte(raw), &in))
	return in
}

func TestStoredInput_Modern(t *testing.T) {
	in := decodeInput(t, `{"reversibility":"semi","conviction":8,"costIfWrong":3,"energy":-2}`)

	assert.Equal(t, ShapeModern, in.Shape)
	assert.Equal(t, Semi, in.Reversibility)
	require.NotNil(t, in.Conviction)
	assert.Equal(t, 8.0, *in.Conviction)
	assert.Equal(t, 2.0, in.Doubt())

	full, ok := in.Complete()
	require.True(t, ok)
	assert.Equal(t, DecisionInput{Reversibility: Semi, Conviction: 8, CostIfWrong: 3, Energy: -2}, full)
}

func TestStoredInput_LegacyFieldNames(t *testing.T) {
	in := decodeInput(t, `{"doubt":3,"financialImpact":7,"emotionalEnergy":-1,"alignment":8}`)

	assert.Equal(t, ShapeLegacy, in.Shape)
	assert.Equal(t, 7.0, *in.Conviction)
	assert.Equal(t, 7.0, *in.CostIfWrong)
	assert.Equal(t, -1.0, *in.Energy)
	assert.Equal(t, 8.0, *in.Alignment)
	assert.Equal(t, 3.0, in.Doubt())
}

func TestStoredInput_CanonicalNamesWinOverLegacy(t *testing.T) {
	in := decodeInput(t, `{"conviction":9,"doubt":9,"costIfWrong":2,"financialImpact":10,"energy":1,"emotionalEnergy":-5}`)

	assert.Equal(t, ShapeModern, in.Shape)
	assert.Equal(t, 9.0, *in.Conviction)
	assert.Equal(t, 2.0, *in.CostIfWrong)
	assert.Equal(t, 1.0, *in.Energy)
	assert.Equal(t, 1.0, in.Doubt())
}

func TestStoredInput_PartialAndMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"string", `"hello"`},
		{"array", `[1,2,3]`},
		{"non numeric factors", `{"conviction":"7","energy":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := decodeInput(t, tt.raw)
			assert.Equal(t, ShapePartial, in.Shape)
			assert.Nil(t, in.Conviction)
			assert.Equal(t, DefaultDoubt, in.Doubt())
			_, ok := in.Complete()
			assert.False(t, ok)
		})
	}
}

func TestStoredInput_Display(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want InputDisplay
	}{
		{
			name: "modern",
			raw:  `{"reversibility":"irreversible","conviction":6,"costIfWrong":9,"energy":-4}`,
			want: InputDisplay{Conviccion: "6", Costo: "9", Energia: "-4", Reversibilidad: "irreversible"},
		},
		{
			name: "legacy doubt inverted",
			raw:  `{"doubt":2.5,"financialImpact":4}`,
			want: InputDisplay{Conviccion: "7.5", Costo: "4", Energia: "—", Reversibilidad: "—"},
		},
		{
			name: "missing everything",
			raw:  `{}`,
			want: InputDisplay{Conviccion: "—", Costo: "—", Energia: "—", Reversibilidad: "—"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeInput(t, tt.raw).Display())
		})
	}
}

func TestStoredInput_MarshalWritesCanonicalNames(t *testing.T) {
	in := decodeInput(t, `{"reversibility":"semi","doubt":4,"financialImpact":6,"emotionalEnergy":0}`)

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reversibility":"semi","conviction":6,"costIfWrong":6,"energy":0}`, string(data))

	again := decodeInput(t, string(data))
	assert.Equal(t, ShapeModern, again.Shape)
	assert.Equal(t, in.Doubt(), again.Doubt())
}

func TestStoredInput_CompleteRoundsHalfUp(t *testing.T) {
	in := decodeInput(t, `{"conviction":6.5,"costIfWrong":2.4,"energy":-2.5}`)

	full, ok := in.Complete()
	require.True(t, ok)
	assert.Equal(t, 7, full.Conviction)
	assert.Equal(t, 2, full.CostIfWrong)
	assert.Equal(t, -2, full.Energy)
}

func TestSavedDecision_DecodeTolerance(t *testing.T) {
	raw := `{
		"id":"d1","createdAt":"2026-01-02T03:04:05.000Z","decisionText":"Cambiar de trabajo",
		"input":{"doubt":3},"score":61,"recommendation":"ESPERAR_7_DIAS","reason":"r",
		"followUp":{"actionTaken":"actue","regret":true,"outcome":"peor","updatedAt":"2026-01-03T00:00:00.000Z"}
	}`

	var d SavedDecision
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	assert.Equal(t, "d1", d.ID)
	assert.Equal(t, 7.0, *d.Input.Conviction)
	require.NotNil(t, d.FollowUp)
	assert.True(t, d.FollowUp.Regret)
	assert.Nil(t, d.ActionPlan)
	assert.Equal(t, 2026, d.Created().Year())
}

func TestSavedDecision_CloneIsDeep(t *testing.T) {
	d := SavedDecision{
		ID:         "d1",
		Input:      InputFrom(DecisionInput{Reversibility: Semi, Conviction: 5, CostIfWrong: 5, Energy: 0}),
		FollowUp:   &FollowUp{ActionTaken: ActionActue},
		ActionPlan: &ActionPlan{Items: []ActionPlanItem{{ID: "a", Text: "uno"}}},
	}

	c := d.Clone()
	c.ActionPlan.Items[0].Done = true
	c.FollowUp.Regret = true
	*c.Input.Conviction = 9

	assert.False(t, d.ActionPlan.Items[0].Done)
	assert.False(t, d.FollowUp.Regret)
	assert.Equal(t, 5.0, *d.Input.Conviction)
}
