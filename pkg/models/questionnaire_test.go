package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestDraft_GuidedFlow(t *testing.T) {
	tests := []struct {
		cost  CostLevel
		state EmotionalState
		want  DecisionInput
	}{
		{CostBajo, StateCalmado, DecisionInput{Reversibility: Semi, Conviction: 6, CostIfWrong: 3, Energy: 0}},
		{CostMedio, StateBajoPresion, DecisionInput{Reversibility: Semi, Conviction: 6, CostIfWrong: 6, Energy: -3}},
		{CostAlto, StateAnsioso, DecisionInput{Reversibility: Semi, Conviction: 6, CostIfWrong: 9, Energy: -4}},
	}

	for _, tt := range tests {
		t.Run(string(tt.cost)+"/"+string(tt.state), func(t *testing.T) {
			d := Draft{Reversibility: Semi, CostLevel: tt.cost, EmotionalState: tt.state}
			got, err := d.Input()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDraft_QuickForm(t *testing.T) {
	d := Draft{Reversibility: Irreversible, Evidence: EvidenceAlta, CostLevel: CostBajo, Pressure: PressurePresion}

	got, err := d.Input()
	require.NoError(t, err)
	assert.Equal(t, DecisionInput{Reversibility: Irreversible, Conviction: 9, CostIfWrong: 3, Energy: -4}, got)

	cost, state := d.Levels()
	assert.Equal(t, CostBajo, cost)
	assert.Equal(t, StateBajoPresion, state)
}

func TestDraft_ExplicitFactorsOverrideLevels(t *testing.T) {
	d := Draft{
		Reversibility: Reversible,
		CostLevel:     CostAlto,
		Conviction:    intPtr(8),
		CostIfWrong:   intPtr(2),
		Energy:        intPtr(3),
	}

	got, err := d.Input()
	require.NoError(t, err)
	assert.Equal(t, DecisionInput{Reversibility: Reversible, Conviction: 8, CostIfWrong: 2, Energy: 3}, got)
}

func TestDraft_ExplicitFactorsDeriveLevels(t *testing.T) {
	d := Draft{Conviction: intPtr(8), CostIfWrong: intPtr(9), Energy: intPtr(-4)}

	cost, state := d.Levels()
	assert.Equal(t, CostAlto, cost)
	assert.Equal(t, StateAnsioso, state)
}

func TestDraft_Incomplete(t *testing.T) {
	_, err := Draft{Reversibility: Semi, EmotionalState: StateCalmado}.Input()
	assert.ErrorIs(t, err, ErrIncompleteDraft)

	_, err = Draft{Reversibility: Semi, CostLevel: CostBajo}.Input()
	assert.ErrorIs(t, err, ErrIncompleteDraft)
}

func TestDraft_DefaultsReversibilityToSemi(t *testing.T) {
	got, err := Draft{CostLevel: CostMedio, EmotionalState: StateCalmado}.Input()
	require.NoError(t, err)
	assert.Equal(t, Semi, got.Reversibility)
}

func TestDraft_TitleAndAlternatives(t *testing.T) {
	assert.Equal(t, UntitledDecision, Draft{DecisionText: "   "}.Title())
	assert.Equal(t, "Comprar bici", Draft{DecisionText: " Comprar bici "}.Title())

	d := Draft{Alternatives: []string{"", " quedarme ", "  ", "mudarme"}}
	assert.Equal(t, []string{"quedarme", "mudarme"}, d.CleanAlternatives())
}

func TestDecisionRecord_StoredInput(t *testing.T) {
	t.Run("numeric factors", func(t *testing.T) {
		r := DecisionRecord{Reversibility: Semi, Conviction: intPtr(9), CostIfWrong: intPtr(2), Energy: intPtr(1), CostLevel: CostAlto}
		full, ok := r.StoredInput().Complete()
		require.True(t, ok)
		assert.Equal(t, DecisionInput{Reversibility: Semi, Conviction: 9, CostIfWrong: 2, Energy: 1}, full)
	})

	t.Run("levels only", func(t *testing.T) {
		r := DecisionRecord{Reversibility: Irreversible, CostLevel: CostAlto, EmotionalState: StateAnsioso}
		full, ok := r.StoredInput().Complete()
		require.True(t, ok)
		assert.Equal(t, DecisionInput{Reversibility: Irreversible, Conviction: 6, CostIfWrong: 9, Energy: -4}, full)
	})

	t.Run("unknown levels", func(t *testing.T) {
		r := DecisionRecord{Reversibility: Semi}
		full, _ := r.StoredInput().Complete()
		assert.Equal(t, 6, full.CostIfWrong)
		assert.Equal(t, -3, full.Energy)
	})
}

func TestDecisionType_OrOtra(t *testing.T) {
	assert.Equal(t, TypeSalud, TypeSalud.OrOtra())
	assert.Equal(t, TypeOtra, DecisionType("viaje").OrOtra())
	assert.Equal(t, TypeOtra, DecisionType("").OrOtra())
}
