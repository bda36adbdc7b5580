package models

// DecisionRecord is a decision row as exchanged with a relational store.
// Rows written before numeric factors were stored only carry the coarse
// questionnaire levels; Conviction, CostIfWrong and Energy are nil there.
type DecisionRecord struct {
	Conviction      *int           `json:"conviction,omitempty"`
	CostIfWrong     *int           `json:"cost_if_wrong,omitempty"`
	Energy          *int           `json:"energy,omitempty"`
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	DecisionText    string         `json:"decision_text"`
	Objective       string         `json:"objective,omitempty"`
	EvidenceFor     string         `json:"evidence_for,omitempty"`
	EvidenceMissing string         `json:"evidence_missing,omitempty"`
	CostLevel       CostLevel      `json:"cost_level,omitempty"`
	Reversibility   Reversibility  `json:"reversibility"`
	EmotionalState  EmotionalState `json:"emotional_state,omitempty"`
	Recommendation  Recommendation `json:"recommendation"`
	ReasonText      string         `json:"reason_text"`
	DecisionType    DecisionType   `json:"decision_type,omitempty"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
	Alternatives    []string       `json:"alternatives,omitempty"`
	Score           int            `json:"score"`
}

// StoredInput maps the row back to scoring factors. Level-only rows use the
// guided questionnaire mapping.
func (r DecisionRecord) StoredInput() StoredInput {
	conviction := GuidedConviction
	if r.Conviction != nil {
		conviction = *r.Conviction
	}
	cost := r.CostLevel.CostIfWrong()
	if r.CostIfWrong != nil {
		cost = *r.CostIfWrong
	}
	energy := r.EmotionalState.Energy()
	if r.Energy != nil {
		energy = *r.Energy
	}
	return InputFrom(DecisionInput{
		Reversibility: r.Reversibility,
		Conviction:    conviction,
		CostIfWrong:   cost,
		Energy:        energy,
	})
}

// FollowUpRecord is a follow-up row.
type FollowUpRecord struct {
	ID          string      `json:"id"`
	DecisionID  string      `json:"decision_id"`
	ActionTaken ActionTaken `json:"action_taken"`
	Outcome     Outcome     `json:"outcome"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
	Regret      bool        `json:"regret"`
}

// FollowUp converts the row to the domain shape.
func (r FollowUpRecord) FollowUp() *FollowUp {
	updated := r.UpdatedAt
	if updated == "" {
		updated = r.CreatedAt
	}
	return &FollowUp{
		ActionTaken: r.ActionTaken,
		Regret:      r.Regret,
		Outcome:     r.Outcome,
		UpdatedAt:   updated,
	}
}

// ActionPlanRecord is an action plan row. Items are stored as one JSON column.
type ActionPlanRecord struct {
	ID         string           `json:"id"`
	DecisionID string           `json:"decision_id"`
	CreatedAt  string           `json:"created_at"`
	UpdatedAt  string           `json:"updated_at"`
	Items      []ActionPlanItem `json:"items"`
}

// ActionPlan converts the row to the domain shape.
func (r ActionPlanRecord) ActionPlan() *ActionPlan {
	items := append([]ActionPlanItem{}, r.Items...)
	return &ActionPlan{Items: items, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

// CheckInRecord is a 7-day check-in row, one per decision.
type CheckInRecord struct {
	DecisionID       string           `json:"decision_id"`
	WhatChanged      string           `json:"what_changed"`
	ClarityDirection ClarityDirection `json:"clarity_direction"`
	NewData          string           `json:"new_data"`
	CompletedAt      string           `json:"completed_at"`
}

// CheckIn converts the row to the domain shape.
func (r CheckInRecord) CheckIn() *CheckIn {
	return &CheckIn{
		WhatChanged:      r.WhatChanged,
		ClarityDirection: r.ClarityDirection,
		NewData:          r.NewData,
		CompletedAt:      r.CompletedAt,
	}
}
