// Package models contains domain models for decision-fitness.
package models

import (
	"time"
)

// Reversibility describes how recoverable a wrong choice is.
type Reversibility string

const (
	Reversible   Reversibility = "reversible"
	Semi         Reversibility = "semi"
	Irreversible Reversibility = "irreversible"
)

// Valid reports whether r is a known reversibility level.
func (r Reversibility) Valid() bool {
	switch r {
	case Reversible, Semi, Irreversible:
		return true
	}
	return false
}

// Recommendation is the discrete action recommended for a decision.
type Recommendation string

const (
	// RecActuarHoy means act today with a small step.
	RecActuarHoy Recommendation = "ACTUAR_HOY"
	// RecPrepararPlan means prepare a plan before acting.
	RecPrepararPlan Recommendation = "PREPARAR_PLAN"
	// RecEsperar7Dias means wait seven days and review.
	RecEsperar7Dias Recommendation = "ESPERAR_7_DIAS"
	// RecDescartar means do not move forward.
	RecDescartar Recommendation = "DESCARTAR"
)

// Recommendations lists every recommendation code in display order.
var Recommendations = []Recommendation{RecActuarHoy, RecPrepararPlan, RecEsperar7Dias, RecDescartar}

// Valid reports whether r is one of the four recommendation codes.
func (r Recommendation) Valid() bool {
	switch r {
	case RecActuarHoy, RecPrepararPlan, RecEsperar7Dias, RecDescartar:
		return true
	}
	return false
}

// DecisionType is the category of a decision, used only to pick explanatory text.
type DecisionType string

const (
	TypeCompra   DecisionType = "compra"
	TypeCarrera  DecisionType = "carrera"
	TypeRelacion DecisionType = "relacion"
	TypeProyecto DecisionType = "proyecto"
	TypeSalud    DecisionType = "salud"
	TypeOtra     DecisionType = "otra"
)

// DecisionTypes lists every decision type.
var DecisionTypes = []DecisionType{TypeCompra, TypeCarrera, TypeRelacion, TypeProyecto, TypeSalud, TypeOtra}

// Valid reports whether t is a known decision type.
func (t DecisionType) Valid() bool {
	switch t {
	case TypeCompra, TypeCarrera, TypeRelacion, TypeProyecto, TypeSalud, TypeOtra:
		return true
	}
	return false
}

// OrOtra returns t, or TypeOtra when t is empty or unknown.
func (t DecisionType) OrOtra() DecisionType {
	if t.Valid() {
		return t
	}
	return TypeOtra
}

// DecisionInput holds the four factors that drive scoring.
// Conviction and CostIfWrong are expected in [1,10], Energy in [-5,5].
type DecisionInput struct {
	Reversibility Reversibility `json:"reversibility"`
	Conviction    int           `json:"conviction"`
	CostIfWrong   int           `json:"costIfWrong"`
	Energy        int           `json:"energy"`
}

// ClarityResult is the engine output for one DecisionInput.
type ClarityResult struct {
	Recommendation Recommendation `json:"recommendation"`
	Reason         string         `json:"reason"`
	Score          int            `json:"score"`
}

// ActionTaken is what the user actually did after deciding.
type ActionTaken string

const (
	ActionActue    ActionTaken = "actue"
	ActionEspere   ActionTaken = "espere"
	ActionDescarte ActionTaken = "descarte"
)

// Valid reports whether a is a known action.
func (a ActionTaken) Valid() bool {
	switch a {
	case ActionActue, ActionEspere, ActionDescarte:
		return true
	}
	return false
}

// Outcome is how things turned out compared to before.
type Outcome string

const (
	OutcomeMejor Outcome = "mejor"
	OutcomeIgual Outcome = "igual"
	OutcomePeor  Outcome = "peor"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeMejor, OutcomeIgual, OutcomePeor:
		return true
	}
	return false
}

// FollowUp records what happened after a decision. At most one per decision.
type FollowUp struct {
	ActionTaken ActionTaken `json:"actionTaken"`
	Outcome     Outcome     `json:"outcome"`
	UpdatedAt   string      `json:"updatedAt"`
	Regret      bool        `json:"regret"`
}

// ActionPlanItem is one checklist entry.
type ActionPlanItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// ActionPlan is an ordered checklist attached to a decision.
type ActionPlan struct {
	CreatedAt string           `json:"createdAt"`
	UpdatedAt string           `json:"updatedAt"`
	Items     []ActionPlanItem `json:"items"`
}

// Clone returns a deep copy of the plan.
func (p *ActionPlan) Clone() *ActionPlan {
	if p == nil {
		return nil
	}
	c := *p
	c.Items = append([]ActionPlanItem(nil), p.Items...)
	return &c
}

// ClarityDirection is the self-reported clarity change at the 7-day check-in.
type ClarityDirection string

const (
	ClaritySubio ClarityDirection = "subio"
	ClarityIgual ClarityDirection = "igual"
	ClarityBajo  ClarityDirection = "bajo"
)

// Valid reports whether d is a known direction.
func (d ClarityDirection) Valid() bool {
	switch d {
	case ClaritySubio, ClarityIgual, ClarityBajo:
		return true
	}
	return false
}

// CheckIn is the 7-day reflection on a saved decision.
type CheckIn struct {
	WhatChanged      string           `json:"whatChanged"`
	ClarityDirection ClarityDirection `json:"clarityDirection"`
	NewData          string           `json:"newData"`
	CompletedAt      string           `json:"completedAt"`
}

// SavedDecision is the persisted decision entity.
// Score, Recommendation and Reason are a snapshot taken at save time.
type SavedDecision struct {
	FollowUp       *FollowUp      `json:"followUp,omitempty"`
	ActionPlan     *ActionPlan    `json:"actionPlan,omitempty"`
	CheckIn        *CheckIn       `json:"checkIn,omitempty"`
	ID             string         `json:"id"`
	CreatedAt      string         `json:"createdAt"`
	DecisionText   string         `json:"decisionText"`
	Recommendation Recommendation `json:"recommendation"`
	Reason         string         `json:"reason"`
	DecisionType   DecisionType   `json:"decisionType,omitempty"`
	Input          StoredInput    `json:"input"`
	Score          int            `json:"score"`
}

// Clone returns a deep copy so callers can snapshot before mutating.
func (d SavedDecision) Clone() SavedDecision {
	c := d
	if d.FollowUp != nil {
		f := *d.FollowUp
		c.FollowUp = &f
	}
	if d.CheckIn != nil {
		ci := *d.CheckIn
		c.CheckIn = &ci
	}
	c.ActionPlan = d.ActionPlan.Clone()
	c.Input = d.Input.clone()
	return c
}

// Created parses CreatedAt; the zero time is returned for unparseable values.
func (d SavedDecision) Created() time.Time {
	t, _ := ParseTime(d.CreatedAt)
	return t
}

// TimeLayout is the timestamp format used for every stored time string
// (ISO-8601 UTC with millisecond precision).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in TimeLayout, always in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts any RFC 3339 timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
