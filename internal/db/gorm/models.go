package gorm

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/decision-fitness/pkg/models"
)

// GORM Models

// Decision represents a saved decision row.
// Field order optimized for memory alignment (fieldalignment).
type Decision struct {
	Alternatives    []string       `gorm:"serializer:json;type:text"`
	ID              string         `gorm:"primaryKey;type:varchar(64)"`
	UserID          string         `gorm:"type:varchar(128);index;not null"`
	DecisionText    string         `gorm:"type:text;not null"`
	Reversibility   string         `gorm:"type:text;not null;check:reversibility IN ('reversible', 'semi', 'irreversible')"`
	Recommendation  string         `gorm:"type:text;not null"`
	ReasonText      string         `gorm:"type:text;not null"`
	CreatedAt       string         `gorm:"not null"`
	UpdatedAt       string         `gorm:"not null"`
	Objective       sql.NullString `gorm:"type:text"`
	EvidenceFor     sql.NullString `gorm:"type:text"`
	EvidenceMissing sql.NullString `gorm:"type:text"`
	CostLevel       sql.NullString `gorm:"type:text"`
	EmotionalState  sql.NullString `gorm:"type:text"`
	DecisionType    sql.NullString `gorm:"type:text"`
	Conviction      sql.NullInt64
	CostIfWrong     sql.NullInt64
	Energy          sql.NullInt64
	Score           int   `gorm:"not null"`
	CreatedAtEpoch  int64 `gorm:"index:idx_decisions_created,sort:desc;not null"`
}

func (Decision) TableName() string { return "decisions" }

// BeforeCreate hook to ensure timestamps are set.
func (d *Decision) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if d.CreatedAt == "" {
		d.CreatedAt = models.FormatTime(now)
	}
	if d.UpdatedAt == "" {
		d.UpdatedAt = d.CreatedAt
	}
	if d.CreatedAtEpoch == 0 {
		d.CreatedAtEpoch = epochOf(d.CreatedAt, now)
	}
	return nil
}

// FollowUp is the single follow-up of a decision; a new answer replaces it.
type FollowUp struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	DecisionID  string `gorm:"type:varchar(64);uniqueIndex:idx_follow_ups_decision;not null"`
	ActionTaken string `gorm:"type:text;not null;check:action_taken IN ('actue', 'espere', 'descarte')"`
	Outcome     string `gorm:"type:text;not null;check:outcome IN ('mejor', 'igual', 'peor')"`
	CreatedAt   string `gorm:"not null"`
	UpdatedAt   string `gorm:"not null"`
	Regret      bool   `gorm:"not null"`
}

func (FollowUp) TableName() string { return "decision_follow_ups" }

// BeforeCreate hook to ensure timestamps are set.
func (f *FollowUp) BeforeCreate(tx *gorm.DB) error {
	if f.CreatedAt == "" {
		f.CreatedAt = models.FormatTime(time.Now())
	}
	if f.UpdatedAt == "" {
		f.UpdatedAt = f.CreatedAt
	}
	return nil
}

// ActionPlan stores the checklist items of a decision as one JSON column.
type ActionPlan struct {
	Items      []models.ActionPlanItem `gorm:"serializer:json;type:text"`
	ID         string                  `gorm:"primaryKey;type:varchar(64)"`
	DecisionID string                  `gorm:"type:varchar(64);uniqueIndex:idx_action_plans_decision;not null"`
	CreatedAt  string                  `gorm:"not null"`
	UpdatedAt  string                  `gorm:"not null"`
}

func (ActionPlan) TableName() string { return "decision_action_plans" }

// BeforeCreate hook to ensure timestamps are set.
func (p *ActionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.CreatedAt == "" {
		p.CreatedAt = models.FormatTime(time.Now())
	}
	if p.UpdatedAt == "" {
		p.UpdatedAt = p.CreatedAt
	}
	if p.Items == nil {
		p.Items = []models.ActionPlanItem{}
	}
	return nil
}

// CheckIn is the 7-day reflection, keyed by decision.
type CheckIn struct {
	DecisionID       string `gorm:"primaryKey;type:varchar(64)"`
	WhatChanged      string `gorm:"type:text;not null"`
	ClarityDirection string `gorm:"type:text;not null;check:clarity_direction IN ('subio', 'igual', 'bajo')"`
	NewData          string `gorm:"type:text;not null"`
	CompletedAt      string `gorm:"not null"`
}

func (CheckIn) TableName() string { return "decision_check_ins" }

// Conversions between rows and records.

func decisionFromRecord(r models.DecisionRecord) Decision {
	return Decision{
		ID:              r.ID,
		UserID:          r.UserID,
		DecisionText:    r.DecisionText,
		Objective:       sqlNullString(r.Objective),
		EvidenceFor:     sqlNullString(r.EvidenceFor),
		EvidenceMissing: sqlNullString(r.EvidenceMissing),
		CostLevel:       sqlNullString(string(r.CostLevel)),
		EmotionalState:  sqlNullString(string(r.EmotionalState)),
		DecisionType:    sqlNullString(string(r.DecisionType)),
		Reversibility:   string(r.Reversibility),
		Recommendation:  string(r.Recommendation),
		ReasonText:      r.ReasonText,
		Alternatives:    r.Alternatives,
		Conviction:      sqlNullInt(r.Conviction),
		CostIfWrong:     sqlNullInt(r.CostIfWrong),
		Energy:          sqlNullInt(r.Energy),
		Score:           r.Score,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (d Decision) record() models.DecisionRecord {
	return models.DecisionRecord{
		ID:              d.ID,
		UserID:          d.UserID,
		DecisionText:    d.DecisionText,
		Objective:       d.Objective.String,
		EvidenceFor:     d.EvidenceFor.String,
		EvidenceMissing: d.EvidenceMissing.String,
		CostLevel:       models.CostLevel(d.CostLevel.String),
		EmotionalState:  models.EmotionalState(d.EmotionalState.String),
		DecisionType:    models.DecisionType(d.DecisionType.String),
		Reversibility:   models.Reversibility(d.Reversibility),
		Recommendation:  models.Recommendation(d.Recommendation),
		ReasonText:      d.ReasonText,
		Alternatives:    d.Alternatives,
		Conviction:      intFromNull(d.Conviction),
		CostIfWrong:     intFromNull(d.CostIfWrong),
		Energy:          intFromNull(d.Energy),
		Score:           d.Score,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func followUpFromRecord(r models.FollowUpRecord) FollowUp {
	return FollowUp{
		ID:          r.ID,
		DecisionID:  r.DecisionID,
		ActionTaken: string(r.ActionTaken),
		Outcome:     string(r.Outcome),
		Regret:      r.Regret,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (f FollowUp) record() models.FollowUpRecord {
	return models.FollowUpRecord{
		ID:          f.ID,
		DecisionID:  f.DecisionID,
		ActionTaken: models.ActionTaken(f.ActionTaken),
		Outcome:     models.Outcome(f.Outcome),
		Regret:      f.Regret,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func actionPlanFromRecord(r models.ActionPlanRecord) ActionPlan {
	return ActionPlan{
		ID:         r.ID,
		DecisionID: r.DecisionID,
		Items:      append([]models.ActionPlanItem{}, r.Items...),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (p ActionPlan) record() models.ActionPlanRecord {
	return models.ActionPlanRecord{
		ID:         p.ID,
		DecisionID: p.DecisionID,
		Items:      p.Items,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func checkInFromRecord(r models.CheckInRecord) CheckIn {
	return CheckIn{
		DecisionID:       r.DecisionID,
		WhatChanged:      r.WhatChanged,
		ClarityDirection: string(r.ClarityDirection),
		NewData:          r.NewData,
		CompletedAt:      r.CompletedAt,
	}
}

func (c CheckIn) record() models.CheckInRecord {
	return models.CheckInRecord{
		DecisionID:       c.DecisionID,
		WhatChanged:      c.WhatChanged,
		ClarityDirection: models.ClarityDirection(c.ClarityDirection),
		NewData:          c.NewData,
		CompletedAt:      c.CompletedAt,
	}
}
