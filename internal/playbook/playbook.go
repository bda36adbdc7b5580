// Package playbook maps recommendations to user-facing explanatory content:
// per-category playbook entries, short labels, and action plan templates.
//
// Content lives in playbook.yaml, embedded at build time and parsed once.
package playbook

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/decision-fitness/pkg/models"
)

//go:embed playbook.yaml
var defaultContent []byte

// Entry is the explanation shown for a recommendation in a decision category.
type Entry struct {
	Diagnosis   string   `yaml:"diagnosis" json:"diagnosis"`
	ActionTitle string   `yaml:"action_title" json:"actionTitle"`
	NextStep    string   `yaml:"next_step" json:"nextStep"`
	Steps       []string `yaml:"steps" json:"playbookSteps"`
}

// Labels are the short per-recommendation strings.
type Labels struct {
	Label     string `yaml:"label" json:"label"`
	Mode      string `yaml:"mode" json:"mode"`
	Friendly  string `yaml:"friendly" json:"friendly"`
	FirstStep string `yaml:"first_step" json:"firstStep"`
	SmallStep string `yaml:"small_step" json:"smallStep"`
}

type recommendationContent struct {
	Types    map[models.DecisionType]Entry `yaml:"types"`
	Labels   `yaml:",inline"`
	Template []string `yaml:"template"`
}

type followUpContent struct {
	ActionTaken map[models.ActionTaken]string `yaml:"action_taken"`
	Outcome     map[models.Outcome]string     `yaml:"outcome"`
}

// Book is a parsed content document.
type Book struct {
	recommendations map[models.Recommendation]recommendationContent
	followUp        followUpContent
	fallback        Entry
}

type document struct {
	Recommendations map[models.Recommendation]recommendationContent `yaml:"recommendations"`
	FollowUp        followUpContent                                 `yaml:"follow_up"`
	Fallback        Entry                                           `yaml:"fallback"`
}

// Parse reads a content document. Every recommendation must cover every
// decision type and carry a non-empty template.
func Parse(data []byte) (*Book, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse playbook: %w", err)
	}

	for _, rec := range models.Recommendations {
		content, ok := doc.Recommendations[rec]
		if !ok {
			return nil, fmt.Errorf("playbook: missing recommendation %s", rec)
		}
		if len(content.Template) == 0 {
			return nil, fmt.Errorf("playbook: %s has no template", rec)
		}
		for _, t := range models.DecisionTypes {
			if _, ok := content.Types[t]; !ok {
				return nil, fmt.Errorf("playbook: %s is missing type %s", rec, t)
			}
		}
	}

	return &Book{
		recommendations: doc.Recommendations,
		followUp:        doc.FollowUp,
		fallback:        doc.Fallback,
	}, nil
}

var (
	defaultBook     *Book
	defaultBookOnce sync.Once
)

// Default returns the embedded content. It panics if the embedded document
// is invalid, which the package tests rule out.
func Default() *Book {
	defaultBookOnce.Do(func() {
		b, err := Parse(defaultContent)
		if err != nil {
			panic(err)
		}
		defaultBook = b
	})
	return defaultBook
}

// Lookup returns the entry for a recommendation and category. Unknown
// categories use otra; unknown recommendations get the generic entry whose
// title is the raw code.
func (b *Book) Lookup(rec models.Recommendation, t models.DecisionType) Entry {
	content, ok := b.recommendations[rec]
	if !ok {
		e := b.fallback
		e.ActionTitle = string(rec)
		e.Steps = append([]string(nil), b.fallback.Steps...)
		return e
	}
	e := content.Types[t.OrOtra()]
	e.Steps = append([]string(nil), e.Steps...)
	return e
}

// Labels returns the short strings for a recommendation; ok is false for
// unknown codes.
func (b *Book) Labels(rec models.Recommendation) (Labels, bool) {
	content, ok := b.recommendations[rec]
	return content.Labels, ok
}

// TemplateTexts returns the checklist texts for a recommendation. Unknown
// codes use the ESPERAR_7_DIAS template.
func (b *Book) TemplateTexts(rec models.Recommendation) []string {
	content, ok := b.recommendations[rec]
	if !ok {
		content = b.recommendations[models.RecEsperar7Dias]
	}
	return append([]string(nil), content.Template...)
}

// Template builds a fresh action plan from the recommendation's checklist.
// Every item is pending and CreatedAt equals UpdatedAt.
func (b *Book) Template(rec models.Recommendation, now time.Time, newID func() string) *models.ActionPlan {
	texts := b.TemplateTexts(rec)
	items := make([]models.ActionPlanItem, 0, len(texts))
	for _, text := range texts {
		items = append(items, models.ActionPlanItem{ID: newID(), Text: text})
	}
	stamp := models.FormatTime(now)
	return &models.ActionPlan{Items: items, CreatedAt: stamp, UpdatedAt: stamp}
}

// ActionLabel returns the display label of a follow-up action.
func (b *Book) ActionLabel(a models.ActionTaken) string {
	if l, ok := b.followUp.ActionTaken[a]; ok {
		return l
	}
	return string(a)
}

// OutcomeLabel returns the display label of a follow-up outcome.
func (b *Book) OutcomeLabel(o models.Outcome) string {
	if l, ok := b.followUp.Outcome[o]; ok {
		return l
	}
	return string(o)
}
