package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/thebtf/decision-fitness/internal/analytics"
	"github.com/thebtf/decision-fitness/internal/playbook"
	"github.com/thebtf/decision-fitness/internal/scoring"
	"github.com/thebtf/decision-fitness/pkg/models"
)

// Idle eviction defaults.
const (
	DefaultMaxIdle       = 30 * time.Minute
	DefaultEvictInterval = 5 * time.Minute
)

// MaxPlanItems caps the number of action plan items.
const MaxPlanItems = 5

// errUnchanged lets a change report that nothing needs persisting.
var errUnchanged = errors.New("unchanged")

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIdleEviction sets how long an unused journal stays in memory.
// A non-positive maxIdle keeps every journal.
func WithIdleEviction(maxIdle time.Duration) Option {
	return func(s *Service) { s.maxIdle = maxIdle }
}

// WithIDGenerator overrides how decision and plan item IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithQuota sets the save policy. The default allows every save.
func WithQuota(q Quota) Option {
	return func(s *Service) { s.quota = q }
}

// WithPlaybook replaces the embedded playbook.
func WithPlaybook(b *playbook.Book) Option {
	return func(s *Service) { s.book = b }
}

// WithChangeHook registers fn to run after every successful write.
func WithChangeHook(fn func(userID string)) Option {
	return func(s *Service) { s.onChange = fn }
}

// Service keeps each user's decisions in memory, newest first, and writes
// every change through to the Repository. A failed write restores the
// previous in-memory state and then reloads from the repository.
type Service struct {
	repo     Repository
	book     *playbook.Book
	quota    Quota
	now      func() time.Time
	newID    func() string
	onChange func(userID string)
	journals map[string]*journal
	metrics  journalMetrics
	mu       sync.Mutex

	// idle journals are dropped from memory and reloaded on next use
	maxIdle       time.Duration
	evictInterval time.Duration
	lastEviction  time.Time
}

type journal struct {
	lastUsed  time.Time
	decisions []models.SavedDecision
	refs      int
	loaded    bool
	mu        sync.Mutex
}

func (j *journal) index(id string) int {
	for i := range j.decisions {
		if j.decisions[i].ID == id {
			return i
		}
	}
	return -1
}

// NewService creates a Service over repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		book:     playbook.Default(),
		quota:    Unlimited{},
		now:      time.Now,
		newID:    uuid.NewString,
		journals: make(map[string]*journal),
		metrics:  newJournalMetrics(),

		maxIdle:       DefaultMaxIdle,
		evictInterval: DefaultEvictInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loaded returns how many users' journals are held in memory.
func (s *Service) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.journals)
}

// Playbook returns the content book used for templates and labels.
func (s *Service) Playbook() *playbook.Book {
	return s.book
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Preview is the evaluation of a draft before it is saved.
type Preview struct {
	Title      string                  `json:"title"`
	Result     models.ClarityResult    `json:"result"`
	Rule       scoring.Rule            `json:"rule"`
	Playbook   playbook.Entry          `json:"playbook"`
	Labels     playbook.Labels         `json:"labels"`
	Plan       []string                `json:"plan"`
	Input      models.DecisionInput    `json:"input"`
	Components scoring.ScoreComponents `json:"components"`
}

// Preview scores a draft without persisting anything. Plan holds the
// draft's own steps, or the recommendation's template when it has none.
func (s *Service) Preview(draft models.Draft) (Preview, error) {
	in, err := draftInput(draft)
	if err != nil {
		return Preview{}, err
	}
	result := scoring.Evaluate(in)
	labels, _ := s.book.Labels(result.Recommendation)

	plan := planTexts(draft.Plan)
	if len(plan) == 0 {
		plan = s.book.TemplateTexts(result.Recommendation)
	}

	return Preview{
		Title:      draft.Title(),
		Input:      in,
		Result:     result,
		Components: scoring.Components(in),
		Rule:       scoring.MatchRule(in),
		Playbook:   s.book.Lookup(result.Recommendation, draft.DecisionType),
		Labels:     labels,
		Plan:       plan,
	}, nil
}

// Save scores the draft once and persists it as a new decision. The draft's
// own plan steps, if any, are stored with it in the same write.
func (s *Service) Save(ctx context.Context, owner Owner, draft models.Draft) (models.SavedDecision, error) {
	in, err := draftInput(draft)
	if err != nil {
		return models.SavedDecision{}, err
	}

	var saved models.SavedDecision
	err = s.withJournal(ctx, owner.UserID, func(j *journal) error {
		count, err := s.repo.Count(ctx, owner.UserID)
		if err != nil {
			return fmt.Errorf("count decisions: %w", err)
		}
		if err := s.quota.Allow(owner, count); err != nil {
			s.metrics.rejected.Add(ctx, 1)
			return err
		}

		now := s.now()
		stamp := models.FormatTime(now)
		result := scoring.Evaluate(in)
		d := models.SavedDecision{
			ID:             s.newID(),
			CreatedAt:      stamp,
			DecisionText:   draft.Title(),
			Recommendation: result.Recommendation,
			Reason:         result.Reason,
			DecisionType:   draft.DecisionType.OrOtra(),
			Input:          models.InputFrom(in),
			Score:          result.Score,
		}
		if texts := planTexts(draft.Plan); len(texts) > 0 {
			items := make([]models.ActionPlanItem, 0, len(texts))
			for _, text := range texts {
				items = append(items, models.ActionPlanItem{ID: s.newID(), Text: text})
			}
			d.ActionPlan = &models.ActionPlan{Items: items, CreatedAt: stamp, UpdatedAt: stamp}
		}

		j.decisions = append([]models.SavedDecision{d.Clone()}, j.decisions...)
		if err := s.repo.Create(ctx, owner.UserID, d, draft); err != nil {
			j.decisions = j.decisions[1:]
			return s.rollback(ctx, owner.UserID, j, "save decision", err)
		}
		s.metrics.write(ctx, "save decision", nil)
		saved = d
		return nil
	})
	if err != nil {
		return models.SavedDecision{}, err
	}

	s.metrics.saved.Add(ctx, 1, metric.WithAttributes(
		attribute.String("recommendation", string(saved.Recommendation)),
	))
	log.Info().
		Str("user_id", owner.UserID).
		Str("decision_id", saved.ID).
		Str("recommendation", string(saved.Recommendation)).
		Int("score", saved.Score).
		Msg("Decision saved")
	s.notify(owner.UserID)
	return saved, nil
}

// List returns copies of the user's decisions, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.SavedDecision, error) {
	var out []models.SavedDecision
	err := s.withJournal(ctx, userID, func(j *journal) error {
		out = make([]models.SavedDecision, 0, len(j.decisions))
		for _, d := range j.decisions {
			out = append(out, d.Clone())
		}
		return nil
	})
	return out, err
}

// Get returns one decision for display, creating its action plan from the
// template on first view.
func (s *Service) Get(ctx context.Context, userID, decisionID string) (models.SavedDecision, error) {
	return s.EnsureActionPlan(ctx, userID, decisionID)
}

// Dashboard computes the analytics over the user's history.
func (s *Service) Dashboard(ctx context.Context, userID string) (analytics.Dashboard, error) {
	var dash analytics.Dashboard
	err := s.withJournal(ctx, userID, func(j *journal) error {
		dash = analytics.Compute(j.decisions)
		return nil
	})
	return dash, err
}

// Reload replaces the in-memory history with the repository's.
func (s *Service) Reload(ctx context.Context, userID string) error {
	return s.withJournal(ctx, userID, func(j *journal) error {
		decisions, err := s.repo.Load(ctx, userID)
		if err != nil {
			return fmt.Errorf("reload decisions: %w", err)
		}
		j.decisions = decisions
		return nil
	})
}

// FollowUpInput is what the user reports after acting on a decision.
type FollowUpInput struct {
	ActionTaken models.ActionTaken `json:"actionTaken"`
	Outcome     models.Outcome     `json:"outcome"`
	Regret      bool               `json:"regret"`
}

// RecordFollowUp sets the decision's follow-up, replacing any earlier one.
func (s *Service) RecordFollowUp(ctx context.Context, userID, decisionID string, in FollowUpInput) (models.SavedDecision, error) {
	if !in.ActionTaken.Valid() || !in.Outcome.Valid() {
		return models.SavedDecision{}, fmt.Errorf("%w: action %q outcome %q", ErrInvalidFollowUp, in.ActionTaken, in.Outcome)
	}
	return s.mutate(ctx, userID, decisionID, "save follow-up",
		func(d *models.SavedDecision, now time.Time) error {
			d.FollowUp = &models.FollowUp{
				ActionTaken: in.ActionTaken,
				Outcome:     in.Outcome,
				Regret:      in.Regret,
				UpdatedAt:   models.FormatTime(now),
			}
			return nil
		},
		func(d models.SavedDecision) error {
			return s.repo.SaveFollowUp(ctx, userID, d.ID, *d.FollowUp)
		})
}

// CheckInInput is the 7-day reflection.
type CheckInInput struct {
	WhatChanged      string                  `json:"whatChanged"`
	ClarityDirection models.ClarityDirection `json:"clarityDirection"`
	NewData          string                  `json:"newData"`
}

// RecordCheckIn sets the decision's check-in, replacing any earlier one.
func (s *Service) RecordCheckIn(ctx context.Context, userID, decisionID string, in CheckInInput) (models.SavedDecision, error) {
	if !in.ClarityDirection.Valid() {
		return models.SavedDecision{}, fmt.Errorf("%w: clarity direction %q", ErrInvalidCheckIn, in.ClarityDirection)
	}
	return s.mutate(ctx, userID, decisionID, "save check-in",
		func(d *models.SavedDecision, now time.Time) error {
			d.CheckIn = &models.CheckIn{
				WhatChanged:      strings.TrimSpace(in.WhatChanged),
				ClarityDirection: in.ClarityDirection,
				NewData:          strings.TrimSpace(in.NewData),
				CompletedAt:      models.FormatTime(now),
			}
			return nil
		},
		func(d models.SavedDecision) error {
			return s.repo.SaveCheckIn(ctx, userID, d.ID, *d.CheckIn)
		})
}

// EnsureActionPlan creates the template plan when the decision has none.
// An existing plan is returned untouched and nothing is written.
func (s *Service) EnsureActionPlan(ctx context.Context, userID, decisionID string) (models.SavedDecision, error) {
	return s.mutatePlan(ctx, userID, decisionID, "create action plan",
		func(d *models.SavedDecision, now time.Time) error {
			if d.ActionPlan != nil {
				return errUnchanged
			}
			d.ActionPlan = s.book.Template(d.Recommendation, now, s.newID)
			return nil
		})
}

// AddPlanItem appends an item, creating the template plan first when
// needed. Empty text is allowed so a blank row can be edited later.
func (s *Service) AddPlanItem(ctx context.Context, userID, decisionID, text string) (models.SavedDecision, error) {
	return s.mutatePlan(ctx, userID, decisionID, "add plan item",
		func(d *models.SavedDecision, now time.Time) error {
			if d.ActionPlan == nil {
				d.ActionPlan = s.book.Template(d.Recommendation, now, s.newID)
			}
			if len(d.ActionPlan.Items) >= MaxPlanItems {
				return ErrPlanFull
			}
			d.ActionPlan.Items = append(d.ActionPlan.Items, models.ActionPlanItem{ID: s.newID(), Text: text})
			d.ActionPlan.UpdatedAt = models.FormatTime(now)
			return nil
		})
}

// PlanItemPatch is a partial item update; nil fields are left alone.
type PlanItemPatch struct {
	Text *string `json:"text,omitempty"`
	Done *bool   `json:"done,omitempty"`
}

// UpdatePlanItem applies patch to one item.
func (s *Service) UpdatePlanItem(ctx context.Context, userID, decisionID, itemID string, patch PlanItemPatch) (models.SavedDecision, error) {
	return s.updateItem(ctx, userID, decisionID, itemID, "update plan item", func(item *models.ActionPlanItem) {
		if patch.Text != nil {
			item.Text = *patch.Text
		}
		if patch.Done != nil {
			item.Done = *patch.Done
		}
	})
}

// EditPlanItem replaces an item's text.
func (s *Service) EditPlanItem(ctx context.Context, userID, decisionID, itemID, text string) (models.SavedDecision, error) {
	return s.UpdatePlanItem(ctx, userID, decisionID, itemID, PlanItemPatch{Text: &text})
}

// TogglePlanItem flips an item's done flag.
func (s *Service) TogglePlanItem(ctx context.Context, userID, decisionID, itemID string) (models.SavedDecision, error) {
	return s.updateItem(ctx, userID, decisionID, itemID, "toggle plan item", func(item *models.ActionPlanItem) {
		item.Done = !item.Done
	})
}

// RestorePlanTemplate discards every item, completed or not, and starts
// over from the recommendation's template.
func (s *Service) RestorePlanTemplate(ctx context.Context, userID, decisionID string) (models.SavedDecision, error) {
	return s.mutatePlan(ctx, userID, decisionID, "restore plan template",
		func(d *models.SavedDecision, now time.Time) error {
			d.ActionPlan = s.book.Template(d.Recommendation, now, s.newID)
			return nil
		})
}

func (s *Service) updateItem(ctx context.Context, userID, decisionID, itemID, op string, fn func(*models.ActionPlanItem)) (models.SavedDecision, error) {
	return s.mutatePlan(ctx, userID, decisionID, op,
		func(d *models.SavedDecision, now time.Time) error {
			if d.ActionPlan == nil {
				return ErrItemNotFound
			}
			for i := range d.ActionPlan.Items {
				if d.ActionPlan.Items[i].ID == itemID {
					fn(&d.ActionPlan.Items[i])
					d.ActionPlan.UpdatedAt = models.FormatTime(now)
					return nil
				}
			}
			return ErrItemNotFound
		})
}

func (s *Service) mutatePlan(ctx context.Context, userID, decisionID, op string, change func(*models.SavedDecision, time.Time) error) (models.SavedDecision, error) {
	return s.mutate(ctx, userID, decisionID, op, change, func(d models.SavedDecision) error {
		return s.repo.SavePlan(ctx, userID, d.ID, *d.ActionPlan)
	})
}

// mutate applies change to one decision and persists it. The in-memory
// decision is restored when change or persist fails.
func (s *Service) mutate(
	ctx context.Context,
	userID, decisionID, op string,
	change func(d *models.SavedDecision, now time.Time) error,
	persist func(d models.SavedDecision) error,
) (models.SavedDecision, error) {
	var out models.SavedDecision
	written := false
	err := s.withJournal(ctx, userID, func(j *journal) error {
		i := j.index(decisionID)
		if i < 0 {
			return fmt.Errorf("decision %s: %w", decisionID, ErrDecisionNotFound)
		}

		before := j.decisions[i].Clone()
		if err := change(&j.decisions[i], s.now()); err != nil {
			j.decisions[i] = before
			if errors.Is(err, errUnchanged) {
				out = before
				return nil
			}
			return err
		}

		after := j.decisions[i].Clone()
		if err := persist(after); err != nil {
			j.decisions[i] = before
			return s.rollback(ctx, userID, j, op, err)
		}
		s.metrics.write(ctx, op, nil)
		out = after
		written = true
		return nil
	})
	if err != nil {
		return models.SavedDecision{}, err
	}
	if written {
		s.notify(userID)
	}
	return out, nil
}

// rollback runs after the in-memory state was restored: it records the
// failure and resyncs with the repository when possible.
func (s *Service) rollback(ctx context.Context, userID string, j *journal, op string, cause error) error {
	s.metrics.write(ctx, op, cause)
	log.Error().Err(cause).Str("user_id", userID).Str("op", op).Msg("Journal write failed, rolled back")

	if decisions, err := s.repo.Load(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Reload after failed write failed")
	} else {
		j.decisions = decisions
	}
	return fmt.Errorf("%s: %w", op, cause)
}

// withJournal runs fn with the user's journal locked and loaded.
func (s *Service) withJournal(ctx context.Context, userID string, fn func(*journal) error) error {
	s.mu.Lock()
	now := s.now()
	s.evictIdleLocked(now)
	j, ok := s.journals[userID]
	if !ok {
		j = &journal{}
		s.journals[userID] = j
	}
	j.refs++
	j.lastUsed = now
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		j.refs--
		s.mu.Unlock()
	}()

	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.loaded {
		decisions, err := s.repo.Load(ctx, userID)
		if err != nil {
			return fmt.Errorf("load decisions: %w", err)
		}
		j.decisions = decisions
		j.loaded = true
	}
	return fn(j)
}

// evictIdleLocked drops journals nobody is using that have been idle
// longer than maxIdle. It runs at most once per evictInterval.
func (s *Service) evictIdleLocked(now time.Time) {
	if s.maxIdle <= 0 || now.Sub(s.lastEviction) < s.evictInterval {
		return
	}
	s.lastEviction = now
	for userID, j := range s.journals {
		if j.refs == 0 && now.Sub(j.lastUsed) > s.maxIdle {
			delete(s.journals, userID)
		}
	}
}

func (s *Service) notify(userID string) {
	if s.onChange != nil {
		s.onChange(userID)
	}
}

func draftInput(draft models.Draft) (models.DecisionInput, error) {
	in, err := draft.Input()
	if err != nil {
		return models.DecisionInput{}, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	if !in.Reversibility.Valid() {
		return models.DecisionInput{}, fmt.Errorf("%w: reversibility %q", ErrInvalidDraft, in.Reversibility)
	}
	return in, nil
}

// planTexts keeps the non-blank steps, at most MaxPlanItems.
func planTexts(steps []string) []string {
	var out []string
	for _, step := range steps {
		if step = strings.TrimSpace(step); step != "" {
			out = append(out, step)
		}
		if len(out) == MaxPlanItems {
			break
		}
	}
	return out
}
