package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/decision-fitness/internal/db"
	"github.com/thebtf/decision-fitness/pkg/models"
)

// StorageKey is the document key. Per-user documents append ":<userID>".
const StorageKey = "decision_fitness_v1_decisions"

// Key returns the document key for a user.
func Key(userID string) string {
	if userID == "" {
		return StorageKey
	}
	return StorageKey + ":" + userID
}

// Store keeps each user's decisions as a JSON array, newest first.
// Every write rewrites the whole document.
type Store struct {
	kv KV
	mu sync.Mutex
}

// NewStore creates a store over kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load returns the user's decisions. Missing, malformed or non-array
// documents read as an empty history; malformed elements are skipped.
func (s *Store) Load(ctx context.Context, userID string) ([]models.SavedDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, userID)
}

func (s *Store) load(ctx context.Context, userID string) ([]models.SavedDecision, error) {
	key := Key(userID)
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return []models.SavedDecision{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Ignoring unreadable decision document")
		return []models.SavedDecision{}, nil
	}

	out := make([]models.SavedDecision, 0, len(raw))
	for i, item := range raw {
		var d models.SavedDecision
		if err := json.Unmarshal(item, &d); err != nil || d.ID == "" {
			log.Warn().Err(err).Str("key", key).Int("index", i).Msg("Skipping malformed decision")
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) save(ctx context.Context, userID string, decisions []models.SavedDecision) error {
	data, err := json.Marshal(decisions)
	if err != nil {
		return fmt.Errorf("encode decisions: %w", err)
	}
	if err := s.kv.Set(ctx, Key(userID), data); err != nil {
		return fmt.Errorf("write %s: %w", Key(userID), err)
	}
	return nil
}

// Count returns how many decisions the user has.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	decisions, err := s.Load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(decisions), nil
}

// Create prepends the decision. The questionnaire draft is not kept here;
// the document only holds what the journal renders.
func (s *Store) Create(ctx context.Context, userID string, d models.SavedDecision, _ models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	decisions, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	for _, existing := range decisions {
		if existing.ID == d.ID {
			return fmt.Errorf("decision %s already exists", d.ID)
		}
	}
	decisions = append([]models.SavedDecision{d.Clone()}, decisions...)
	return s.save(ctx, userID, decisions)
}

// SaveFollowUp replaces the decision's follow-up.
func (s *Store) SaveFollowUp(ctx context.Context, userID, decisionID string, fu models.FollowUp) error {
	return s.update(ctx, userID, decisionID, func(d *models.SavedDecision) {
		d.FollowUp = &fu
	})
}

// SavePlan replaces the decision's action plan.
func (s *Store) SavePlan(ctx context.Context, userID, decisionID string, plan models.ActionPlan) error {
	return s.update(ctx, userID, decisionID, func(d *models.SavedDecision) {
		d.ActionPlan = plan.Clone()
	})
}

// SaveCheckIn replaces the decision's check-in.
func (s *Store) SaveCheckIn(ctx context.Context, userID, decisionID string, ci models.CheckIn) error {
	return s.update(ctx, userID, decisionID, func(d *models.SavedDecision) {
		d.CheckIn = &ci
	})
}

func (s *Store) update(ctx context.Context, userID, decisionID string, fn func(*models.SavedDecision)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	decisions, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	for i := range decisions {
		if decisions[i].ID == decisionID {
			fn(&decisions[i])
			return s.save(ctx, userID, decisions)
		}
	}
	return fmt.Errorf("decision %s: %w", decisionID, db.ErrDecisionNotFound)
}
