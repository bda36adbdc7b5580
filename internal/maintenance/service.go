// Package maintenance runs scheduled background tasks for decision-fitness.
package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/thebtf/decision-fitness/internal/journal"
	"github.com/thebtf/decision-fitness/pkg/models"
)

// DefaultInterval is how often check-in reminders are evaluated.
const DefaultInterval = time.Hour

// Journal is the read side of the decision journal the scheduler needs.
type Journal interface {
	List(ctx context.Context, userID string) ([]models.SavedDecision, error)
	Now() time.Time
}

// Notifier delivers reminders to connected users.
type Notifier interface {
	Users() []string
	CheckInDue(userID, decisionID string)
}

// Service sends one check-in reminder per decision once it reaches its
// reflection day, to users that currently hold an event stream.
type Service struct {
	log          zerolog.Logger
	lastRunTime  time.Time
	journal      Journal
	notifier     Notifier
	reminded     map[string]map[string]struct{}
	stopCh       chan struct{}
	doneCh       chan struct{}
	interval     time.Duration
	lastDuration time.Duration
	totalSent    int64
	totalRuns    int64
	mu           sync.Mutex
	running      bool
	stopOnce     sync.Once
}

// NewService creates a reminder scheduler. A non-positive interval disables it.
func NewService(j Journal, n Notifier, interval time.Duration, log zerolog.Logger) *Service {
	return &Service{
		journal:  j,
		notifier: n,
		interval: interval,
		reminded: make(map[string]map[string]struct{}),
		log:      log.With().Str("component", "maintenance").Logger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the reminder loop until ctx ends or Stop is called.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(s.doneCh)
	}()

	if s.interval <= 0 {
		s.log.Info().Msg("Check-in reminders disabled, not starting scheduler")
		return
	}

	s.log.Info().Dur("interval", s.interval).Msg("Starting check-in reminder scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Reminders shutting down due to context cancellation")
			return
		case <-s.stopCh:
			s.log.Info().Msg("Reminders shutting down due to stop signal")
			return
		case <-ticker.C:
			s.RunNow(ctx)
		}
	}
}

// Stop signals the scheduler to stop.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Wait blocks until Start returns.
func (s *Service) Wait() {
	<-s.doneCh
}

// RunNow evaluates reminders once and returns how many were sent.
func (s *Service) RunNow(ctx context.Context) int {
	start := time.Now()
	now := s.journal.Now()
	sent := 0

	for _, userID := range s.notifier.Users() {
		if ctx.Err() != nil {
			break
		}
		decisions, err := s.journal.List(ctx, userID)
		if err != nil {
			s.log.Error().Err(err).Str("userId", userID).Msg("Failed to list decisions for reminders")
			continue
		}
		for _, d := range decisions {
			if !journal.CheckInDue(d, now) || !s.markReminded(userID, d.ID) {
				continue
			}
			s.notifier.CheckInDue(userID, d.ID)
			sent++
		}
	}

	s.mu.Lock()
	s.lastRunTime = time.Now()
	s.lastDuration = time.Since(start)
	s.totalSent += int64(sent)
	s.totalRuns++
	s.mu.Unlock()

	if sent > 0 {
		s.log.Info().
			Int("sent", sent).
			Dur("duration", time.Since(start)).
			Msg("Check-in reminders sent")
	}
	return sent
}

// markReminded records the reminder and reports whether it is new.
func (s *Service) markReminded(userID, decisionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen, ok := s.reminded[userID]
	if !ok {
		seen = make(map[string]struct{})
		s.reminded[userID] = seen
	}
	if _, dup := seen[decisionID]; dup {
		return false
	}
	seen[decisionID] = struct{}{}
	return true
}

// Stats returns scheduler statistics.
func (s *Service) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":          s.interval > 0,
		"interval_seconds": int64(s.interval / time.Second),
		"last_run":         s.lastRunTime,
		"last_duration_ms": s.lastDuration.Milliseconds(),
		"total_sent":       s.totalSent,
		"total_runs":       s.totalRuns,
		"running":          s.running,
	}
}
