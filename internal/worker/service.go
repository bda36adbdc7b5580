// Package worker provides the HTTP service for decision-fitness.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/thebtf/decision-fitness/internal/config"
	"github.com/thebtf/decision-fitness/internal/journal"
	"github.com/thebtf/decision-fitness/internal/maintenance"
	"github.com/thebtf/decision-fitness/internal/worker/sse"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ReadyPollInterval is how often WaitReady checks initialization status.
	ReadyPollInterval = 50 * time.Millisecond

	// MaxRequestBodyBytes bounds every request body.
	MaxRequestBodyBytes = 64 << 10
)

// Service is the worker service: storage lifecycle, journal and HTTP surface.
type Service struct {
	startTime time.Time
	ctx       context.Context
	initError error

	// Configuration
	config *config.Config
	open   BackendOpener

	// Domain services, set once initialization succeeds
	backend     *Backend
	journal     *journal.Service
	journalOpts []journal.Option
	reminders   *maintenance.Service

	sseBroadcaster *sse.Broadcaster
	identity       *Identity
	validator      *Validator
	limiter        *PerClientRateLimiter
	dashboards     singleflight.Group

	// HTTP server
	router *chi.Mux
	server *http.Server

	cancel  context.CancelFunc
	version string

	wg     sync.WaitGroup
	initMu sync.RWMutex
	ready  atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithBackendOpener replaces OpenBackend.
func WithBackendOpener(open BackendOpener) Option {
	return func(s *Service) { s.open = open }
}

// WithJournalOptions appends options passed to journal.NewService.
func WithJournalOptions(opts ...journal.Option) Option {
	return func(s *Service) { s.journalOpts = append(s.journalOpts, opts...) }
}

// NewService creates a new worker service with deferred initialization.
// The service answers /health immediately while storage is opened in the
// background; /api routes return 503 until it is ready.
func NewService(version string, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Get()
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:        version,
		config:         cfg,
		open:           OpenBackend,
		sseBroadcaster: sse.NewBroadcaster(),
		identity:       NewIdentity(cfg.JWTSecret),
		validator:      validator,
		limiter:        NewPerClientRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		router:         chi.NewRouter(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}
	for _, opt := range opts {
		opt(svc)
	}

	svc.setupMiddleware()
	svc.setupRoutes()

	svc.wg.Add(1)
	go svc.initializeAsync()

	return svc, nil
}

// initializeAsync opens storage and builds the journal in the background.
func (s *Service) initializeAsync() {
	defer s.wg.Done()

	start := time.Now()
	backend, err := s.open(s.ctx, s.config)
	if err != nil {
		log.Error().Err(err).Msg("Storage initialization failed")
		s.setInitError(err)
		return
	}

	opts := []journal.Option{
		journal.WithQuota(journal.FreeTierQuota{Limit: s.config.FreeDecisionLimit}),
		journal.WithChangeHook(s.sseBroadcaster.DashboardUpdated),
	}
	opts = append(opts, s.journalOpts...)

	j := journal.NewService(backend.Repo, opts...)
	reminders := maintenance.NewService(j, s.sseBroadcaster,
		time.Duration(s.config.ReminderIntervalMinutes)*time.Minute, log.Logger)

	s.initMu.Lock()
	s.backend = backend
	s.journal = j
	s.reminders = reminders
	s.initMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		reminders.Start(s.ctx)
	}()

	s.ready.Store(true)

	log.Info().
		Str("backend", backend.Name).
		Dur("took", time.Since(start)).
		Msg("Worker initialized")
}

func (s *Service) setInitError(err error) {
	s.initMu.Lock()
	s.initError = err
	s.initMu.Unlock()
}

// GetInitError returns the initialization error, if any.
func (s *Service) GetInitError() error {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.initError
}

// WaitReady blocks until initialization finishes or ctx ends.
func (s *Service) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(ReadyPollInterval)
	defer ticker.Stop()
	for {
		if s.ready.Load() {
			return nil
		}
		if err := s.GetInitError(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Journal returns the journal service, or nil before initialization.
func (s *Service) Journal() *journal.Service {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.journal
}

func (s *Service) currentBackend() *Backend {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.backend
}

func (s *Service) currentReminders() *maintenance.Service {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.reminders
}

// Handler returns the root HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

func (s *Service) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(SecurityHeaders(s.config.AllowedOrigins))
	s.router.Use(MaxBodySize(MaxRequestBodyBytes))
}

func (s *Service) setupRoutes() {
	// Probes work during initialization.
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/version", s.handleVersion)
	s.router.Get("/api/ready", s.handleReady)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireReady)
		r.Use(s.identity.Middleware)
		r.Use(PerClientRateLimitMiddleware(s.limiter))

		// The event stream outlives the request timeout.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(DefaultHTTPTimeout))
			r.Use(RequireJSONContentType)

			r.Post("/evaluate", s.handleEvaluate)
			r.Get("/dashboard", s.handleDashboard)

			r.Route("/decisions", func(r chi.Router) {
				r.Get("/", s.handleListDecisions)
				r.Post("/", s.handleCreateDecision)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(validateDecisionID)
					r.Get("/", s.handleGetDecision)
					r.Put("/follow-up", s.handleFollowUp)
					r.Put("/check-in", s.handleCheckIn)
					r.Post("/plan/items", s.handleAddPlanItem)
					r.Patch("/plan/items/{itemID}", s.handleUpdatePlanItem)
					r.Post("/plan/restore", s.handleRestorePlan)
				})
			})
		})
	})
}

// Start begins serving HTTP on the configured port.
func (s *Service) Start() error {
	port := s.config.WorkerPort
	if port <= 0 {
		port = config.DefaultWorkerPort
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
			s.setInitError(err)
		}
	}()

	log.Info().
		Int("port", port).
		Int("pid", os.Getpid()).
		Str("backend", s.config.Backend()).
		Msg("Worker HTTP server started (initialization in progress)")

	return nil
}

// Shutdown stops the HTTP server, waits for background work and closes storage.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	if b := s.currentBackend(); b != nil && b.Close != nil {
		if err := b.Close(); err != nil {
			log.Error().Err(err).Str("backend", b.Name).Msg("Storage close error")
		}
	}

	log.Info().Msg("Worker service shutdown complete")
	return nil
}
