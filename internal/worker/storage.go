package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/thebtf/decision-fitness/internal/config"
	gormdb "github.com/thebtf/decision-fitness/internal/db/gorm"
	"github.com/thebtf/decision-fitness/internal/db/local"
	"github.com/thebtf/decision-fitness/internal/journal"
)

// Backend is an opened persistence layer for the journal.
type Backend struct {
	Repo journal.Repository
	// Health reports storage reachability; nil means always healthy.
	Health func(ctx context.Context) error
	// Stats reports connection pool figures; nil when there is no pool.
	Stats func() map[string]any
	Close func() error
	Name  string
}

// BackendOpener opens the storage selected by cfg.
type BackendOpener func(ctx context.Context, cfg *config.Config) (*Backend, error)

// OpenBackend opens the backend chosen by cfg.Backend(): a relational store
// for postgres and sqlite, a Redis document for redis, and per-user JSON
// files otherwise.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	name := cfg.Backend()
	switch name {
	case config.BackendPostgres, config.BackendSQLite:
		store, err := gormdb.NewStore(gormdb.Config{
			Driver:   name,
			DSN:      cfg.DatabaseURL,
			Path:     cfg.DBPath,
			MaxConns: cfg.MaxConns,
			LogLevel: logger.Warn,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", name, err)
		}
		return &Backend{
			Name: name,
			Repo: journal.NewRecordRepository(gormdb.NewDecisionStore(store)),
			Health: func(ctx context.Context) error {
				if info := store.HealthCheck(ctx); info.Status == "unhealthy" {
					return errors.New(info.Error)
				}
				return nil
			},
			Stats: func() map[string]any {
				st := store.Stats()
				return map[string]any{
					"driver":           store.Driver(),
					"open_connections": st.OpenConnections,
					"in_use":           st.InUse,
					"idle":             st.Idle,
					"wait_count":       st.WaitCount,
				}
			},
			Close: store.Close,
		}, nil

	case config.BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("redis backend selected but no redis address configured")
		}
		kv := local.NewRedisKV(cfg.RedisAddr)
		if err := kv.Ping(ctx); err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return &Backend{
			Name:   name,
			Repo:   local.NewStore(kv),
			Health: kv.Ping,
			Close:  kv.Close,
		}, nil
	}

	kv, err := local.NewFileKV(cfg.LocalPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.LocalPath).Msg("Using local journal files")
	return &Backend{
		Name:  config.BackendLocal,
		Repo:  local.NewStore(kv),
		Close: func() error { return nil },
	}, nil
}

// MemoryBackend returns a non-persistent backend.
func MemoryBackend() *Backend {
	return &Backend{
		Name:  "memory",
		Repo:  local.NewStore(local.NewMemoryKV()),
		Close: func() error { return nil },
	}
}
