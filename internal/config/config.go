// Package config provides configuration management for decision-fitness.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

const (
	// DefaultWorkerPort is the default HTTP port for the worker service.
	DefaultWorkerPort = 37800

	// DefaultFreeDecisionLimit is how many decisions a free account may save.
	DefaultFreeDecisionLimit = 10
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendLocal    = "local"
	BackendRedis    = "redis"
)

// Config holds the application configuration.
type Config struct {
	// Worker settings
	WorkerPort     int      `json:"worker_port"`
	AllowedOrigins []string `json:"allowed_origins"`

	// Storage settings
	StorageBackend string `json:"storage_backend"` // postgres, sqlite, local, redis (empty = auto)
	DBPath         string `json:"db_path"`
	DatabaseURL    string `json:"database_url"`
	MaxConns       int    `json:"max_conns"`
	LocalPath      string `json:"local_path"`
	RedisAddr      string `json:"redis_addr"`

	// Policy
	FreeDecisionLimit int `json:"free_decision_limit"`

	// Identity and limits
	JWTSecret      string  `json:"jwt_secret"`
	RateLimitRPS   float64 `json:"rate_limit_rps"`
	RateLimitBurst int     `json:"rate_limit_burst"`

	// Check-in reminders; 0 disables the scheduler
	ReminderIntervalMinutes int `json:"reminder_interval_minutes"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DataDir returns the data directory path (~/.decision-fitness).
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".decision-fitness")
}

// DBPath returns the SQLite database file path.
func DBPath() string {
	return filepath.Join(DataDir(), "decision-fitness.db")
}

// LocalPath returns the directory of the file-backed fallback journal.
func LocalPath() string {
	return filepath.Join(DataDir(), "journal")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings creates a default settings file if it doesn't exist.
func EnsureSettings() error {
	path := SettingsPath()

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	defaultSettings := `{
  "DECISION_FITNESS_WORKER_PORT": 37800,
  "DECISION_FITNESS_STORAGE_BACKEND": "",
  "DECISION_FITNESS_FREE_DECISION_LIMIT": 10
}
`
	return os.WriteFile(path, []byte(defaultSettings), 0600)
}

// EnsureAll ensures all required directories and files exist.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		WorkerPort:        DefaultWorkerPort,
		DBPath:            DBPath(),
		LocalPath:         LocalPath(),
		MaxConns:          4,
		FreeDecisionLimit: DefaultFreeDecisionLimit,
		RateLimitRPS:      10,
		RateLimitBurst:    20,

		ReminderIntervalMinutes: 60,
	}
}

// Load loads configuration from the settings file, merging with defaults,
// then applies environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		applySettings(cfg, data)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applySettings merges a settings.json document into cfg. Unparseable files
// leave the defaults untouched.
func applySettings(cfg *Config, data []byte) {
	var settings map[string]interface{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return
	}

	if v, ok := settings["DECISION_FITNESS_WORKER_PORT"].(float64); ok && v > 0 {
		cfg.WorkerPort = int(v)
	}
	if v, ok := settings["DECISION_FITNESS_STORAGE_BACKEND"].(string); ok {
		cfg.StorageBackend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := settings["DECISION_FITNESS_DB_PATH"].(string); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := settings["DECISION_FITNESS_DATABASE_URL"].(string); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := settings["DECISION_FITNESS_MAX_CONNS"].(float64); ok && v > 0 {
		cfg.MaxConns = int(v)
	}
	if v, ok := settings["DECISION_FITNESS_LOCAL_PATH"].(string); ok && v != "" {
		cfg.LocalPath = v
	}
	if v, ok := settings["DECISION_FITNESS_REDIS_ADDR"].(string); ok {
		cfg.RedisAddr = v
	}
	if v, ok := settings["DECISION_FITNESS_FREE_DECISION_LIMIT"].(float64); ok && v >= 0 {
		cfg.FreeDecisionLimit = int(v)
	}
	if v, ok := settings["DECISION_FITNESS_JWT_SECRET"].(string); ok {
		cfg.JWTSecret = v
	}
	if v, ok := settings["DECISION_FITNESS_RATE_LIMIT_RPS"].(float64); ok && v > 0 {
		cfg.RateLimitRPS = v
	}
	if v, ok := settings["DECISION_FITNESS_RATE_LIMIT_BURST"].(float64); ok && v > 0 {
		cfg.RateLimitBurst = int(v)
	}
	if v, ok := settings["DECISION_FITNESS_REMINDER_INTERVAL_MINUTES"].(float64); ok && v >= 0 {
		cfg.ReminderIntervalMinutes = int(v)
	}
	if v, ok := settings["DECISION_FITNESS_ALLOWED_ORIGINS"].(string); ok && v != "" {
		cfg.AllowedOrigins = splitTrim(v)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DECISION_FITNESS_WORKER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.WorkerPort = p
		}
	}
	if v := os.Getenv("DECISION_FITNESS_STORAGE_BACKEND"); v != "" {
		cfg.StorageBackend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisAddr = redisAddr(v)
	}
	if v := os.Getenv("DECISION_FITNESS_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
}

// redisAddr accepts either host:port or a redis:// URL.
func redisAddr(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

// Backend resolves the storage backend. An explicit setting wins; otherwise a
// database URL selects Postgres and everything else falls back to the local
// single-file journal.
func (c *Config) Backend() string {
	switch c.StorageBackend {
	case BackendPostgres, BackendSQLite, BackendLocal, BackendRedis:
		return c.StorageBackend
	}
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return BackendPostgres
	}
	return BackendLocal
}

// splitTrim splits a comma-separated string and trims whitespace.
func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})

	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// GetWorkerPort returns the worker port from environment or config.
func GetWorkerPort() int {
	if port := os.Getenv("DECISION_FITNESS_WORKER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			return p
		}
	}
	return Get().WorkerPort
}
