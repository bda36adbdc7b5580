package worker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/decision-fitness/internal/config"
	"github.com/thebtf/decision-fitness/internal/journal"
)

// testNow is the fixed clock of every test service.
var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// testConfig returns a config with limits high enough not to interfere.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RateLimitRPS = 1000
	cfg.RateLimitBurst = 1000
	cfg.FreeDecisionLimit = 3
	return cfg
}

// memoryOpener opens a fresh in-memory backend.
func memoryOpener(context.Context, *config.Config) (*Backend, error) {
	return MemoryBackend(), nil
}

// newTestService starts a service over an in-memory backend with a fixed
// clock and sequential IDs, and waits until it is ready.
func newTestService(t *testing.T, cfg *config.Config, opts ...Option) *Service {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}

	var seq atomic.Int64
	base := []Option{
		WithBackendOpener(memoryOpener),
		WithJournalOptions(
			journal.WithClock(func() time.Time { return testNow }),
			journal.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }),
		),
	}
	svc, err := NewService("test", cfg, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.WaitReady(ctx))
	return svc
}

// call sends one request through the service router. headers alternate
// name, value.
func call(t *testing.T, svc *Service, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rr, req)
	return rr
}

// decode unmarshals a recorder body into T.
func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}
