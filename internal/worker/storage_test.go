package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/decision-fitness/internal/config"
	"github.com/thebtf/decision-fitness/internal/journal"
	"github.com/thebtf/decision-fitness/pkg/models"
)

func saveAndReload(t *testing.T, b *Backend) {
	t.Helper()
	ctx := context.Background()

	svc := journal.NewService(b.Repo)
	saved, err := svc.Save(ctx, journal.Owner{UserID: "u1"}, models.Draft{
		DecisionText:   "Cambiar de trabajo",
		CostLevel:      models.CostMedio,
		EmotionalState: models.StateCalmado,
	})
	require.NoError(t, err)

	list, err := journal.NewService(b.Repo).List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)
	assert.Equal(t, saved.Score, list[0].Score)
}

func TestOpenBackend_SQLite(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = config.BackendSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "decisions.db")

	b, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	assert.Equal(t, config.BackendSQLite, b.Name)
	require.NotNil(t, b.Health)
	assert.NoError(t, b.Health(context.Background()))
	saveAndReload(t, b)
}

func TestOpenBackend_LocalFiles(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = ""
	cfg.DatabaseURL = ""
	cfg.LocalPath = filepath.Join(t.TempDir(), "journal")

	b, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	assert.Equal(t, config.BackendLocal, b.Name)
	assert.Nil(t, b.Health)
	saveAndReload(t, b)
}

func TestOpenBackend_RedisWithoutAddress(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = config.BackendRedis
	cfg.RedisAddr = ""

	_, err := OpenBackend(context.Background(), cfg)
	assert.ErrorContains(t, err, "no redis address")
}

func TestOpenBackend_SQLiteBadPath(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = config.BackendSQLite
	cfg.DBPath = ""

	_, err := OpenBackend(context.Background(), cfg)
	assert.Error(t, err)
}

func TestService_EndToEndOverSQLite(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = config.BackendSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "decisions.db")

	svc := newTestService(t, cfg, WithBackendOpener(OpenBackend))

	rr := call(t, svc, http.MethodPost, "/api/decisions", guidedDraft, "X-User-ID", "u1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	d := decode[DecisionView](t, rr)

	rr = call(t, svc, http.MethodPut, "/api/decisions/"+d.ID+"/follow-up", `{"actionTaken":"espere","outcome":"mejor"}`, "X-User-ID", "u1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = call(t, svc, http.MethodGet, "/api/decisions/"+d.ID, "", "X-User-ID", "u1")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[DecisionView](t, rr)
	require.NotNil(t, got.ActionPlan)
	require.NotNil(t, got.FollowUp)
	assert.Equal(t, models.OutcomeMejor, got.FollowUp.Outcome)

	body := decode[map[string]any](t, call(t, svc, http.MethodGet, "/health", ""))
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, config.BackendSQLite, body["backend"])
	storage, ok := body["storage"].(map[string]any)
	require.True(t, ok, "pool stats are reported for relational backends")
	assert.Equal(t, config.BackendSQLite, storage["driver"])
	assert.Equal(t, float64(1), body["journals_loaded"])
}

func TestValidator_CompilesEverySchema(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	for _, name := range []string{schemaDraft, schemaFollowUp, schemaCheckIn, schemaPlanItem, schemaPlanItemPatch} {
		assert.Contains(t, v.schemas, name)
	}

	req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	require.NoError(t, err)
	var dst map[string]any
	assert.ErrorContains(t, v.Decode(req, "missing.json", &dst), "unknown schema")
}

func TestService_CheckInReminderReachesOpenStream(t *testing.T) {
	var clock atomic.Pointer[time.Time]
	start := testNow
	clock.Store(&start)

	svc := newTestService(t, nil, WithJournalOptions(
		journal.WithClock(func() time.Time { return *clock.Load() }),
	))

	rr := call(t, svc, http.MethodPost, "/api/decisions", guidedDraft, "X-User-ID", "u1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	d := decode[DecisionView](t, rr)

	stream := httptest.NewRecorder()
	client, err := svc.sseBroadcaster.AddClient("u1", stream)
	require.NoError(t, err)
	defer svc.sseBroadcaster.RemoveClient(client)

	reminders := svc.currentReminders()
	require.NotNil(t, reminders)
	assert.Equal(t, 0, reminders.RunNow(context.Background()), "not due on day 0")

	later := testNow.Add(8 * 24 * time.Hour)
	clock.Store(&later)
	assert.Equal(t, 1, reminders.RunNow(context.Background()))
	assert.Contains(t, stream.Body.String(), `"type":"check_in_due","decisionId":"`+d.ID+`"`)
}
