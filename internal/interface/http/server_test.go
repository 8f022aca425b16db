package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nutri-hub/shadow-pace/config"
	"github.com/nutri-hub/shadow-pace/internal/application/batch"
	"github.com/nutri-hub/shadow-pace/internal/application/command"
	"github.com/nutri-hub/shadow-pace/internal/application/query"
	"github.com/nutri-hub/shadow-pace/internal/application/race"
	"github.com/nutri-hub/shadow-pace/internal/domain/notification"
	"github.com/nutri-hub/shadow-pace/internal/domain/pace"
	"github.com/nutri-hub/shadow-pace/internal/domain/shared"
	"github.com/nutri-hub/shadow-pace/internal/mocks"
)

const (
	jwtSecret  = "test-jwt-secret"
	cronSecret = "test-cron-secret"
)

var now = time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)

type testEnv struct {
	progress  *mocks.ProgressRepository
	activity  *mocks.ActivityRepository
	summaries *mocks.SummaryRepository
	profiles  *mocks.ProfileRepository
	personas  *mocks.PersonaRepository
	schedule  *mocks.ScheduleRepository

	server *Server
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	e := &testEnv{
		progress:  new(mocks.ProgressRepository),
		activity:  new(mocks.ActivityRepository),
		summaries: new(mocks.SummaryRepository),
		profiles:  new(mocks.ProfileRepository),
		personas:  new(mocks.PersonaRepository),
		schedule:  new(mocks.ScheduleRepository),
	}
	configs := new(mocks.ConfigRepository)
	inbox := new(mocks.Inbox)
	taunts := new(mocks.TauntRepository)
	flags := config.NewFeatureFlags()
	clock := func() time.Time { return now }

	resolver := race.NewResolver(configs, e.profiles, "UTC", nil)
	notifier := race.NewNotifier(inbox, nil)

	smooth := command.NewSmoothPaceHandler(e.progress, resolver, notifier, nil, flags, command.DefaultSmoothParams(), nil).WithClock(clock)
	weekly := command.NewWeeklySummaryHandler(resolver, e.progress, e.summaries, nil).WithClock(clock)
	persona := command.NewGenerateMessageHandler(resolver, e.profiles, e.activity, notification.NewSelector(nil), e.personas, notifier, flags, nil).WithClock(clock)
	taunt := command.NewMaybeTauntHandler(resolver, e.progress, e.activity, taunts, notifier, flags, 0, nil).WithClock(clock)

	runner := batch.NewRunner(configs, e.summaries, e.profiles, batch.Handlers{
		Smooth:  smooth,
		Weekly:  weekly,
		Persona: persona,
		Taunt:   taunt,
		Events:  command.NewGenerateEventsHandler(resolver, e.schedule, nil).WithClock(clock),
	}, 2, nil).WithClock(clock)

	cfg.JWTSecret = jwtSecret
	e.server = NewServer(cfg, Dependencies{
		Smooth:   smooth,
		Weekly:   weekly,
		Complete: command.NewCompleteEventHandler(e.activity, nil).WithClock(clock),
		Batch:    runner,
		Latest:   query.NewLatestMessageHandler(e.personas).WithClock(clock),
		Taunts:   query.NewListTauntsHandler(taunts),
		Speed:    query.NewGetSpeedHistoryHandler(e.progress),
	})
	return e
}

func token(t *testing.T, sub, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION AUTH
// ══════════════════════════════════════════════════════════════════════════════

func TestUserRoutes_RejectBadSessions(t *testing.T) {
	e := newTestEnv(t, Config{CronSecret: cronSecret})
	user := uuid.NewString()

	tests := []struct {
		name   string
		bearer string
	}{
		{"missing", ""},
		{"wrong secret", token(t, user, "other")},
		{"subject not a uuid", token(t, "not-a-uuid", jwtSecret)},
		{"garbage", "abc.def.ghi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := e.do(t, http.MethodGet, "/api/shadow/messages/latest", tt.bearer, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", body["error"])
		})
	}
}

func TestLatestMessage_NullWhenNone(t *testing.T) {
	e := newTestEnv(t, Config{})
	user := uuid.NewString()
	e.personas.On("Latest", mock.Anything, user, now).Return(nil, nil)

	rec, body := e.do(t, http.MethodGet, "/api/shadow/messages/latest", token(t, user, jwtSecret), "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "message")
	assert.Nil(t, body["message"])
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

func TestSmoothNightly_NoRowsIs404(t *testing.T) {
	e := newTestEnv(t, Config{})
	user := uuid.NewString()
	e.progress.On("RecentDaily", mock.Anything, user, 7).Return(nil, nil)

	rec, body := e.do(t, http.MethodPost, "/api/shadow/pace/smooth/nightly", token(t, user, jwtSecret), "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No progress rows", body["error"])
}

func TestSmoothNightly_StorageFailureIs500(t *testing.T) {
	e := newTestEnv(t, Config{})
	user := uuid.NewString()
	e.progress.On("RecentDaily", mock.Anything, user, 7).Return(nil, errors.New("connection reset"))

	rec, body := e.do(t, http.MethodPost, "/api/shadow/pace/smooth/nightly", token(t, user, jwtSecret), "", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "smooth_pace: load rows: connection reset", body["error"])
}

func TestCompleteEvent_Ownership(t *testing.T) {
	e := newTestEnv(t, Config{})
	user := uuid.NewString()
	other := uuid.NewString()

	e.activity.On("GetInstance", mock.Anything, "missing").Return(nil, shared.ErrEventNotFound)
	e.activity.On("GetInstance", mock.Anything, "theirs").Return(&pace.TaskInstance{ID: "theirs", OwnerUserID: other}, nil)

	rec, body := e.do(t, http.MethodPost, "/api/shadow/events/missing/complete", token(t, user, jwtSecret), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", body["error"])

	rec, body = e.do(t, http.MethodPost, "/api/shadow/events/theirs/complete", token(t, user, jwtSecret), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", body["error"])
}

func TestCompleteEvent_Success(t *testing.T) {
	e := newTestEnv(t, Config{})
	user := uuid.NewString()
	inst := &pace.TaskInstance{
		ID:             "inst-1",
		ShadowID:       "shadow-1",
		OwnerUserID:    user,
		PlannedStartAt: now.Add(-30 * time.Minute),
		PlannedEndAt:   now.Add(30 * time.Minute),
	}
	e.activity.On("GetInstance", mock.Anything, "inst-1").Return(inst, nil)
	e.activity.On("CompleteInstance", mock.Anything, "inst-1", now).Return(nil)
	e.activity.On("AppendAlignment", mock.Anything, mock.Anything).Return(nil)

	rec, body := e.do(t, http.MethodPost, "/api/shadow/events/inst-1/complete", token(t, user, jwtSecret), "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "inst-1", body["id"])
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "tied", body["alignment_status"])
}

// ══════════════════════════════════════════════════════════════════════════════
// CRON AUTH
// ══════════════════════════════════════════════════════════════════════════════

func TestCronRoutes_Secret(t *testing.T) {
	e := newTestEnv(t, Config{CronSecret: cronSecret})

	rec, body := e.do(t, http.MethodPost, "/api/cron/shadow/nightly-smooth", "", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", body["error"])

	rec, body = e.do(t, http.MethodPost, "/api/cron/shadow/taunt-maybe", "", "", map[string]string{CronSecretHeader: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", body["error"])

	rec, body = e.do(t, http.MethodPost, "/api/cron/shadow/weekly-summarize", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", body["error"])
}

func TestCronRoutes_EmptyServerSecretAlwaysRejects(t *testing.T) {
	e := newTestEnv(t, Config{})

	rec, _ := e.do(t, http.MethodPost, "/api/cron/shadow/run-today-all?secret=", "", "", map[string]string{CronSecretHeader: ""})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCronWeekly_QuerySecret(t *testing.T) {
	e := newTestEnv(t, Config{CronSecret: cronSecret})
	e.summaries.On("UsersWithDaily", mock.Anything, "2025-03-10", "2025-03-16").Return([]string{}, nil)

	rec, body := e.do(t, http.MethodPost, "/api/cron/shadow/weekly-summarize?secret="+cronSecret, "", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, map[string]any{"weekStart": "2025-03-10", "weekEnd": "2025-03-16"}, body["window"])
}

func TestCronGenerateEvents(t *testing.T) {
	e := newTestEnv(t, Config{CronSecret: cronSecret})
	user := uuid.NewString()
	e.profiles.On("UsersWithProfile", mock.Anything).Return([]string{user}, nil)
	e.profiles.On("Timezone", mock.Anything, user).Return("UTC", nil)
	e.schedule.On("ActiveShadowTasks", mock.Anything, user).Return([]pace.ShadowTask{{ID: "st-1", Anchor: pace.AnchorMidday}}, nil)
	e.schedule.On("InsertMissingInstances", mock.Anything, user, []pace.PlannedInstance{{
		ShadowTaskID: "st-1",
		Date:         "2025-03-12",
		StartAt:      time.Date(2025, 3, 12, 13, 0, 0, 0, time.UTC),
		EndAt:        time.Date(2025, 3, 12, 13, 10, 0, 0, time.UTC),
	}}).Return(1, nil)

	rec, _ := e.do(t, http.MethodPost, "/api/cron/shadow/generate-events-today-all", "", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := e.do(t, http.MethodPost, "/api/cron/shadow/generate-events-today-all", "", "", map[string]string{CronSecretHeader: cronSecret})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(1), body["total_profiles"])
	assert.Equal(t, []any{map[string]any{"user_id": user, "date": "2025-03-12", "inserted": float64(1)}}, body["results"])
	e.schedule.AssertExpectations(t)
}

// ══════════════════════════════════════════════════════════════════════════════
// SPEED HISTORY
// ══════════════════════════════════════════════════════════════════════════════

func TestSpeedHistory(t *testing.T) {
	e := newTestEnv(t, Config{})
	user := uuid.NewString()
	e.progress.On("RecentDaily", mock.Anything, user, query.MaxSpeedHistoryDays).Return([]pace.DailyProgress{
		{UserID: user, Date: "2025-03-12", Lead: 1},
	}, nil)

	rec, body := e.do(t, http.MethodGet, "/api/shadow/speed/history?days=400", token(t, user, jwtSecret), "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(query.MaxSpeedHistoryDays), body["days"])
	series, ok := body["series"].([]any)
	require.True(t, ok)
	require.Len(t, series, 1)
	assert.Equal(t, "2025-03-12", series[0].(map[string]any)["date"])
}

// ══════════════════════════════════════════════════════════════════════════════
// PERSONA GENERATION
// ══════════════════════════════════════════════════════════════════════════════

func TestGenerateMessages_Scope(t *testing.T) {
	e := newTestEnv(t, Config{CronSecret: cronSecret})
	user := uuid.NewString()
	bearer := token(t, user, jwtSecret)

	rec, body := e.do(t, http.MethodPost, "/api/shadow/messages/generate", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", body["error"])

	rec, body = e.do(t, http.MethodPost, "/api/shadow/messages/generate", bearer, `{"all":true}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden: all requires cron secret", body["error"])

	rec, body = e.do(t, http.MethodPost, "/api/shadow/messages/generate", bearer, `{"userId":"`+uuid.NewString()+`"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", body["error"])

	rec, body = e.do(t, http.MethodPost, "/api/shadow/messages/generate", bearer, `{"userId":"nope"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid userId: failed uuid", body["error"])
}

func TestGenerateMessages_CronTargetsAnyUser(t *testing.T) {
	e := newTestEnv(t, Config{CronSecret: cronSecret})
	target := uuid.NewString()
	e.profiles.On("Profile", mock.Anything, target).Return(nil, shared.ErrProfileNotFound)

	rec, body := e.do(t, http.MethodPost, "/api/shadow/messages/generate?debug=1", "",
		`{"userId":"`+target+`"}`, map[string]string{CronSecretHeader: cronSecret})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(1), body["processed"])
	assert.Equal(t, float64(0), body["success"])

	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, target, first["userId"])
	assert.Equal(t, "No shadow_profile", first["error"])
}

func TestGenerateMessages_CronAll(t *testing.T) {
	e := newTestEnv(t, Config{CronSecret: cronSecret})
	e.profiles.On("UsersWithProfile", mock.Anything).Return([]string{}, nil)

	rec, body := e.do(t, http.MethodPost, "/api/shadow/messages/generate?all=1&secret="+cronSecret, "", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["processed"])
	assert.NotContains(t, body, "results")
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadiness(t *testing.T) {
	health := NewHealthChecker("test")
	health.AddCheck("postgres", PingCheck(pingFunc(func(context.Context) error { return nil })))
	health.AddCheck("redis", PingCheck(pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })))

	s := NewServer(Config{}, Dependencies{Health: health})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Healthy)
	assert.Equal(t, "failing: redis", status.Message)
	assert.True(t, status.Checks["postgres"].Healthy)
}
