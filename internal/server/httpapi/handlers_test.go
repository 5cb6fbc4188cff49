package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/willcounter/internal/common"
	"github.com/dmitrijs2005/willcounter/internal/logging"
	"github.com/dmitrijs2005/willcounter/internal/server/auth"
	"github.com/dmitrijs2005/willcounter/internal/server/models"
)

type fakeStore struct {
	healthy       bool
	users         map[string]*models.User
	ensureErr     error
	loginOK       bool
	today         *models.WillCount
	statistics    []models.WillCount
	lastStatsDays int
}

func (f *fakeStore) HealthCheck(ctx context.Context) bool { return f.healthy }

func (f *fakeStore) GetUser(ctx context.Context, auth0ID string) (*models.User, error) {
	if u, ok := f.users[auth0ID]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeStore) EnsureUser(ctx context.Context, auth0ID, email string) (*models.User, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	if u, ok := f.users[auth0ID]; ok {
		return u, nil
	}
	u := &models.User{
		ID:          "u-" + auth0ID,
		Auth0ID:     auth0ID,
		Email:       email,
		CreatedAt:   "2026-08-30T10:00:00Z",
		Preferences: models.DefaultPreferences(),
	}
	if f.users == nil {
		f.users = map[string]*models.User{}
	}
	f.users[auth0ID] = u
	return u, nil
}

func (f *fakeStore) UpdateLastLogin(ctx context.Context, userID string) bool { return f.loginOK }

func (f *fakeStore) GetTodayCount(ctx context.Context, userID string) *models.WillCount {
	return f.today
}

func (f *fakeStore) IncrementCount(ctx context.Context, userID string) *models.WillCount {
	return f.today
}

func (f *fakeStore) ResetToday(ctx context.Context, userID string) *models.WillCount {
	return f.today
}

func (f *fakeStore) GetStatistics(ctx context.Context, userID string, days int) []models.WillCount {
	f.lastStatsDays = days
	return f.statistics
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// identityMiddleware simulates a verified request for the given subject.
func identityMiddleware(subject, email string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.ContextWithIdentity(r.Context(), &auth.Identity{Subject: subject, Email: email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "authentication required")
	})
}

func newTestServer(store *fakeStore, mw Middleware) *Server {
	return NewServer(store, mw, testLogger())
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rr := httptest.NewRecorder()
	s.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	return envelope
}

func TestRoot(t *testing.T) {
	s := newTestServer(&fakeStore{}, identityMiddleware("auth0|abc", ""))

	rr := doRequest(t, s, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rr.Code)
	envelope := decodeEnvelope(t, rr)
	assert.Equal(t, true, envelope["success"])
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "Will Counter API", data["message"])
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(&fakeStore{healthy: true}, rejectMiddleware)

		rr := doRequest(t, s, http.MethodGet, "/health", "")

		require.Equal(t, http.StatusOK, rr.Code)
		data := decodeEnvelope(t, rr)["data"].(map[string]any)
		assert.Equal(t, "healthy", data["status"])
	})

	t.Run("degraded", func(t *testing.T) {
		s := newTestServer(&fakeStore{healthy: false}, rejectMiddleware)

		rr := doRequest(t, s, http.MethodGet, "/health", "")

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		data := decodeEnvelope(t, rr)["data"].(map[string]any)
		assert.Equal(t, "degraded", data["status"])
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("subject mismatch is forbidden", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, identityMiddleware("auth0|abc", "abc@example.com"))

		rr := doRequest(t, s, http.MethodPost, "/api/users", `{"auth0Id":"auth0|other","email":"x@example.com"}`)

		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("existing user returns 200", func(t *testing.T) {
		store := &fakeStore{users: map[string]*models.User{
			"auth0|abc": {ID: "u-1", Auth0ID: "auth0|abc", Preferences: models.DefaultPreferences()},
		}}
		s := newTestServer(store, identityMiddleware("auth0|abc", "abc@example.com"))

		rr := doRequest(t, s, http.MethodPost, "/api/users", `{"auth0Id":"auth0|abc","email":"abc@example.com"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		envelope := decodeEnvelope(t, rr)
		assert.Equal(t, "User already exists", envelope["message"])
	})

	t.Run("new user returns 201", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, identityMiddleware("auth0|abc", "abc@example.com"))

		rr := doRequest(t, s, http.MethodPost, "/api/users", `{"auth0Id":"auth0|abc","email":"abc@example.com"}`)

		require.Equal(t, http.StatusCreated, rr.Code)
		envelope := decodeEnvelope(t, rr)
		assert.Equal(t, "User created successfully", envelope["message"])
		data := envelope["data"].(map[string]any)
		assert.Equal(t, "auth0|abc", data["auth0Id"])
	})

	t.Run("invalid body", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, identityMiddleware("auth0|abc", ""))

		rr := doRequest(t, s, http.MethodPost, "/api/users", `{nope`)

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, rejectMiddleware)

		rr := doRequest(t, s, http.MethodPost, "/api/users", `{"auth0Id":"auth0|abc"}`)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestCurrentUser(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store := &fakeStore{users: map[string]*models.User{
			"auth0|abc": {ID: "u-1", Auth0ID: "auth0|abc", Preferences: models.DefaultPreferences()},
		}}
		s := newTestServer(store, identityMiddleware("auth0|abc", ""))

		rr := doRequest(t, s, http.MethodGet, "/api/users/me", "")

		require.Equal(t, http.StatusOK, rr.Code)
		data := decodeEnvelope(t, rr)["data"].(map[string]any)
		assert.Equal(t, "u-1", data["id"])
	})

	t.Run("missing", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, identityMiddleware("auth0|abc", ""))

		rr := doRequest(t, s, http.MethodGet, "/api/users/me", "")

		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestGetUserByAuth0ID(t *testing.T) {
	store := &fakeStore{users: map[string]*models.User{
		"auth0|abc": {ID: "u-1", Auth0ID: "auth0|abc", Preferences: models.DefaultPreferences()},
	}}
	s := newTestServer(store, rejectMiddleware)

	rr := doRequest(t, s, http.MethodGet, "/api/users/auth0%7Cabc", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, s, http.MethodGet, "/api/users/auth0%7Cmissing", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLogin(t *testing.T) {
	t.Run("matched", func(t *testing.T) {
		s := newTestServer(&fakeStore{loginOK: true}, rejectMiddleware)

		rr := doRequest(t, s, http.MethodPost, "/api/users/u-1/login", "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Last login updated", decodeEnvelope(t, rr)["message"])
	})

	t.Run("no row matched", func(t *testing.T) {
		s := newTestServer(&fakeStore{loginOK: false}, rejectMiddleware)

		rr := doRequest(t, s, http.MethodPost, "/api/users/u-1/login", "")

		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestEnsureUser(t *testing.T) {
	s := newTestServer(&fakeStore{}, identityMiddleware("auth0|abc", "abc@example.com"))

	rr := doRequest(t, s, http.MethodPost, "/api/will-counts/users/ensure", "")

	require.Equal(t, http.StatusOK, rr.Code)
	envelope := decodeEnvelope(t, rr)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "u-auth0|abc", data["user_id"])
}

func TestEnsureUser_FallbackEmail(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store, identityMiddleware("auth0|abc", ""))

	rr := doRequest(t, s, http.MethodPost, "/api/will-counts/users/ensure", "")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, fallbackEmail, store.users["auth0|abc"].Email)
}

func todayRecord(count int) *models.WillCount {
	ts := make([]string, count)
	for i := range ts {
		ts[i] = time.Now().UTC().Format(time.RFC3339)
	}
	return &models.WillCount{
		ID:         "c-1",
		UserID:     "u-auth0|abc",
		Date:       time.Now().UTC().Format("2006-01-02"),
		Count:      count,
		Timestamps: ts,
		CreatedAt:  "2026-08-30T10:00:00Z",
		UpdatedAt:  "2026-08-30T10:00:00Z",
	}
}

func TestTodayIncrementReset(t *testing.T) {
	store := &fakeStore{today: todayRecord(2)}
	s := newTestServer(store, identityMiddleware("auth0|abc", "abc@example.com"))

	for _, tc := range []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/will-counts/today"},
		{http.MethodPost, "/api/will-counts/increment"},
		{http.MethodPost, "/api/will-counts/reset"},
	} {
		rr := doRequest(t, s, tc.method, tc.target, "")
		require.Equal(t, http.StatusOK, rr.Code, tc.target)

		var resp WillCountResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "u-auth0|abc", resp.UserID, tc.target)
		assert.Equal(t, 2, resp.Count, tc.target)
		assert.Len(t, resp.Timestamps, 2, tc.target)
	}
}

func TestStatistics(t *testing.T) {
	today := time.Now().UTC().Format("2006-01-02")
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	store := &fakeStore{statistics: []models.WillCount{
		{Date: today, Count: 3, Timestamps: []string{"a", "b", "c"}},
		{Date: yesterday, Count: 4, Timestamps: []string{"a", "b", "c", "d"}},
	}}
	s := newTestServer(store, identityMiddleware("auth0|abc", "abc@example.com"))

	rr := doRequest(t, s, http.MethodGet, "/api/will-counts/statistics?days=14", "")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 14, store.lastStatsDays)

	var envelope struct {
		Success bool               `json:"success"`
		Data    StatisticsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))

	assert.Equal(t, 7, envelope.Data.TotalCount)
	assert.Equal(t, 3, envelope.Data.TodayCount)
	assert.InDelta(t, 1.0, envelope.Data.WeeklyAverage, 1e-9)
	require.Len(t, envelope.Data.DailyCounts, 2)
	assert.Equal(t, 3, envelope.Data.DailyCounts[0].Sessions)
}

func TestStatistics_Defaults(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store, identityMiddleware("auth0|abc", ""))

	rr := doRequest(t, s, http.MethodGet, "/api/will-counts/statistics", "")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 30, store.lastStatsDays)

	var envelope struct {
		Data StatisticsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Zero(t, envelope.Data.WeeklyAverage)
	assert.NotNil(t, envelope.Data.DailyCounts)
}

func TestStatistics_DaysFloor(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store, identityMiddleware("auth0|abc", ""))

	rr := doRequest(t, s, http.MethodGet, "/api/will-counts/statistics?days=-5", "")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, store.lastStatsDays)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(&fakeStore{healthy: true}, rejectMiddleware)

	protected := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/api/users"},
		{http.MethodGet, "/api/users/me"},
		{http.MethodPost, "/api/will-counts/users/ensure"},
		{http.MethodGet, "/api/will-counts/today"},
		{http.MethodPost, "/api/will-counts/increment"},
		{http.MethodPost, "/api/will-counts/reset"},
		{http.MethodGet, "/api/will-counts/statistics"},
	}
	for _, tc := range protected {
		rr := doRequest(t, s, tc.method, tc.target, "")
		require.Equal(t, http.StatusUnauthorized, rr.Code, tc.target)
	}

	rr := doRequest(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
}
