package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrek/skilltrek-hub/internal/application/command"
	"github.com/skilltrek/skilltrek-hub/internal/application/query"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"
)

const knownUserID = "4f9d26cc-8a5b-4e9e-9f10-3a2b1c0d9e8f"

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*user.Profile
	byEmail map[string]*user.Profile
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[string]*user.Profile),
		byEmail: make(map[string]*user.Profile),
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, p *user.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[p.Email]; ok {
		return shared.ErrUserExists
	}
	cp := *p
	r.byID[p.ID.String()] = &cp
	r.byEmail[p.Email] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID shared.UserID) (*user.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[userID.String()]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byEmail[email]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeUserRepo) TopByXP(ctx context.Context, limit int) ([]*user.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*user.Profile, 0, len(r.byID))
	for _, p := range r.byID {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalXP > out[j].TotalXP })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error { return p.err }

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

func newTestServer(t *testing.T, users *fakeUserRepo, mutate func(*Config)) *Server {
	t.Helper()

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0 // individual tests opt in
	if mutate != nil {
		mutate(&cfg)
	}

	deps := Dependencies{
		RegisterUser:   command.NewRegisterUserHandler(users, nil),
		GetProgression: query.NewGetProgressionHandler(users),
		GetLeaderboard: query.NewGetLeaderboardHandler(users, nil, nil),
		HealthTargets:  map[string]Pinger{"postgres": &fakePinger{}},
	}

	return NewServer(cfg, deps)
}

func seedUser(t *testing.T, users *fakeUserRepo, totalXP, level int) {
	t.Helper()
	uid, err := shared.NewUserID(knownUserID)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &user.Profile{
		ID:       uid,
		Email:    "trekker@example.com",
		Username: "trekker",
		TotalXP:  totalXP,
		Level:    level,
	}))
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, newFakeUserRepo(), nil)

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestServer_HealthDegraded(t *testing.T) {
	s := newTestServer(t, newFakeUserRepo(), nil)
	s.deps.HealthTargets["redis"] = &fakePinger{err: errors.New("connection refused")}

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_RegisterUser(t *testing.T) {
	users := newFakeUserRepo()
	s := newTestServer(t, users, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/users", map[string]string{
		"email":    "new@example.com",
		"username": "newcomer",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "new@example.com", data["email"])
	assert.Equal(t, "newcomer", data["username"])
	assert.Equal(t, float64(1), data["level"])
	assert.Equal(t, float64(0), data["total_xp"])
}

func TestServer_RegisterUser_Validation(t *testing.T) {
	s := newTestServer(t, newFakeUserRepo(), nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/users", map[string]string{
		"email":    "not-an-email",
		"username": "newcomer",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_error", resp.Error.Code)
}

func TestServer_RegisterUser_Duplicate(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, 0, 1)
	s := newTestServer(t, users, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/users", map[string]string{
		"email":    "trekker@example.com",
		"username": "trekker",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_RegisterUser_MalformedBody(t *testing.T) {
	s := newTestServer(t, newFakeUserRepo(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetProgression(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, 800, 2)
	s := newTestServer(t, users, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/users/"+knownUserID+"/progression", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(800), data["total_xp"])
	assert.Equal(t, float64(2), data["level"])
	assert.Equal(t, float64(300), data["xp_to_next_level"])
}

func TestServer_GetProgression_NotFound(t *testing.T) {
	s := newTestServer(t, newFakeUserRepo(), nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/users/"+knownUserID+"/progression", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestServer_GetLeaderboard(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, 1200, 3)
	s := newTestServer(t, users, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/leaderboard?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	entries := data["entries"].([]interface{})
	require.Len(t, entries, 1)

	first := entries[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, "trekker", first["username"])
}

func TestServer_RequestIDPropagation(t *testing.T) {
	s := newTestServer(t, newFakeUserRepo(), nil)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestServer_RequestIDGenerated(t *testing.T) {
	s := newTestServer(t, newFakeUserRepo(), nil)

	rec := doRequest(t, s, http.MethodGet, "/live", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_RateLimit(t *testing.T) {
	s := newTestServer(t, newFakeUserRepo(), func(cfg *Config) {
		cfg.RateLimitPerMinute = 2
	})

	for i := 0; i < 2; i++ {
		rec := doRequest(t, s, http.MethodGet, "/live", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, s, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestServer_UnknownRoute(t *testing.T) {
	s := newTestServer(t, newFakeUserRepo(), nil)

	rec := doRequest(t, s, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t, newFakeUserRepo(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leaderboard", nil)
	req.Header.Set("Origin", "https://app.skilltrek.dev")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.skilltrek.dev", rec.Header().Get("Access-Control-Allow-Origin"))
}
