package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwright/tagwright-server/internal/auth"
	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/jobs"
	"github.com/tagwright/tagwright-server/internal/metrics"
	"github.com/tagwright/tagwright-server/internal/service"
	"github.com/tagwright/tagwright-server/internal/sse"
	"github.com/tagwright/tagwright-server/internal/store/sqlite"
	"github.com/tagwright/tagwright-server/internal/taxonomy"
)

// testEnvelope decodes a success envelope with typed data.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testErrorEnvelope decodes a coded error envelope.
type testErrorEnvelope struct {
	Version int      `json:"v"`
	Success bool     `json:"success"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api     humatest.TestAPI
	db      *sqlite.Store
	metrics *metrics.Prometheus
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWithOptions(t, Options{})
}

func setupTestServerWithOptions(t *testing.T, opts Options) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokenService, err := auth.NewTokenService(key, 15*time.Minute)
	require.NoError(t, err)

	sseManager := sse.NewManager(logger)
	prom := metrics.NewPrometheus()
	validator := &taxonomy.Validator{}
	forum := service.NewForumService(db, "[bulk]", logger)
	notifier := service.NewNotifier(db, sseManager, logger)

	services := &Services{
		Auth: service.NewAuthService(db, tokenService, logger),
		BulkUpdate: service.NewBulkUpdateService(
			db,
			jobs.NewInline(logger),
			service.NewApplier(db, validator, prom, logger),
			forum,
			notifier,
			validator,
			sseManager,
			prom,
			logger,
		),
		Taxonomy: service.NewTaxonomyService(db, logger),
		Forum:    forum,
		Notifier: notifier,
	}

	s := NewServer(db, services, sseManager, prom, opts, logger)

	t.Cleanup(func() {
		s.Close()
		_ = db.Close() //nolint:errcheck // Test cleanup
	})

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.API()),
		db:      db,
		metrics: prom,
	}
}

// createUser registers an account and returns it with a bearer header.
func (ts *testServer) createUser(t *testing.T, name string, level domain.Level) (*domain.User, string) {
	t.Helper()
	ctx := context.Background()

	user, err := ts.services.Auth.CreateUser(ctx, service.CreateUserRequest{
		Name:     name,
		Password: "correct-horse",
		Level:    level,
	})
	require.NoError(t, err)

	resp, err := ts.services.Auth.Login(ctx, service.LoginRequest{Name: name, Password: "correct-horse"})
	require.NoError(t, err)

	return user, "Authorization: Bearer " + resp.AccessToken
}

func (ts *testServer) createPost(t *testing.T, tags ...string) int64 {
	t.Helper()
	p := &domain.Post{Tags: tags}
	require.NoError(t, ts.db.CreatePost(context.Background(), p))
	return p.ID
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &envelope), string(body))
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	return envelope
}

func decodeError(t *testing.T, body []byte) testErrorEnvelope {
	t.Helper()
	var envelope testErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope), string(body))
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.False(t, envelope.Success)
	return envelope
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decode[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.Equal(t, "healthy", envelope.Data.Status)
	assert.Equal(t, "healthy", envelope.Data.Components["database"].Status)
	assert.Equal(t, "no connected clients", envelope.Data.Components["sse"].Message)
}

func TestFormatSSEStatus(t *testing.T) {
	assert.Equal(t, "no connected clients", formatSSEStatus(0))
	assert.Equal(t, "1 connected client", formatSSEStatus(1))
	assert.Equal(t, "12 connected clients", formatSSEStatus(12))
}

func TestLogin(t *testing.T) {
	ts := setupTestServer(t)
	ts.createUser(t, "albert", domain.LevelAdmin)

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"name":     "albert",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decode[AuthResponse](t, resp.Body.Bytes())
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.Equal(t, 900, envelope.Data.ExpiresIn)
	assert.Equal(t, "admin", envelope.Data.User.Level)
	assert.True(t, envelope.Data.User.IsAdmin)

	me := ts.api.Get("/api/v1/users/me", "Authorization: Bearer "+envelope.Data.AccessToken)
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	assert.Equal(t, "albert", decode[UserResponse](t, me.Body.Bytes()).Data.Name)

	bad := ts.api.Post("/api/v1/auth/login", map[string]any{
		"name":     "albert",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, bad.Body.Bytes()).Code)
}

func TestLoginRateLimit(t *testing.T) {
	ts := setupTestServerWithOptions(t, Options{LoginPerMinute: 2})
	ts.createUser(t, "albert", domain.LevelAdmin)

	body := map[string]any{"name": "albert", "password": "wrong-password"}
	for range 2 {
		resp := ts.api.Post("/api/v1/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	resp := ts.api.Post("/api/v1/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, resp.Body.Bytes()).Code)
}

func TestCreateUser_AdminOnly(t *testing.T) {
	ts := setupTestServer(t)
	_, admin := ts.createUser(t, "albert", domain.LevelAdmin)
	_, member := ts.createUser(t, "bob", domain.LevelMember)

	body := map[string]any{"name": "carol", "password": "long-enough", "level": "builder"}

	resp := ts.api.Post("/api/v1/users", member, body)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/users", admin, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	user := decode[UserResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, "carol", user.Name)
	assert.Equal(t, "builder", user.Level)
	assert.False(t, user.IsAdmin)

	resp = ts.api.Post("/api/v1/users", admin, body)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "ALREADY_EXISTS", decodeError(t, resp.Body.Bytes()).Code)
}

func TestRequiresAuthentication(t *testing.T) {
	ts := setupTestServer(t)

	paths := []string{
		"/api/v1/bulk-update-requests",
		"/api/v1/bulk-update-requests/1",
		"/api/v1/tags",
		"/api/v1/tags/aaa",
		"/api/v1/tag-aliases",
		"/api/v1/tag-implications",
		"/api/v1/posts/1",
		"/api/v1/forum-topics/1",
		"/api/v1/notifications",
		"/api/v1/users/me",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp := ts.api.Get(path)
			assert.Equal(t, http.StatusUnauthorized, resp.Code)
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp.Body.Bytes()).Code)
		})
	}

	resp := ts.api.Get("/api/v1/users/me", "Authorization: Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestEventsRequireAuthentication(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/events")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	ts.metrics.Transition("pending")

	resp := ts.api.Get("/metrics")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `tagwright_bur_transitions_total{status="pending"} 1`)
}
