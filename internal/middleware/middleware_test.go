package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dailymint/internal/auth"
	"dailymint/internal/metrics"
	"dailymint/internal/store/memory"
)

var secret = []byte("middleware-test-secret-32-bytes!")

func echoUser(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(UserID(r.Context())))
}

func TestRequireAuth(t *testing.T) {
	st := memory.New()
	m := NewAuthMiddleware(auth.NewJWTVerifier(secret, ""), st, "dailymint.app", nil, zap.NewNop())
	h := m.RequireAuth(http.HandlerFunc(echoUser))

	tok, err := auth.IssueToken(secret, "777", "dailymint.app", "", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "777", rec.Body.String())

	_, err = st.GetUser(context.Background(), "777")
	assert.NoError(t, err, "first authentication creates the user")

	// missing header
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "40101", body.Error.Code)

	// deactivated account
	require.NoError(t, st.DeactivateUser(context.Background(), "777"))
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuth_DomainFallsBackToHost(t *testing.T) {
	m := NewAuthMiddleware(auth.NewJWTVerifier(secret, ""), memory.New(), "", nil, nil)
	h := m.RequireAuth(http.HandlerFunc(echoUser))

	tok, err := auth.IssueToken(secret, "1", "mini.example.com", "", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://mini.example.com:8443/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "http://elsewhere.example.com/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	m := NewAuthMiddleware(auth.NewJWTVerifier(secret, ""), memory.New(), "dailymint.app", []string{"1"}, nil)
	h := m.RequireAuth(m.RequireAdmin(http.HandlerFunc(echoUser)))

	for sub, want := range map[string]int{"1": http.StatusOK, "2": http.StatusForbidden} {
		tok, err := auth.IssueToken(secret, sub, "dailymint.app", "", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/prompts/p1/deactivate", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, sub)
	}

	assert.False(t, IsAdmin(context.Background()))
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2, nil)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"), "burst exhausted")
	assert.True(t, l.Allow("u2"), "limits are per key")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("u1"), "refilled after a second")

	now = now.Add(time.Hour)
	l.Allow("u3")
	_, kept := l.limiters["u1"]
	assert.False(t, kept, "idle limiters are swept")
}

func TestRateLimiterHandler(t *testing.T) {
	l := NewRateLimiter(0.001, 1, nil)
	h := l.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) }))

	req := httptest.NewRequest(http.MethodPost, "/api/creations", nil).WithContext(WithUserID(context.Background(), "u1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/creations/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/creations/"+id, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/creations/{id}", "404")))
}
