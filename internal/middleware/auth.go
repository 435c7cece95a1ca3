package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"dailymint/internal/apperr"
	"dailymint/internal/auth"
	"dailymint/internal/response"
	"dailymint/internal/store"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	adminKey
)

// UserID returns the authenticated subject, or "" outside RequireAuth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// IsAdmin reports whether the authenticated subject may manage prompts.
func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(adminKey).(bool)
	return ok
}

type AuthMiddleware struct {
	verifier auth.Verifier
	users    store.Users
	domain   string
	admins   map[string]struct{}
	logger   *zap.Logger
}

// NewAuthMiddleware verifies bearer tokens against domain; an empty domain
// falls back to the request host. Subjects in admins are flagged as admins.
func NewAuthMiddleware(v auth.Verifier, users store.Users, domain string, admins []string, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		set[a] = struct{}{}
	}
	return &AuthMiddleware{verifier: v, users: users, domain: domain, admins: set, logger: logger}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			response.Error(w, r, m.logger, apperr.Unauthorized("missing token", nil))
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))

		sub, err := m.verifier.Verify(r.Context(), tokenStr, m.domainFor(r))
		if err != nil {
			m.logger.Debug("token rejected", zap.Error(err))
			response.Error(w, r, m.logger, err)
			return
		}

		user, err := m.users.EnsureUser(r.Context(), sub)
		if err != nil {
			response.Error(w, r, m.logger, err)
			return
		}
		if user.DeactivatedAt != nil {
			response.Error(w, r, m.logger, apperr.Forbidden("account deactivated"))
			return
		}

		ctx := WithUserID(r.Context(), sub)
		if _, ok := m.admins[sub]; ok {
			ctx = context.WithValue(ctx, adminKey, true)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects subjects outside the admin list. It must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			response.Error(w, r, m.logger, apperr.Forbidden("admin only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) domainFor(r *http.Request) string {
	if m.domain != "" {
		return m.domain
	}
	if host, _, err := net.SplitHostPort(r.Host); err == nil {
		return host
	}
	return r.Host
}
