package auth

import (
	"context"
	"net/http"

	"github.com/campusboard/bulletin/internal/apperr"
	"github.com/campusboard/bulletin/internal/config"
	"github.com/campusboard/bulletin/internal/httpx"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const ContextKeyRole ContextKey = "role"

// Gate derives roles from shared-secret login and enforces the mutation
// predicate on the server side. The client-side check is advisory only;
// this one is not.
type Gate struct {
	contributorHash string
	adminHash       string

	sessions *SessionStore
}

func NewGate(contributorHash, adminHash string, sessions *SessionStore) *Gate {
	return &Gate{
		contributorHash: contributorHash,
		adminHash:       adminHash,
		sessions:        sessions,
	}
}

// Login derives a role from the submitted secret and issues a session
// token. An empty secret is a reader login. Any other secret must match a
// configured passphrase hash.
func (g *Gate) Login(secret string) (Role, string, error) {
	var role Role
	switch {
	case secret == "":
		role = RoleReader
	case VerifySecret(g.adminHash, secret):
		role = RoleAdministrator
	case VerifySecret(g.contributorHash, secret):
		role = RoleContributor
	default:
		authLogger.Warn().Msg("Login failed: secret matches no role")
		return RoleUnauthenticated, "", apperr.InvalidCredentials()
	}

	token := g.sessions.Issue(role)
	authLogger.Info().Str("role", string(role)).Msg("Login")
	return role, token, nil
}

func (g *Gate) Logout(token string) {
	g.sessions.Revoke(token)
}

// WithSessionRole resolves the session cookie to a role on every request.
// Requests without a valid session proceed as unauthenticated.
func (g *Gate) WithSessionRole() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleUnauthenticated
			if cookie, err := r.Cookie(config.CookieSession); err == nil && cookie.Value != "" {
				role = g.sessions.Role(cookie.Value)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithRole(r.Context(), role)))
		})
	}
}

// RequireMutate wraps a handler so only contributors and administrators
// reach it. Mutation endpoints must go through this regardless of any
// client-side gating.
func (g *Gate) RequireMutate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := RoleFromContext(r.Context())
		if role == RoleUnauthenticated {
			httpx.WriteError(w, r, apperr.InvalidCredentials())
			return
		}
		if !CanMutate(role) {
			authLogger.Warn().
				Str("role", string(role)).
				Str("path", r.URL.Path).
				Msg("Mutation denied")
			httpx.WriteError(w, r, apperr.Forbidden())
			return
		}
		next.ServeHTTP(w, r)
	}
}

// ContextWithRole returns a new context with the role set
func ContextWithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, ContextKeyRole, role)
}

// RoleFromContext extracts the role from context
func RoleFromContext(ctx context.Context) Role {
	if role, ok := ctx.Value(ContextKeyRole).(Role); ok {
		return role
	}
	return RoleUnauthenticated
}
