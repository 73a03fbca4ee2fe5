package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/hrforms/internal/platform/httpx"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// TokenVerifier decodes a bearer access token into a caller identity.
type TokenVerifier interface {
	VerifyAccessToken(token string) (shared.Identity, error)
}

// DecisionRecorder observes access decisions.
type DecisionRecorder interface {
	ObserveDecision(api string, allowed bool)
}

// Middleware wires token authentication and route authorization for HTTP handlers.
type Middleware struct {
	Engine  *Engine
	Tokens  TokenVerifier
	Logger  *slog.Logger
	Metrics DecisionRecorder
}

// Authenticate requires a valid bearer access token and stores the identity in context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, m.Logger, shared.Authentication("Missing access token", shared.Context{"api": "rbac.authenticate"}))
			return
		}
		identity, err := m.Tokens.VerifyAccessToken(token)
		if err != nil {
			httpx.RespondError(w, m.Logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}

// Require authorises the request method against route.
func (m Middleware) Require(route Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, m.Logger, shared.Authentication("Missing access token", shared.Context{"api": route.API()}))
				return
			}
			verb, ok := ParseVerb(r.Method)
			if !ok {
				m.record(route, false)
				httpx.RespondError(w, m.Logger, shared.Authorization(deniedMessage, shared.Context{"api": route.API(), "method": r.Method}))
				return
			}
			if err := m.Engine.Authorize(r.Context(), identity, verb, route); err != nil {
				m.record(route, false)
				httpx.RespondError(w, m.Logger, err)
				return
			}
			m.record(route, true)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelf lets callers act on their own account unless it is soft-deleted.
func (m Middleware) RequireSelf(accounts AccountChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, m.Logger, shared.Authentication("Missing access token", shared.Context{"api": "rbac.self"}))
				return
			}
			if err := m.Engine.AuthorizeSelf(r.Context(), identity, accounts); err != nil {
				httpx.RespondError(w, m.Logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) record(route Route, allowed bool) {
	if m.Metrics != nil {
		m.Metrics.ObserveDecision(route.API(), allowed)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
