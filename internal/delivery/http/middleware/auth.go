package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	h "eventsphere/internal/delivery/http/helpers"
	"eventsphere/internal/domain"
)

type contextKey string

const actorKey contextKey = "actor"

// SetActor returns a context carrying the authenticated actor. Used by auth middleware.
func SetActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the authenticated actor from the context, if present.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}

// UserIDFromContext returns the authenticated user ID from the context, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	actor, ok := ActorFromContext(ctx)
	return actor.ID, ok
}

// bearerToken extracts the token from the Authorization header. present is false when the header is absent.
func bearerToken(r *http.Request) (token string, present bool, msg string) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false, "missing authorization header"
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", true, "invalid authorization format"
	}
	token = strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", true, "missing token"
	}
	return token, true, ""
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the actor in the request context.
// If the token is missing or invalid, it responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, _, msg := bearerToken(r)
			if msg != "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, msg)
				return
			}
			actor, err := verifier.Verify(token)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			next(w, r.WithContext(SetActor(r.Context(), *actor)))
		}
	}
}

// OptionalAuth sets the actor when a valid Bearer token is sent and lets anonymous requests through.
// A token that is sent but invalid is still rejected with 401.
func OptionalAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	requireAuth := RequireAuth(verifier, logger)
	return func(next http.HandlerFunc) http.HandlerFunc {
		authed := requireAuth(next)
		return func(w http.ResponseWriter, r *http.Request) {
			if _, present, _ := bearerToken(r); !present {
				next(w, r)
				return
			}
			authed(w, r)
		}
	}
}

// RequireRole rejects actors whose role is not in roles with 403. It must run after RequireAuth.
func RequireRole(roles ...domain.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(roles, actor.Role) {
				h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "insufficient role")
				return
			}
			next(w, r)
		}
	}
}
