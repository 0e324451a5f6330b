package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/hardcorelimbo/internal/api/apierr"
	"github.com/mcoot/hardcorelimbo/internal/services/auth"
)

type contextKey string

const actorContextKey contextKey = "actor"

// ActorHeader names who is issuing an admin command, for the audit log
const ActorHeader = "X-Hlimbo-Actor"

const defaultActor = "api"

// Auth creates admin token middleware. It also records the requesting actor.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authService.Verify(extractToken(r)); err != nil {
				apierr.WriteError(w, err)
				return
			}

			actor := strings.TrimSpace(r.Header.Get(ActorHeader))
			if actor == "" {
				actor = defaultActor
			}
			ctx := context.WithValue(r.Context(), actorContextKey, actor)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// GetActor returns the actor recorded by Auth, or "api" outside it
func GetActor(ctx context.Context) string {
	if actor, ok := ctx.Value(actorContextKey).(string); ok {
		return actor
	}
	return defaultActor
}
