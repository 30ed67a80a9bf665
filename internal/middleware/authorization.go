package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireAdmin rejects callers without the admin role. It must run after AuthMiddleware.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				logger.Warn("Actor not found in context", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !actor.IsAdmin() {
				logger.Warn("Non-admin user attempted a catalog mutation",
					zap.String("user_id", actor.UserID.String()),
					zap.String("role", actor.Role),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
