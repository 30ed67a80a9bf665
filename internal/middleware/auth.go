package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"price-catalog/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const ActorKey contextKey = "actor"

// AuthMiddleware validates bearer tokens and stores the caller's Actor in the request context
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			actor, err := actorFromClaims(token)
			if err != nil {
				logger.Warn("Rejected token claims", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", actor.UserID.String()),
				zap.String("role", actor.Role),
			)

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func actorFromClaims(token *jwt.Token) (domain.Actor, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return domain.Actor{}, errors.New("unexpected claims type")
	}

	rawID, ok := claims["user_id"].(string)
	if !ok {
		return domain.Actor{}, errors.New("missing user_id claim")
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return domain.Actor{}, errors.New("user_id claim is not a uuid")
	}

	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return domain.Actor{}, errors.New("missing role claim")
	}

	return domain.Actor{UserID: userID, Role: role}, nil
}

// WithActor returns a copy of ctx carrying actor
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor extracts the authenticated caller from the request context
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(domain.Actor)
	return actor, ok
}
