package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/theLastOfCats/storefront/internal/auth"
	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/logger"
)

type contextKey string

const UserIDKey contextKey = "userID"

type Middleware struct {
	DB     *db.DB
	Tokens *auth.Issuer
}

func (m *Middleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			JSONError(w, "Unauthorized", CodeSessionExpired, http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			JSONError(w, "Invalid authorization header", CodeSessionExpired, http.StatusUnauthorized)
			return
		}

		claims, err := m.Tokens.ValidateToken(parts[1])
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Session expired, please log in again"
			}
			JSONError(w, msg, CodeSessionExpired, http.StatusUnauthorized)
			return
		}

		// A valid token for a deleted user is still a dead session.
		exists, err := m.DB.UserExists(claims.UserID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if !exists {
			logger.Logger.Warn().Str("user_id", claims.UserID).Msg("AuthMiddleware: user not found")
			JSONError(w, "User not found", CodeSessionExpired, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserID(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// withUser adapts a handler that needs the authenticated user id.
func withUser(fn func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r)
		if !ok {
			JSONError(w, "Unauthorized", CodeSessionExpired, http.StatusUnauthorized)
			return
		}
		fn(w, r, userID)
	}
}
