package middleware

import (
	"context"
	"net/http"

	"krume-backend/internal/domain"
	"krume-backend/pkg/logger"
	"krume-backend/pkg/utils"
)

// AuthMiddleware builds the user from the access token claims. Tokens are minted by the
// identity service; only the signature and expiry are checked here.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := utils.ExtractClaims(r)
		if err != nil || claims.UserID == "" {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized: Invalid or missing token")
			return
		}

		user := &domain.User{
			ID:    claims.UserID,
			Email: claims.Email,
			Role:  claims.Role,
		}

		reqLogger := logger.WithUserID(*logger.WithContext(r.Context()), user.ID)
		ctx := context.WithValue(r.Context(), domain.UserContextKey, user)
		ctx = logger.NewContext(ctx, &reqLogger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
