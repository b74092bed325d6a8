package middleware

import (
	"net/http"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

// AuthMiddleware resolves the caller from the access token. Requests without
// a token continue anonymously; a token that fails verification is rejected.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := auth.ExtractAccessToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(key, raw)
			if err != nil {
				logger.FromCtx(r.Context()).Warn("rejected access token",
					zap.String("layer", "middleware"),
					zap.Error(err),
				)
				utils.WriteError(r.Context(), w, utils.NewError("unauthenticated", "invalid or expired token", http.StatusUnauthorized))
				return
			}

			ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Role)
			ctx = logger.WithFields(ctx,
				zap.Int64("user_id", claims.UserID),
				zap.String("role", claims.Role),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteError(r.Context(), w, utils.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !utils.IsAdmin(r.Context()) {
			utils.WriteError(r.Context(), w, utils.NewError("forbidden", "admin role required", http.StatusForbidden))
			return
		}
		next.ServeHTTP(w, r)
	}))
}
