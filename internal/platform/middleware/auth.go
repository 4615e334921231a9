package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"marlin/pkg/domain"
	"marlin/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	ContactID string
	SessionID string
}

func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if token, ok := strings.CutPrefix(authHeader, bearerPrefix); ok {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					ctx := r.Context()
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
					writeUnauthorized(w, "Invalid or expired token")
					return
				}

				contactID, err := domain.ParseContactID(claims.ContactID)
				if err != nil {
					ctx := r.Context()
					logger.WarnContext(ctx, "unauthorized access - malformed contact ID",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
					writeUnauthorized(w, "Invalid or expired token")
					return
				}

				ctx := requestcontext.WithContactID(r.Context(), contactID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// No Authorization header or invalid format
			ctx := r.Context()
			logger.WarnContext(ctx, "unauthorized access - missing token",
				"request_id", requestcontext.RequestID(ctx),
			)
			writeUnauthorized(w, "Missing or invalid Authorization header")
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
