package http

import (
	"context"
	"net/http"
	"strings"

	"gatepass-backend/internal/security"
)

type contextKey string

const operatorContextKey contextKey = "operator"

// authMiddleware requires a valid operator bearer token and attaches the
// claims to the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.tokenManager.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), operatorContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OperatorFromContext returns the authenticated operator claims, if any.
func OperatorFromContext(ctx context.Context) (*security.OperatorClaims, bool) {
	claims, ok := ctx.Value(operatorContextKey).(*security.OperatorClaims)
	return claims, ok
}
