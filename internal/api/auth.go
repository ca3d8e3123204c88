package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// requireBearer wraps next with a JWT bearer-token check against
// signingKey. A missing or empty signingKey means auth is not configured
// and every request is rejected, rather than silently allowed through.
func requireBearer(signingKey string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if signingKey == "" {
			http.Error(w, `{"error":"auth_not_configured"}`, http.StatusServiceUnavailable)
			return
		}

		authHeader := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			http.Error(w, `{"error":"missing_bearer_token"}`, http.StatusUnauthorized)
			return
		}
		tokenString := strings.TrimPrefix(authHeader, prefix)

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(signingKey), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
