package middleware

import (
	"crypto/subtle"
	"net/http"
)

// ServiceAuth guards internal endpoints (dispatch webhook, governor trigger,
// generator invocations) with the shared service bearer token. These calls
// act as a trusted internal principal, never as an end user.
func ServiceAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := bearerToken(r)
			if !ok || token == "" {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
