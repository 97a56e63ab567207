package middleware

import "net/http"

// SecurityHeaders sets the response headers every gateway reply
// carries. Responses hold personal health content, so caching is
// disabled outright.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, max-age=0")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")

		next.ServeHTTP(w, r)
	})
}
