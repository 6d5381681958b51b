package httpserver

import (
	"net/http"
	"strings"

	"github.com/hacker-ring/weavespace-relay/internal/origin"
)

// originMiddleware enforces the origin policy on every browser request and
// answers CORS preflight so the frontend can live on a separate origin.
// Requests without an Origin header (curl, probes) pass untouched.
func (s *Server) originMiddleware() Middleware {
	policy := s.cfg.OriginPolicy()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Origin"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			normalized, host, ok := origin.Normalize(header)
			if !ok || !policy.Allowed(normalized, host, r.Host) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", normalized)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
				if reqHeaders := strings.TrimSpace(r.Header.Get("Access-Control-Request-Headers")); reqHeaders != "" {
					w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
				}
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
