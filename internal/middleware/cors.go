package middleware

import (
	"net/http"
	"strings"
)

// CORS allows the configured origins. origin is a comma-separated list whose
// entries may hold one "*" wildcard, e.g. "https://yield-*.vercel.app".
func CORS(origin string) func(http.Handler) http.Handler {
	patterns := splitOrigins(origin)
	fallback := "*"
	if len(patterns) > 0 {
		fallback = patterns[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqOrigin := r.Header.Get("Origin")
			allowed := fallback

			if reqOrigin != "" && isAllowed(reqOrigin, patterns) {
				allowed = reqOrigin
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-History-Source")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func splitOrigins(origin string) []string {
	var out []string
	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func isAllowed(reqOrigin string, patterns []string) bool {
	for _, p := range patterns {
		if p == "*" || p == reqOrigin {
			return true
		}
		prefix, suffix, ok := strings.Cut(p, "*")
		if ok && len(reqOrigin) > len(prefix)+len(suffix) &&
			strings.HasPrefix(reqOrigin, prefix) && strings.HasSuffix(reqOrigin, suffix) {
			return true
		}
	}
	return false
}
