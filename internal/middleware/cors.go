package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig lists the headers the CORS middleware emits.
type CORSConfig struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
}

// DefaultCORSConfig allows cross-origin reads from anywhere and caches
// preflight answers for a day.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       24 * time.Hour,
	}
}

// CORS stamps Access-Control-Allow-Origin on every response and answers
// preflight requests itself.
//
// PREFLIGHT:
// A browser sends OPTIONS before a cross-origin request it considers
// "non-simple". Any OPTIONS request, whatever the path, gets 200 with the
// allow headers and an empty body. Routing never sees it, so unknown paths
// still preflight fine.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.AllowOrigin)

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
