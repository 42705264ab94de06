package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/canteen/config"
)

type CORSOptions struct {
	AllowedOrigins []string // "*" allows any origin
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int // preflight cache, seconds
}

// DefaultCORSOptions allows the methods and headers the composer and
// scanner APIs use, for the origins in CORS_ORIGINS (comma separated,
// default "*").
func DefaultCORSOptions() CORSOptions {
	var origins []string
	for _, o := range strings.Split(config.Get("CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return CORSOptions{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Session-Id", "X-Request-ID"},
		MaxAge:         300,
	}
}

// CORS answers preflights with 204 and adds the allow headers to requests
// from permitted origins. Other origins get no CORS headers at all.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	anyOrigin := slices.Contains(opts.AllowedOrigins, "*")
	methods := strings.Join(opts.AllowedMethods, ", ")
	headers := strings.Join(opts.AllowedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			switch {
			case anyOrigin:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(opts.AllowedOrigins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			default:
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Expose-Headers", "X-Session-Id, X-Request-ID")
			if opts.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(opts.MaxAge))
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
