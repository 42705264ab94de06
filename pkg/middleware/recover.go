package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/shashiranjanraj/canteen/pkg/logger"
	"github.com/shashiranjanraj/canteen/pkg/metrics"
	"github.com/shashiranjanraj/canteen/pkg/response"
)

// Recovery turns a handler panic into a 500 envelope, logs the stack and
// counts it per route. http.ErrAbortHandler is re-raised so net/http can
// drop the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			route := metrics.Route(r)
			metrics.Panics.WithLabelValues(route).Inc()
			logger.WithCtx(r.Context()).Error("panic recovered",
				"panic", fmt.Sprint(v),
				"method", r.Method,
				"route", route,
				"stack", string(debug.Stack()),
			)
			response.Error(w, http.StatusInternalServerError, "")
		}()
		next.ServeHTTP(w, r)
	})
}
