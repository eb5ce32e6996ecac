package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Tooba-Farooq/4eyes/internal/metrics"
)

// UnmatchedRoute is the metrics route label for requests no route matched.
const UnmatchedRoute = "unmatched"

// Logging logs one line per request and records request metrics labelled
// by the matched chi route pattern. The raw path only goes to the log line.
func Logging(logger *zap.Logger, rec *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := UnmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			elapsed := time.Since(start)
			rec.HTTPRequest(r.Method, route, status, elapsed)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", elapsed),
				zap.String("correlation_id", GetCorrelationID(r.Context())),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
