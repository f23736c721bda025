package adminapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cyprienbrisset/ffemonitor/internal/metrics"
)

// statusRecorder captures the response status for logging and metrics,
// since http.ResponseWriter doesn't expose it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogger logs one line per request at debug level, in the
// teacher's component-logger style rather than an access-log format.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("admin request")
	})
}

// metricsRecorder increments AdminRequestsTotal by route and status.
func (s *Server) metricsRecorder(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.AdminRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
	})
}
