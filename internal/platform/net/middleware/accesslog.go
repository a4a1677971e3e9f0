package middleware

import (
	"net/http"
	"slices"
	"time"

	"connectors/internal/platform/logger"
	pnet "connectors/internal/platform/net"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// AccessLogOptions configures AccessLogZerolog
type AccessLogOptions struct {
	// Slow logs requests at or above this duration as warn; zero disables
	Slow time.Duration
	// Quiet paths log at debug since probes hit them every few seconds
	Quiet []string
}

// AccessLogZerolog logs one line per request under component=http
func AccessLogZerolog(opt AccessLogOptions) func(http.Handler) http.Handler {
	log := logger.Named("http")
	level := func(status int, elapsed time.Duration, path string) zerolog.Level {
		switch {
		case opt.Slow > 0 && elapsed >= opt.Slow:
			return zerolog.WarnLevel
		case status >= http.StatusInternalServerError:
			return zerolog.ErrorLevel
		case slices.Contains(opt.Quiet, path):
			return zerolog.DebugLevel
		default:
			return zerolog.InfoLevel
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			log.WithLevel(level(status, elapsed, r.URL.Path)).
				Int("status", status).
				Dur("elapsed", elapsed).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", pnet.RequestID(r.Context())).
				Int("bytes", ww.BytesWritten()).
				Msg("request done")
		})
	}
}
