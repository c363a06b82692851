package api

import (
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request, tagged with the chi request ID.
// Server errors log at Error and client errors at Warn. Successful image
// and asset fetches log at Debug, since a rendered page pulls many of them.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Log(r.Context(), requestLevel(r.URL.Path, status), "request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func requestLevel(p string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case isAsset(p):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func isAsset(p string) bool {
	switch path.Ext(p) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".css", ".js", ".ico":
		return true
	}
	return false
}
