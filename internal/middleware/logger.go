package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/dockly/pkg/logger"
)

const traceHeader = "X-Cloud-Trace-Context"

type loggerMiddleware struct {
	Log       *slog.Logger
	ProjectID string
}

// NewLoggerMiddleware builds the request logger. With a projectID, entries
// are tied to the Cloud Run request trace.
func NewLoggerMiddleware(log *slog.Logger, projectID string) *loggerMiddleware {
	return &loggerMiddleware{Log: log, ProjectID: projectID}
}

// LoggerMiddleware initializes a request-scoped logger with request context
// and logs the outcome once the handler returns. It should run right after
// chi's RequestID.
func (m *loggerMiddleware) LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := chimiddleware.GetReqID(r.Context())

		enrichedLogger := m.Log.With(
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx := logger.ToContext(r.Context(), enrichedLogger)
		if trace := m.trace(r); trace != "" {
			ctx = logger.WithTrace(ctx, trace)
		}

		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		enrichedLogger.Log(ctx, level, "request completed",
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// trace turns "TRACE_ID/SPAN_ID;o=1" into projects/<id>/traces/TRACE_ID.
func (m *loggerMiddleware) trace(r *http.Request) string {
	if m.ProjectID == "" {
		return ""
	}
	id, _, _ := strings.Cut(r.Header.Get(traceHeader), "/")
	if id == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/traces/%s", m.ProjectID, id)
}
