package middleware

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/viper"
)

// WideEventMiddleware emits a single structured log line per request,
// carrying whatever business-context fields handlers attached via
// WithStudentUID/WithDeviceID/WithDecisionID along the way.
func WideEventMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimiddleware.GetReqID(r.Context())
		if requestID == "" {
			requestID = strings.TrimSpace(r.Header.Get(chimiddleware.RequestIDHeader))
		}
		if requestID != "" && w.Header().Get(chimiddleware.RequestIDHeader) == "" {
			w.Header().Set(chimiddleware.RequestIDHeader, requestID)
		}

		event := &WideEvent{
			Timestamp:   start,
			RequestID:   requestID,
			Method:      r.Method,
			Path:        r.URL.Path,
			Service:     strings.TrimSpace(viper.GetString("service_name")),
			Version:     strings.TrimSpace(viper.GetString("service_version")),
			Environment: strings.TrimSpace(viper.GetString("app_env")),
		}

		ctx := withWideEvent(r.Context(), event)
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			event.StatusCode = wrapped.statusCode
			event.DurationMS = time.Since(start).Milliseconds()
			emitWideEventLog(event)
		}()

		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

// WithStudentUID records the student a handler acted on, for the wide event.
func WithStudentUID(ctx context.Context, uid int) {
	GetWideEvent(ctx).StudentUID = strconv.Itoa(uid)
}

// WithDeviceID records the device a handler acted on, for the wide event.
func WithDeviceID(ctx context.Context, deviceID string) {
	GetWideEvent(ctx).DeviceID = deviceID
}

// WithDecisionID records the pending decision a handler acted on.
func WithDecisionID(ctx context.Context, decisionID string) {
	GetWideEvent(ctx).DecisionID = decisionID
}

func emitWideEventLog(event *WideEvent) {
	attrs := []slog.Attr{
		slog.Time("timestamp", event.Timestamp),
		slog.String("method", event.Method),
		slog.String("path", event.Path),
		slog.Int("status_code", event.StatusCode),
		slog.Int64("duration_ms", event.DurationMS),
	}

	addOptional := func(key, value string) {
		if value != "" {
			attrs = append(attrs, slog.String(key, value))
		}
	}

	addOptional("request_id", event.RequestID)
	addOptional("service", event.Service)
	addOptional("version", event.Version)
	addOptional("environment", event.Environment)
	addOptional("student_uid", event.StudentUID)
	addOptional("device_id", event.DeviceID)
	addOptional("decision_id", event.DecisionID)
	addOptional("action", event.Action)

	if event.ErrorType != "" {
		attrs = append(attrs, slog.String("error_type", event.ErrorType))
		addOptional("error_code", event.ErrorCode)
		addOptional("error_message", event.ErrorMessage)
	}
	if event.WarningType != "" {
		attrs = append(attrs, slog.String("warning_type", event.WarningType))
		addOptional("warning_code", event.WarningCode)
		addOptional("warning_message", event.WarningMessage)
	}

	level := slog.LevelInfo
	switch {
	case event.StatusCode >= http.StatusInternalServerError:
		level = slog.LevelError
	case event.StatusCode >= http.StatusBadRequest:
		level = slog.LevelWarn
	}

	slog.LogAttrs(context.Background(), level, "request_completed", attrs...)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}

func (rw *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := rw.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}

func (rw *statusRecorder) ReadFrom(reader io.Reader) (int64, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	if rf, ok := rw.ResponseWriter.(io.ReaderFrom); ok {
		return rf.ReadFrom(reader)
	}
	return io.Copy(rw.ResponseWriter, reader)
}
