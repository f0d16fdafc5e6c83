package log

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

var requestIDKey = ctxKey{}

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "catalog").Logger()

// Init sets the global level from a textual level (debug, info, warn, error).
// Unknown levels fall back to info.
func Init(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// Logger returns the base logger for components that keep their own child logger.
func Logger() zerolog.Logger {
	return logger
}

// SetOutput replaces the base logger, mostly for tests.
func SetOutput(l zerolog.Logger) {
	logger = l
}

// WithRequestID stores the request id used to correlate log lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func event(ctx context.Context, e *zerolog.Event) *zerolog.Event {
	if id := RequestID(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	return e
}

func Debugf(ctx context.Context, format string, args ...any) {
	event(ctx, logger.Debug()).Msgf(format, args...)
}

func Info(ctx context.Context, msg string) {
	event(ctx, logger.Info()).Msg(msg)
}

func Infof(ctx context.Context, format string, args ...any) {
	event(ctx, logger.Info()).Msgf(format, args...)
}

func Warn(ctx context.Context, msg string) {
	event(ctx, logger.Warn()).Msg(msg)
}

func Warnf(ctx context.Context, format string, args ...any) {
	event(ctx, logger.Warn()).Msgf(format, args...)
}

func Error(ctx context.Context, err error, msg string) {
	event(ctx, logger.Error()).Err(err).Msg(msg)
}

func Errorf(ctx context.Context, err error, format string, args ...any) {
	event(ctx, logger.Error()).Err(err).Msgf(format, args...)
}

// ErrorWithStack logs err together with the current goroutine stack.
func ErrorWithStack(ctx context.Context, err error, msg string) {
	event(ctx, logger.Error()).Err(err).Str("stack", string(debug.Stack())).Msg(msg)
}

// Fatal logs and exits the process.
func Fatal(ctx context.Context, err error, msg string) {
	event(ctx, logger.Fatal()).Err(err).Msg(msg)
}

// Access is one served API call. Route is the matched pattern such as
// /products/:id so lines group by endpoint rather than by product id.
type Access struct {
	Method    string
	Route     string
	Path      string
	Query     string
	ClientIP  string
	Principal string
	Status    int
	ErrorCode string
	Size      int
	Took      time.Duration
}

// AccessLog writes the access line for a call at a level derived from its status.
func AccessLog(ctx context.Context, a Access) {
	var e *zerolog.Event
	switch {
	case a.Status >= 500:
		e = logger.Error()
	case a.Status >= 400:
		e = logger.Warn()
	default:
		e = logger.Info()
	}
	e = event(ctx, e).
		Str("method", a.Method).
		Str("route", a.Route).
		Str("path", a.Path).
		Int("status", a.Status).
		Dur("duration", a.Took).
		Int("response_size", a.Size).
		Str("client_ip", a.ClientIP)
	if a.Query != "" {
		e = e.Str("query", a.Query)
	}
	if a.Principal != "" {
		e = e.Str("principal_id", a.Principal)
	}
	if a.ErrorCode != "" {
		e = e.Str("error_code", a.ErrorCode)
	}
	e.Msg("api call")
}

func PanicLog(ctx context.Context, a Access, recovered any) {
	event(ctx, logger.Error()).
		Str("method", a.Method).
		Str("route", a.Route).
		Str("path", a.Path).
		Str("panic", fmt.Sprintf("%v", recovered)).
		Str("stack", string(debug.Stack())).
		Msg("panic recovered")
}
