package log

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/mastershashi/llm-engineering-usecases/internal/errors"
)

// Logger provides structured logging with slog
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a new Logger with the given configuration
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{
		Level:     config.Level.ToSlogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	switch config.Format {
	case FormatText:
		handler = slog.NewTextHandler(config.Output.Writer(), opts)
	default:
		handler = slog.NewJSONHandler(config.Output.Writer(), opts)
	}

	logger := slog.New(handler)
	if config.ServiceName != "" {
		logger = logger.With("service", config.ServiceName)
	}

	return &Logger{
		slog:   logger,
		config: config,
	}
}

// Default creates a logger with default configuration
func Default() *Logger {
	return New(DefaultConfig())
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(Config{Level: LevelError, Format: FormatText, Output: NewOutput(discardWriter{})})
}

// With returns a new Logger with the given attributes added to all log entries
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
	}
}

// Component tags every entry with the subsystem that produced it
// (channel, store, session, approval, rewind, api).
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// WithPlan tags every entry with a plan id.
func (l *Logger) WithPlan(planID string) *Logger {
	return l.With("plan_id", planID)
}

// WithError adds error details to the logger.
// AmsabErrors anywhere in the chain contribute error_code and suggestions.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With(errorAttrs(err, false)...)
}

func errorAttrs(err error, full bool) []any {
	var amsabErr *errors.AmsabError
	if !stderrors.As(err, &amsabErr) {
		return []any{"error", err.Error()}
	}

	args := []any{
		"error", amsabErr.Message,
		"error_code", string(amsabErr.Code),
	}
	if len(amsabErr.Suggestions) > 0 {
		args = append(args, "suggestions", amsabErr.Suggestions)
	}
	if full && amsabErr.DocsURL != "" {
		args = append(args, "docs_url", amsabErr.DocsURL)
	}
	if amsabErr.Cause != nil {
		args = append(args, "cause", amsabErr.Cause.Error())
	}
	return args
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// DebugContext logs a debug message with context
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// InfoContext logs an info message with context
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// WarnContext logs a warning message with context
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// ErrorContext logs an error message with context
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slog.ErrorContext(ctx, msg, args...)
}

// LogError logs err under msg with full AmsabError details
func (l *Logger) LogError(msg string, err error) {
	l.LogErrorContext(context.Background(), msg, err)
}

// LogErrorContext logs err under msg with full AmsabError details and context
func (l *Logger) LogErrorContext(ctx context.Context, msg string, err error) {
	if err == nil {
		return
	}
	l.slog.ErrorContext(ctx, msg, errorAttrs(err, true)...)
}

// Enabled returns whether the logger is enabled for the given level
func (l *Logger) Enabled(ctx context.Context, level Level) bool {
	return l.slog.Enabled(ctx, level.ToSlogLevel())
}

// Handler returns the underlying slog.Handler
func (l *Logger) Handler() slog.Handler {
	return l.slog.Handler()
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
