package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// LogrusLogger wraps a logrus logger to implement the Logger interface.
type LogrusLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewLogrusLogger creates a new LogrusLogger with JSON formatter writing to stdout.
func NewLogrusLogger(level string) *LogrusLogger {
	return newLogrusLogger(level, &logrus.JSONFormatter{}, os.Stdout)
}

// NewConsoleLogger creates a LogrusLogger with a human-readable text formatter.
// Used by the interactive commands, where a run is watched from a terminal.
func NewConsoleLogger(level string, w io.Writer) *LogrusLogger {
	return newLogrusLogger(level, &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	}, w)
}

// New picks the formatter by name ("json" or "text").
func New(level, format string) *LogrusLogger {
	if format == "text" {
		return NewConsoleLogger(level, os.Stderr)
	}
	return NewLogrusLogger(level)
}

func newLogrusLogger(level string, formatter logrus.Formatter, w io.Writer) *LogrusLogger {
	logger := logrus.New()
	logger.SetFormatter(formatter)
	logger.SetOutput(w)

	// Parse and set log level
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	return &LogrusLogger{
		logger: logger,
		entry:  logrus.NewEntry(logger),
	}
}

// Debug logs a debug-level message.
func (l *LogrusLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withContext(ctx, fields).Debug(msg)
}

// Info logs an info-level message.
func (l *LogrusLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withContext(ctx, fields).Info(msg)
}

// Warn logs a warning-level message.
func (l *LogrusLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withContext(ctx, fields).Warn(msg)
}

// Error logs an error-level message.
func (l *LogrusLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withContext(ctx, fields).Error(msg)
}

// WithField returns a new logger with the given field added.
func (l *LogrusLogger) WithField(key string, value interface{}) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.entry.WithField(key, value),
	}
}

// WithFields returns a new logger with the given fields added.
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{
		logger: l.logger,
		entry:  l.entry.WithFields(fields),
	}
}

// withContext attaches call fields and, when ctx carries a recording span,
// the trace and span ids so log lines can be joined with exported traces.
func (l *LogrusLogger) withContext(ctx context.Context, fields map[string]interface{}) *logrus.Entry {
	entry := l.entry
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	if ctx == nil {
		return entry
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		entry = entry.WithFields(logrus.Fields{
			"trace_id": sc.TraceID().String(),
			"span_id":  sc.SpanID().String(),
		})
	}
	return entry.WithContext(ctx)
}
