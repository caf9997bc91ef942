// Package logging builds the JSON slog logger shared by every binary.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

func New(level, service string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, service)
}

func NewWithWriter(w io.Writer, level, service string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(handler).With("service", service)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type contextKey struct{}

var jobIDKey = contextKey{}

func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobID returns the job id stored in ctx, or "".
func JobID(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey).(string)
	return id
}

// ForJob returns l annotated with the job id carried by ctx, if any.
func ForJob(ctx context.Context, l *slog.Logger) *slog.Logger {
	if id := JobID(ctx); id != "" {
		return l.With("job_id", id)
	}
	return l
}
