// Package logging configures log/slog for the service and carries
// per-request attributes through context.
//
// Loggers obtained with FromContext include the chi request ID and, once
// the auth middleware has run, the ID of the acting user.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const actorIDKey ctxKey = iota

// Setup installs the default logger writing to stdout.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithActorID records the acting user's ID for later log entries.
func WithActorID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, actorIDKey, id)
}

// ActorID returns the ID stored by WithActorID.
func ActorID(ctx context.Context) string {
	id, _ := ctx.Value(actorIDKey).(string)
	return id
}

// FromContext returns the default logger enriched with request_id and
// actor_id when ctx carries them.
//
//	logger := logging.FromContext(r.Context())
//	logger.Info("lead updated", "lead_id", id)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if actor := ActorID(ctx); actor != "" {
		logger = logger.With("actor_id", actor)
	}
	return logger
}

// WithFields returns FromContext(ctx) with additional attributes, for
// multi-step operations that should log with consistent context.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
