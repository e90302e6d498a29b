// Package logging defines the structured-logging interface used by the
// circulation tool and its slog-backed implementation.
package logging

import "context"

// Logger is what every component logs through. Args are alternating keys
// and values:
//
//	log.Info(ctx, "loan committed", "user", username, "book", bookID)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With tags every later record, e.g. With("component", "engine").
	With(args ...any) Logger
}
