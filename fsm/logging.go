package fsm

import (
	"context"
	"log/slog"
)

// Logger provides logging hooks for machine operations.
type Logger interface {
	TransitionApplied(ctx context.Context, entityID, transition, from, to string)
	TransitionRejected(ctx context.Context, entityID, transition, state string)
	ListenerFailed(ctx context.Context, entityID, transition string, phase Phase, err error)
	BulkApplied(ctx context.Context, transition string, affected int64, err error)
}

// DefaultLogger implements Logger using slog.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger that writes to slog.Default().
func NewDefaultLogger() *DefaultLogger {
	return NewSlogLogger(nil)
}

// NewSlogLogger creates a logger that writes to l, or to slog.Default() if l is nil.
func NewSlogLogger(l *slog.Logger) *DefaultLogger {
	if l == nil {
		l = slog.Default()
	}

	return &DefaultLogger{logger: l}
}

func (l *DefaultLogger) TransitionApplied(ctx context.Context, entityID, transition, from, to string) {
	l.logger.InfoContext(ctx, "Transition applied",
		"entity_id_hash", hashID(entityID),
		"transition", transition,
		"from", from,
		"to", to,
	)
}

func (l *DefaultLogger) TransitionRejected(ctx context.Context, entityID, transition, state string) {
	l.logger.DebugContext(ctx, "Transition rejected",
		"entity_id_hash", hashID(entityID),
		"transition", transition,
		"state", state,
	)
}

func (l *DefaultLogger) ListenerFailed(ctx context.Context, entityID, transition string, phase Phase, err error) {
	l.logger.ErrorContext(ctx, "Transition listener failed",
		"entity_id_hash", hashID(entityID),
		"transition", transition,
		"phase", string(phase),
		"error", err,
	)
}

func (l *DefaultLogger) BulkApplied(ctx context.Context, transition string, affected int64, err error) {
	if err != nil {
		l.logger.ErrorContext(ctx, "Bulk transition failed",
			"transition", transition,
			"affected", affected,
			"error", err,
		)

		return
	}

	l.logger.InfoContext(ctx, "Bulk transition applied",
		"transition", transition,
		"affected", affected,
	)
}
