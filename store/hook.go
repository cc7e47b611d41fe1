package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/uptrace/bun"
)

// ANSI color codes for tint.Attr.
const (
	tintDuration = 214
	tintQuery    = 2
)

// queryLogger logs failed queries at error level, slow queries at warn
// level and everything else at debug level.
type queryLogger struct {
	logger        *slog.Logger
	slowThreshold time.Duration
}

func newQueryLogger(logger *slog.Logger, slow time.Duration) *queryLogger {
	return &queryLogger{logger: logger, slowThreshold: slow}
}

func (h *queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogger) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)

	failed := event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows)
	slow := h.slowThreshold > 0 && elapsed >= h.slowThreshold

	level := slog.LevelDebug
	msg := "query executed"
	switch {
	case failed:
		level, msg = slog.LevelError, "query failed"
	case slow:
		level, msg = slog.LevelWarn, "query is slow"
	}
	if !h.logger.Enabled(ctx, level) {
		return
	}

	attrs := []slog.Attr{
		tint.Attr(tintDuration, slog.Duration("duration", elapsed)),
		tint.Attr(tintQuery, slog.String("query", event.Query)),
	}
	if failed {
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	h.logger.LogAttrs(ctx, level, msg, attrs...)
}

var _ bun.QueryHook = (*queryLogger)(nil)
