package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ZaguanLabs/gotmt"
)

// DefaultStream is the Redis stream key events are appended to.
const DefaultStream = "gotmt:events"

// RedisLog stores events in a capped Redis stream so that several server
// processes share one log. Cursors are stream entry IDs.
type RedisLog struct {
	client   redis.UniversalClient
	stream   string
	capacity int64
	logger   *slog.Logger
}

// RedisLogConfig configures a RedisLog.
type RedisLogConfig struct {
	Stream   string // Stream key (default: DefaultStream)
	Capacity int    // Retained events (default: DefaultCapacity)
	Logger   *slog.Logger
}

// NewRedisLog creates a RedisLog on an existing client.
func NewRedisLog(client redis.UniversalClient, cfg RedisLogConfig) *RedisLog {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RedisLog{
		client:   client,
		stream:   cfg.Stream,
		capacity: int64(cfg.Capacity),
		logger:   cfg.Logger,
	}
}

// Publish appends the event to the stream, trimming it to capacity.
func (r *RedisLog) Publish(ctx context.Context, event gotmt.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.capacity,
		Values: []any{"event", string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("appending event to %s: %w", r.stream, err)
	}
	return nil
}

// Since reads events after cursor. An empty cursor reads from the start of
// the stream.
func (r *RedisLog) Since(ctx context.Context, cursor string, limit int) ([]gotmt.Event, string, error) {
	start := "-"
	if cursor != "" {
		start = "(" + cursor
	}

	var (
		msgs []redis.XMessage
		err  error
	)
	if limit > 0 {
		msgs, err = r.client.XRangeN(ctx, r.stream, start, "+", int64(limit)).Result()
	} else {
		msgs, err = r.client.XRange(ctx, r.stream, start, "+").Result()
	}
	if err != nil {
		if cursor != "" && isInvalidStreamID(err) {
			// Restart from the beginning rather than failing every poll.
			cursor = ""
		}
		return nil, cursor, fmt.Errorf("reading %s: %w", r.stream, err)
	}

	out := make([]gotmt.Event, 0, len(msgs))
	for _, msg := range msgs {
		cursor = msg.ID

		raw, _ := msg.Values["event"].(string)
		var ev gotmt.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			r.logger.WarnContext(ctx, "skipping undecodable event",
				slog.String("id", msg.ID),
				slog.Any("error", err),
			)
			continue
		}
		ev.Cursor = msg.ID
		out = append(out, ev)
	}
	return out, cursor, nil
}

func isInvalidStreamID(err error) bool {
	return strings.Contains(err.Error(), "Invalid stream ID")
}

// Verify RedisLog implements gotmt.Notifier and gotmt.EventReader
var (
	_ gotmt.Notifier    = (*RedisLog)(nil)
	_ gotmt.EventReader = (*RedisLog)(nil)
)
