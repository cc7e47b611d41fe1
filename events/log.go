// Package events provides change-event logs that the HTTP stream reads from
// and the Service publishes to.
package events

import (
	"context"
	"strconv"
	"sync"

	"github.com/ZaguanLabs/gotmt"
)

// DefaultCapacity is the number of events a log retains.
const DefaultCapacity = 300

// Log is an append-only in-memory event log. Once full, the oldest event is
// dropped on every append. Cursors are decimal sequence numbers.
type Log struct {
	mu       sync.Mutex
	events   []gotmt.Event
	seq      uint64
	capacity int
	changed  chan struct{}
}

// NewLog creates a log that retains at most capacity events.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		events:   make([]gotmt.Event, 0, capacity),
		capacity: capacity,
		changed:  make(chan struct{}),
	}
}

// Publish appends an event and wakes waiting readers.
func (l *Log) Publish(ctx context.Context, event gotmt.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	event.Cursor = strconv.FormatUint(l.seq, 10)

	if len(l.events) == l.capacity {
		copy(l.events, l.events[1:])
		l.events = l.events[:len(l.events)-1]
	}
	l.events = append(l.events, event)

	close(l.changed)
	l.changed = make(chan struct{})
	return nil
}

// Since returns up to limit events published after cursor, oldest first, and
// the cursor to pass on the next call. A limit of zero or less means no
// limit. An empty or unparsable cursor reads from the oldest retained event.
func (l *Log) Since(ctx context.Context, cursor string, limit int) ([]gotmt.Event, string, error) {
	after, _ := strconv.ParseUint(cursor, 10, 64)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Sequence numbers are contiguous, so the first newer event is found by offset.
	start := 0
	if len(l.events) > 0 {
		first := l.seq - uint64(len(l.events)) + 1
		if after >= first {
			start = int(after - first + 1)
		}
	}
	if start >= len(l.events) {
		if cursor == "" || after > l.seq {
			return nil, strconv.FormatUint(l.seq, 10), nil
		}
		return nil, cursor, nil
	}

	end := len(l.events)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	out := make([]gotmt.Event, end-start)
	copy(out, l.events[start:end])
	return out, out[len(out)-1].Cursor, nil
}

// Changed returns a channel that is closed by the next Publish.
func (l *Log) Changed() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.changed
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Verify Log implements gotmt.Notifier and gotmt.EventReader
var (
	_ gotmt.Notifier    = (*Log)(nil)
	_ gotmt.EventReader = (*Log)(nil)
)
