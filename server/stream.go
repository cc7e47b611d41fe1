package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const streamBatch = 100

// changeNotifier is implemented by event logs that can wake readers early.
type changeNotifier interface {
	Changed() <-chan struct{}
}

// handleStream sends events as server-sent events. Each event carries its log
// cursor as the SSE id, so a reconnecting client resumes after the last event
// it saw via Last-Event-ID. Without that header the retained log is replayed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "event stream not configured"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()
	cursor := r.Header.Get("Last-Event-ID")
	notifier, _ := s.events.(changeNotifier)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		var wake <-chan struct{}
		if notifier != nil {
			wake = notifier.Changed()
		}

		events, next, err := s.events.Since(ctx, cursor, streamBatch)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WarnContext(ctx, "reading events failed", slog.Any("error", err))
			cursor = next
		} else {
			for _, ev := range events {
				data, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "id: %s\ndata: %s\n\n", ev.Cursor, data); err != nil {
					return
				}
			}
			cursor = next
			if len(events) > 0 {
				flusher.Flush()
			}
			if len(events) == streamBatch {
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-wake:
		case <-ticker.C:
		}
	}
}
