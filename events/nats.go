package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/ZaguanLabs/gotmt"
)

// DefaultSubject is the NATS subject events are mirrored to.
const DefaultSubject = "gotmt.events"

// publisher is the part of *nats.Conn the mirror uses.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSMirror publishes every event as JSON on a NATS subject, for consumers
// outside the HTTP stream. It does not retain events.
type NATSMirror struct {
	conn    publisher
	subject string
	close   func()
}

// NewNATSMirror connects to the NATS server at url.
func NewNATSMirror(url, subject string) (*NATSMirror, error) {
	conn, err := nats.Connect(url, nats.Name("gotmt"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	m := newNATSMirror(conn, subject)
	m.close = conn.Close
	return m, nil
}

func newNATSMirror(conn publisher, subject string) *NATSMirror {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSMirror{conn: conn, subject: subject, close: func() {}}
}

// Publish sends the event on the mirror subject.
func (m *NATSMirror) Publish(ctx context.Context, event gotmt.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := m.conn.Publish(m.subject+"."+event.Type, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", m.subject, err)
	}
	return nil
}

// Close closes the NATS connection.
func (m *NATSMirror) Close() {
	m.close()
}

// Verify NATSMirror implements gotmt.Notifier
var _ gotmt.Notifier = (*NATSMirror)(nil)
