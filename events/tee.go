package events

import (
	"context"
	"errors"

	"github.com/ZaguanLabs/gotmt"
)

// Tee publishes each event to every notifier in order. All notifiers are
// tried; their errors are joined.
type Tee []gotmt.Notifier

// Publish implements gotmt.Notifier.
func (t Tee) Publish(ctx context.Context, event gotmt.Event) error {
	var errs []error
	for _, n := range t {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
