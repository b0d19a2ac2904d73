// Package stream defines the ordered, at-least-once event source consumed by
// the background workers, plus its Redis Streams and in-memory drivers.
package stream

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("subscription closed")

// Event is one delivery of a payload. It stays pending at the source until
// Ack is called; unacknowledged events are delivered again later.
type Event struct {
	ID      string
	Payload string
	ack     func(ctx context.Context) error
}

func NewEvent(id, payload string, ack func(ctx context.Context) error) Event {
	return Event{ID: id, Payload: payload, ack: ack}
}

// Ack tells the source the event need not be redelivered.
func (e Event) Ack(ctx context.Context) error {
	if e.ack == nil {
		return nil
	}
	return e.ack(ctx)
}

// Source opens subscriptions on an event stream.
type Source interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription yields batches of events. Fetch may return an empty batch when
// nothing arrived within the driver's poll window.
type Subscription interface {
	Fetch(ctx context.Context) ([]Event, error)
	Close() error
}

// Publisher appends payloads to a stream and returns the assigned event ID.
type Publisher interface {
	Publish(ctx context.Context, payload string) (string, error)
}
