package messaging

import (
	"context"
)

// CartsUpdatedSubject receives one message per successful cart mutation.
const CartsUpdatedSubject = "carts.updated"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error {
	return nil
}
