package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/cartwish/pkg/messaging"
	"github.com/google/uuid"
)

// CartUpdatedEvent describes the cart state right after a mutation.
type CartUpdatedEvent struct {
	// Carrier holds the propagated trace context.
	Carrier        map[string]string `json:"carrier,omitempty"`
	UserID         uuid.UUID         `json:"user_id"`
	Operation      string            `json:"operation"`
	ProductID      uuid.UUID         `json:"product_id"`
	Quantity       int32             `json:"quantity"`
	TotalProducts  int32             `json:"total_products"`
	TotalCartPrice int64             `json:"total_cart_price"`
	Version        int32             `json:"version"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

func (e CartUpdatedEvent) Subject() string {
	return messaging.CartsUpdatedSubject
}

func (e CartUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
