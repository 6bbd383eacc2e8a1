// Package notify tells dependent views that users or addresses changed.
//
// Every successful mutation produces one Event. Events always reach the
// in-process Hub (which feeds the SSE stream) and can additionally be
// published to Redis, so every instance's hub sees them, or to a RabbitMQ
// fanout exchange for consumers outside the console.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entities
const (
	EntityUser    = "user"
	EntityAddress = "address"
)

// Actions
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event describes a single change.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Entity      string    `json:"entity"`
	Action      string    `json:"action"`
	UserID      int64     `json:"userId"`
	AddressType string    `json:"addressType,omitempty"`
	ValidFrom   string    `json:"validFrom,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewEvent stamps a change with an id and the current time.
func NewEvent(entity string, action string, userID int64) Event {
	return Event{
		ID:         uuid.New(),
		Entity:     entity,
		Action:     action,
		UserID:     userID,
		OccurredAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// Name is used as the SSE event name, e.g. "address.created".
func (e Event) Name() string {
	return e.Entity + "." + e.Action
}

// Publisher delivers events. Publishing never fails the caller, implementations
// log their own delivery errors.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Fanout publishes every event to all of its publishers in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) {
	for _, p := range f {
		p.Publish(ctx, e)
	}
}
