// Package events publishes domain events to RabbitMQ and consumes them into
// an append-only audit log.
package events

import (
	"context"
	"time"
)

// QueueName is the durable queue every event is routed to.
const QueueName = "figure.events"

// Event types.
const (
	UserSignedUp   = "user.signed_up"
	FigureCreated  = "figure.created"
	FigureUpdated  = "figure.updated"
	FigureReplaced = "figure.replaced"
	FigureDeleted  = "figure.deleted"
)

// Event is the message body published for every state change.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	FigureID   string    `json:"figure_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps an event with the current UTC time.
func New(typ, userID, figureID string) Event {
	return Event{Type: typ, UserID: userID, FigureID: figureID, OccurredAt: time.Now().UTC()}
}

// Publisher delivers events. Callers treat failures as non fatal.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
