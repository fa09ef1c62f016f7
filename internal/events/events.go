// Package events publishes order lifecycle events.
package events

import (
	"context"
	"time"

	"vapestore/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent describes a change to an order.
type OrderEvent struct {
	EventID       string            `json:"eventId"`
	Type          string            `json:"type"`
	OrderID       string            `json:"orderId"`
	CustomerEmail string            `json:"customerEmail"`
	Status        model.OrderStatus `json:"status"`
	Total         model.Money       `json:"total"`
	Currency      string            `json:"currency"`
	PaymentID     string            `json:"paymentId,omitempty"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewOrderEvent builds an event for the order's current state.
func NewOrderEvent(eventType string, o *model.Order, source string) OrderEvent {
	return OrderEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		OrderID:       o.ID,
		CustomerEmail: o.CustomerEmail,
		Status:        o.Status,
		Total:         o.Total,
		Currency:      o.Currency,
		PaymentID:     o.PaymentID,
		Source:        source,
		Timestamp:     time.Now().UTC(),
	}
}

// Publisher delivers order events. Implementations log failures instead of
// returning them; an undelivered event never fails the order write.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent)
	Close() error
}

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

// Publish logs the event at debug level.
func (p *LogPublisher) Publish(_ context.Context, event OrderEvent) {
	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("type", event.Type).
		Str("order_id", event.OrderID).
		Str("status", string(event.Status)).
		Msg("order event")
}

// Close is a no-op.
func (p *LogPublisher) Close() error {
	return nil
}
