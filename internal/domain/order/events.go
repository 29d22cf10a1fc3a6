package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names an order event published for downstream consumers
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderPaid          EventType = "order.paid"
	EventOrderCancelled     EventType = "order.cancelled"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderRefunded      EventType = "order.refunded"
)

// Event is the message body published after an order change commits
type Event struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	OrderID       uint            `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	UserID        uint            `json:"userId"`
	Email         string          `json:"email,omitempty"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// NewEvent snapshots o into an event of the given type
func NewEvent(typ EventType, o *Order, now time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          typ,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Email:         o.Email,
		Status:        o.Status,
		PaymentStatus: o.Payment.Status,
		Total:         o.Pricing.Total,
		Currency:      o.Currency,
		OccurredAt:    now,
	}
}

// Publisher delivers order events. Delivery is best effort: failures are
// logged by the caller and never undo the committed change.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
