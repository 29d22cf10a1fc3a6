package order

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

// transitions is the order lifecycle. Statuses without an entry are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusReturned, OrderStatusRefunded},
	OrderStatusReturned:   {OrderStatusRefunded},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:           {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:            {PaymentStatusPaid},
	PaymentStatusPaid:              {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
	PaymentStatusPartiallyRefunded: {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
}

// IsValid reports whether s is a known order status
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned, OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle has an edge from -> to
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func canTransitionPayment(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// UpdateStatus moves the order to status and appends a timeline entry.
// Edges outside the lifecycle fail with an invalid state error unless force is set.
func (o *Order) UpdateStatus(status OrderStatus, note string, actor Actor, force bool, now time.Time) error {
	if !status.IsValid() {
		return apperror.Validation("Unknown order status %q", status)
	}
	if !CanTransition(o.Status, status) {
		if !force {
			return apperror.InvalidState("Cannot change order status from %s to %s", o.Status, status)
		}
		if note == "" {
			note = "forced transition from " + string(o.Status)
		} else {
			note = "forced: " + note
		}
	}

	o.appendTimeline(status, note, actor, now)
	return nil
}

// Cancel moves a pending or confirmed order to cancelled
func (o *Order) Cancel(reason string, actor Actor, now time.Time) error {
	if !o.CanBeCancelled() {
		return apperror.InvalidState("Order %s cannot be cancelled in status %s", o.OrderNumber, o.Status)
	}
	o.CancelReason = reason
	o.appendTimeline(OrderStatusCancelled, reason, actor, now)
	return nil
}

// MarkPaid records a captured payment and confirms a pending order. It
// reports false without changing anything when the payment was already
// applied, so repeated notifications for one payment are harmless.
func (o *Order) MarkPaid(transactionID string, actor Actor, now time.Time) (bool, error) {
	switch o.Payment.Status {
	case PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return false, nil
	}
	if !canTransitionPayment(o.Payment.Status, PaymentStatusPaid) {
		return false, apperror.InvalidState("Payment cannot be marked paid from %s", o.Payment.Status)
	}

	paidAt := now
	o.Payment.Status = PaymentStatusPaid
	o.Payment.TransactionID = transactionID
	o.Payment.PaidAt = &paidAt
	o.Payment.FailureReason = ""

	if o.Status == OrderStatusPending {
		o.appendTimeline(OrderStatusConfirmed, "Payment received ("+transactionID+")", actor, now)
	}
	return true, nil
}

// MarkPaymentFailed records a failed attempt. A paid order is left untouched.
func (o *Order) MarkPaymentFailed(reason string) bool {
	if !canTransitionPayment(o.Payment.Status, PaymentStatusFailed) {
		return false
	}
	o.Payment.Status = PaymentStatusFailed
	o.Payment.FailureReason = reason
	return true
}

// ApplyRefund records a gateway refund of amount. A refund covering the
// whole total marks the payment refunded, anything less partially refunded.
func (o *Order) ApplyRefund(amount decimal.Decimal, refundID string) error {
	if !amount.IsPositive() {
		return apperror.Validation("Refund amount must be positive")
	}
	remaining := o.Pricing.Total.Sub(o.Payment.RefundedAmount)
	if amount.GreaterThan(remaining) {
		return apperror.Validation("Refund of %s exceeds refundable amount %s", amount.StringFixed(2), remaining.StringFixed(2))
	}

	next := PaymentStatusPartiallyRefunded
	if amount.Equal(remaining) {
		next = PaymentStatusRefunded
	}
	if !canTransitionPayment(o.Payment.Status, next) {
		return apperror.InvalidState("Payment in status %s cannot be refunded", o.Payment.Status)
	}

	o.Payment.Status = next
	o.Payment.RefundedAmount = o.Payment.RefundedAmount.Add(amount)
	o.Payment.RefundID = refundID
	return nil
}

// RefundableAmount is what remains to be refunded on a paid order
func (o *Order) RefundableAmount() decimal.Decimal {
	return o.Pricing.Total.Sub(o.Payment.RefundedAmount)
}

func (o *Order) appendTimeline(status OrderStatus, note string, actor Actor, now time.Time) {
	o.Status = status
	o.Timeline = append(o.Timeline, TimelineEntry{
		OrderID:   o.ID,
		Status:    status,
		Note:      note,
		Actor:     actor.Label(),
		CreatedAt: now,
	})
}

// SetTracking records carrier details. It is allowed while the order is
// being processed or in transit and adds no timeline entry.
func (o *Order) SetTracking(carrier, number, url string, now time.Time) error {
	if o.Status != OrderStatusProcessing && o.Status != OrderStatusShipped {
		return apperror.InvalidState("Tracking cannot be added to an order in status %s", o.Status)
	}
	updated := now
	o.Tracking = Tracking{Carrier: carrier, Number: number, URL: url, UpdatedAt: &updated}
	return nil
}
