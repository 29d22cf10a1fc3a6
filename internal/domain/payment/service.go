// internal/domain/payment/service.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/domain/order"
	"github.com/your-org/jewelry-backend/internal/domain/pricing"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

// Webhook events acted on. Everything else is acknowledged and ignored.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

// Gateway is the payment provider API
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*RazorpayOrder, error)
	Refund(ctx context.Context, paymentID string, req GatewayRefundRequest) (*RazorpayRefund, error)
}

// CartClearer empties a user's cart once their payment lands
type CartClearer interface {
	Clear(ctx context.Context, userID uint) error
}

// InitiateRequest is the body of POST /payments/create-order
type InitiateRequest struct {
	OrderID uint `json:"orderId" validate:"required"`
}

// InitiationResponse is what the checkout widget needs to collect payment
type InitiationResponse struct {
	RazorpayOrderID string `json:"razorpay_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Receipt         string `json:"receipt"`
	KeyID           string `json:"key_id"`
	OrderID         uint   `json:"orderId"`
	OrderNumber     string `json:"orderNumber"`
}

// VerifyRequest is the body of POST /payments/verify
type VerifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
	OrderID           uint   `json:"orderId" validate:"required"`
}

// FailureRequest is the body of POST /payments/failure
type FailureRequest struct {
	OrderID uint   `json:"orderId" validate:"required"`
	Reason  string `json:"reason" validate:"max=500"`
	Code    string `json:"code" validate:"max=100"`
}

// RefundRequest is the admin refund body. A missing amount refunds the rest.
type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// WebhookEvent is the envelope Razorpay posts to the webhook endpoint
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity RazorpayPayment `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity RazorpayOrder `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// Options holds the shared secrets used to check signatures
type Options struct {
	KeySecret     string
	WebhookSecret string
}

// Dependencies wires the payment service
type Dependencies struct {
	Orders     order.Repository
	UnitOfWork order.UnitOfWork
	Gateway    Gateway
	Carts      CartClearer
	Events     order.Publisher
	Logger     logrus.FieldLogger
}

// Service reconciles gateway payments with orders
type Service struct {
	orders  order.Repository
	uow     order.UnitOfWork
	gateway Gateway
	carts   CartClearer
	events  order.Publisher
	opts    Options
	logger  logrus.FieldLogger
	now     func() time.Time
}

// NewService creates a new payment service
func NewService(deps Dependencies, opts Options) *Service {
	if deps.Events == nil {
		deps.Events = order.NopPublisher{}
	}
	return &Service{
		orders:  deps.Orders,
		uow:     deps.UnitOfWork,
		gateway: deps.Gateway,
		carts:   deps.Carts,
		events:  deps.Events,
		opts:    opts,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

// CreateGatewayOrder opens a gateway order for an online-paid order that
// still awaits payment
func (s *Service) CreateGatewayOrder(ctx context.Context, actor order.Actor, orderID uint) (*InitiationResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o) {
		return nil, apperror.Forbidden("You do not have access to this order")
	}
	if err := checkPayable(o); err != nil {
		return nil, err
	}

	amount := pricing.ToMinorUnits(o.Pricing.Total)
	if o.Payment.GatewayOrderID != "" {
		// retries reuse the gateway order the widget may already hold
		return s.initiation(o, o.Payment.GatewayOrderID, amount), nil
	}

	rp, err := s.gateway.CreateOrder(ctx, GatewayOrderRequest{
		Amount:   amount,
		Currency: o.Currency,
		Receipt:  o.OrderNumber,
		Notes: map[string]string{
			"order_id":     fmt.Sprintf("%d", o.ID),
			"order_number": o.OrderNumber,
		},
	})
	if err != nil {
		return nil, err
	}

	gatewayOrderID := rp.ID
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		locked, err := tx.Orders().FindByIDForUpdate(ctx, o.ID)
		if err != nil {
			return err
		}
		if err := checkPayable(locked); err != nil {
			return err
		}
		if locked.Payment.GatewayOrderID != "" {
			gatewayOrderID = locked.Payment.GatewayOrderID
			return nil
		}
		locked.Payment.GatewayOrderID = rp.ID
		locked.UpdatedAt = s.now()
		return tx.Orders().Save(ctx, locked)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":         o.ID,
		"gateway_order_id": gatewayOrderID,
		"amount":           amount,
	}).Info("gateway order created")

	return s.initiation(o, gatewayOrderID, amount), nil
}

func (s *Service) initiation(o *order.Order, gatewayOrderID string, amount int64) *InitiationResponse {
	return &InitiationResponse{
		RazorpayOrderID: gatewayOrderID,
		Amount:          amount,
		Currency:        o.Currency,
		Receipt:         o.OrderNumber,
		KeyID:           s.gateway.KeyID(),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
	}
}

// VerifyAndApply checks the checkout widget's signature and marks the order
// paid. Verifying an already applied payment succeeds without changes.
func (s *Service) VerifyAndApply(ctx context.Context, actor order.Actor, req *VerifyRequest) (*order.Order, error) {
	if !VerifyPaymentSignature(s.opts.KeySecret, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.logger.WithField("order_id", req.OrderID).Warn("payment signature mismatch")
		return nil, apperror.SignatureInvalid("Invalid payment signature")
	}

	o, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o) {
		return nil, apperror.Forbidden("You do not have access to this order")
	}
	if o.Payment.GatewayOrderID != req.RazorpayOrderID {
		return nil, apperror.Validation("Payment does not belong to this order")
	}

	return s.apply(ctx, o.ID, req.RazorpayOrderID, req.RazorpayPaymentID, actor)
}

// HandleWebhook authenticates and applies a gateway notification
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !VerifyWebhookSignature(s.opts.WebhookSecret, body, signature) {
		s.logger.Warn("webhook signature mismatch")
		return apperror.SignatureInvalid("Invalid webhook signature")
	}

	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return apperror.Validation("Malformed webhook payload")
	}

	payment := ev.Payload.Payment.Entity
	gatewayOrderID := payment.OrderID
	if gatewayOrderID == "" {
		gatewayOrderID = ev.Payload.Order.Entity.ID
	}
	log := s.logger.WithFields(logrus.Fields{
		"event":            ev.Event,
		"gateway_order_id": gatewayOrderID,
		"payment_id":       payment.ID,
	})

	switch ev.Event {
	case EventPaymentCaptured, EventOrderPaid, EventPaymentFailed:
	default:
		log.Debug("webhook event ignored")
		return nil
	}

	o, err := s.orders.FindByGatewayOrderID(ctx, gatewayOrderID)
	if apperror.KindOf(err) == apperror.KindNotFound {
		log.Warn("webhook for unknown gateway order")
		return nil
	}
	if err != nil {
		return err
	}

	actor := order.SystemActor("webhook")
	if ev.Event == EventPaymentFailed {
		reason := payment.ErrorDescription
		if reason == "" {
			reason = payment.ErrorCode
		}
		_, err = s.fail(ctx, o.ID, reason, actor)
		return err
	}

	if payment.ID == "" {
		log.Warn("paid webhook without payment entity")
		return nil
	}
	_, err = s.apply(ctx, o.ID, gatewayOrderID, payment.ID, actor)
	return err
}

// RecordFailure stores a checkout failure reported by the client
func (s *Service) RecordFailure(ctx context.Context, actor order.Actor, req *FailureRequest) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o) {
		return nil, apperror.Forbidden("You do not have access to this order")
	}

	reason := req.Reason
	if req.Code != "" {
		reason = req.Code + ": " + reason
	}
	return s.fail(ctx, o.ID, reason, actor)
}

// Refund returns amount, or everything not yet refunded, to the customer
func (s *Service) Refund(ctx context.Context, actor order.Actor, orderID uint, amount *decimal.Decimal) (*order.Order, error) {
	if !actor.IsAdmin {
		return nil, apperror.Forbidden("Admin access required")
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Payment.Status != order.PaymentStatusPaid && o.Payment.Status != order.PaymentStatusPartiallyRefunded {
		return nil, apperror.InvalidState("Order %s has no captured payment to refund", o.OrderNumber)
	}
	if o.Payment.TransactionID == "" {
		return nil, apperror.InvalidState("Order %s has no gateway payment to refund", o.OrderNumber)
	}

	refundable := o.RefundableAmount()
	amt := refundable
	if amount != nil {
		amt = amount.Round(2)
	}
	if !amt.IsPositive() || amt.GreaterThan(refundable) {
		return nil, apperror.Validation("Refund amount must be between 0.01 and %s", refundable.StringFixed(2))
	}

	rf, err := s.gateway.Refund(ctx, o.Payment.TransactionID, GatewayRefundRequest{
		Amount: pricing.ToMinorUnits(amt),
		Notes:  map[string]string{"order_number": o.OrderNumber},
	})
	if err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		o, err = tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.ApplyRefund(amt, rf.ID); err != nil {
			return err
		}
		if o.Payment.Status == order.PaymentStatusRefunded && order.CanTransition(o.Status, order.OrderStatusRefunded) {
			if err := o.UpdateStatus(order.OrderStatusRefunded, "Payment refunded ("+rf.ID+")", actor, false, s.now()); err != nil {
				return err
			}
		}
		o.UpdatedAt = s.now()
		return tx.Orders().Save(ctx, o)
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id":  orderID,
			"refund_id": rf.ID,
		}).Error("gateway refund succeeded but order update failed")
		return nil, err
	}

	s.publish(ctx, order.EventOrderRefunded, o)
	s.logger.WithFields(logrus.Fields{
		"order_id":  o.ID,
		"refund_id": rf.ID,
		"amount":    amt.StringFixed(2),
		"actor":     actor.Label(),
	}).Info("payment refunded")
	return o, nil
}

// apply marks the order paid exactly once. The row lock serializes the
// client verify call and the webhook for the same payment. A capture that
// lands after the order was cancelled is recorded and refunded in full.
func (s *Service) apply(ctx context.Context, orderID uint, gatewayOrderID, paymentID string, actor order.Actor) (*order.Order, error) {
	var o *order.Order
	var applied, late bool
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		var err error
		o, err = tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Payment.GatewayOrderID != gatewayOrderID {
			return apperror.Validation("Payment does not belong to this order")
		}

		late = o.Status == order.OrderStatusCancelled
		applied, err = o.MarkPaid(paymentID, actor, s.now())
		if err != nil || !applied {
			return err
		}
		o.UpdatedAt = s.now()
		return tx.Orders().Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"order_id":   o.ID,
		"payment_id": paymentID,
		"actor":      actor.Label(),
	})
	if !applied {
		log.Debug("payment already applied")
		return o, nil
	}

	if late {
		log.Warn("payment captured on a cancelled order, refunding")
		refunded, err := s.Refund(ctx, order.SystemActor("late-capture"), o.ID, nil)
		if err != nil {
			log.WithError(err).Error("failed to refund payment on cancelled order")
			return o, nil
		}
		return refunded, nil
	}

	if err := s.carts.Clear(ctx, o.UserID); err != nil {
		log.WithError(err).Error("failed to clear cart after payment")
	}
	s.publish(ctx, order.EventOrderPaid, o)
	log.Info("payment applied")
	return o, nil
}

func (s *Service) fail(ctx context.Context, orderID uint, reason string, actor order.Actor) (*order.Order, error) {
	var o *order.Order
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		var err error
		o, err = tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.MarkPaymentFailed(reason) {
			return nil
		}
		o.UpdatedAt = s.now()
		return tx.Orders().Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":       o.ID,
		"payment_status": o.Payment.Status,
		"reason":         reason,
		"actor":          actor.Label(),
	}).Info("payment failure recorded")
	return o, nil
}

func (s *Service) publish(ctx context.Context, typ order.EventType, o *order.Order) {
	if err := s.events.Publish(ctx, order.NewEvent(typ, o, s.now())); err != nil {
		s.logger.WithError(err).WithField("order_id", o.ID).Warn("failed to publish order event")
	}
}

func checkPayable(o *order.Order) error {
	if !o.Payment.Method.IsPrepaid() {
		return apperror.Validation("Order %s is cash on delivery", o.OrderNumber)
	}
	if o.Payment.Status != order.PaymentStatusPending && o.Payment.Status != order.PaymentStatusFailed {
		return apperror.InvalidState("Order %s payment is already %s", o.OrderNumber, o.Payment.Status)
	}
	if o.Status != order.OrderStatusPending {
		return apperror.InvalidState("Order %s cannot be paid in status %s", o.OrderNumber, o.Status)
	}
	return nil
}
