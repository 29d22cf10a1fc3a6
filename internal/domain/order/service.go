// internal/domain/order/service.go
package order

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/domain/cart"
	"github.com/your-org/jewelry-backend/internal/domain/inventory"
	"github.com/your-org/jewelry-backend/internal/domain/pricing"
	"github.com/your-org/jewelry-backend/internal/domain/product"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

const orderNumberSequence = "order_number"

// Repository persists orders with their items and timeline. Save updates the
// order row and inserts timeline entries that have not been stored yet.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uint) (*Order, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int64, error)
	Save(ctx context.Context, o *Order) error
	NextSequence(ctx context.Context, name string) (int64, error)
}

// ProductReader reads catalog rows inside a transaction
type ProductReader interface {
	FindByID(ctx context.Context, id uint) (*product.Product, error)
}

// StockLedger reserves and releases stock for an order
type StockLedger interface {
	Reserve(ctx context.Context, orderID uint, lines []inventory.Line) error
	Release(ctx context.Context, orderID uint, lines []inventory.Line, reason inventory.MovementReason) error
}

// Tx exposes the stores bound to one database transaction
type Tx interface {
	Orders() Repository
	Products() ProductReader
	Stock() StockLedger
}

// UnitOfWork runs fn in a transaction, committing when it returns nil
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// CartStore is the part of the cart service checkout needs
type CartStore interface {
	GetCart(ctx context.Context, userID uint) (*cart.Cart, error)
	Clear(ctx context.Context, userID uint) error
}

// ProductInvalidator drops cached catalog entries whose stock changed
type ProductInvalidator interface {
	Invalidate(ctx context.Context, ids ...uint)
}

// Refunder returns money for a paid order through the payment gateway.
// A nil amount refunds whatever is left.
type Refunder interface {
	Refund(ctx context.Context, actor Actor, orderID uint, amount *decimal.Decimal) (*Order, error)
}

// Options configures order numbering and currency
type Options struct {
	NumberPrefix string
	NumberWidth  int
	Currency     string
}

// Dependencies wires the order service
type Dependencies struct {
	Orders     Repository
	UnitOfWork UnitOfWork
	Carts      CartStore
	Products   ProductInvalidator
	Refunds    Refunder
	Events     Publisher
	Pricing    pricing.Calculator
	Logger     logrus.FieldLogger
}

// Service handles order business logic
type Service struct {
	orders   Repository
	uow      UnitOfWork
	carts    CartStore
	products ProductInvalidator
	refunds  Refunder
	events   Publisher
	pricing  pricing.Calculator
	opts     Options
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewService creates a new order service
func NewService(deps Dependencies, opts Options) *Service {
	if opts.NumberWidth <= 0 {
		opts.NumberWidth = 6
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if deps.Events == nil {
		deps.Events = NopPublisher{}
	}
	return &Service{
		orders:   deps.Orders,
		uow:      deps.UnitOfWork,
		carts:    deps.Carts,
		products: deps.Products,
		refunds:  deps.Refunds,
		events:   deps.Events,
		pricing:  deps.Pricing,
		opts:     opts,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// SetRefunder installs the refund path used when a paid order is cancelled
func (s *Service) SetRefunder(r Refunder) {
	s.refunds = r
}

// CreateFromCart turns the user's cart into a pending order. Prices are
// re-read from the catalog and stock is taken in the same transaction that
// inserts the order.
func (s *Service) CreateFromCart(ctx context.Context, actor Actor, email string, req *CreateOrderRequest) (*Order, error) {
	c, err := s.carts.GetCart(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, apperror.Validation("Cart is empty")
	}

	method := PaymentMethod(req.PaymentMethod)
	shipping := normalizeAddress(req.ShippingAddress)
	billing := shipping
	if req.BillingAddress != nil && !req.BillingAddress.IsZero() {
		billing = normalizeAddress(*req.BillingAddress)
	}

	var o *Order
	var lines []inventory.Line
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		seq, err := tx.Orders().NextSequence(ctx, orderNumberSequence)
		if err != nil {
			return fmt.Errorf("failed to allocate order number: %w", err)
		}

		items, priced, stock, err := snapshot(ctx, tx.Products(), c.Items)
		if err != nil {
			return err
		}
		lines = stock

		now := s.now()
		o = &Order{
			OrderNumber:     FormatOrderNumber(s.opts.NumberPrefix, s.opts.NumberWidth, seq),
			UserID:          actor.UserID,
			Email:           email,
			Currency:        s.opts.Currency,
			Notes:           req.Notes,
			Payment:         Payment{Method: method, Status: PaymentStatusPending},
			ShippingAddress: shipping,
			BillingAddress:  billing,
			Items:           items,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		o.SetPricing(s.pricing.Calculate(priced, decimal.Zero))
		o.appendTimeline(OrderStatusPending, "Order placed", actor, now)

		if err := tx.Orders().Create(ctx, o); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return tx.Stock().Reserve(ctx, o.ID, lines)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStock(ctx, lines)
	if !method.IsPrepaid() {
		if err := s.carts.Clear(ctx, actor.UserID); err != nil {
			s.logger.WithError(err).WithField("order_id", o.ID).Error("failed to clear cart after order")
		}
	}
	s.publish(ctx, EventOrderCreated, o)

	s.logger.WithFields(logrus.Fields{
		"order_id":       o.ID,
		"order_number":   o.OrderNumber,
		"user_id":        o.UserID,
		"payment_method": method,
		"total":          o.Pricing.Total.StringFixed(2),
	}).Info("order created")
	return o, nil
}

// GetOrder returns an order the actor is allowed to see
func (s *Service) GetOrder(ctx context.Context, actor Actor, id uint) (*Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o) {
		return nil, apperror.Forbidden("You do not have access to this order")
	}
	return o, nil
}

// ListOrders returns a page of orders, newest first. Customers only see
// their own orders.
func (s *Service) ListOrders(ctx context.Context, actor Actor, filter ListFilter) (*ListResponse, error) {
	if !actor.IsAdmin {
		uid := actor.UserID
		filter.UserID = &uid
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperror.Validation("Unknown order status %q", filter.Status)
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []Order{}
	}

	return &ListResponse{
		Orders:     orders,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

// UpdateStatus moves an order along its lifecycle on behalf of an admin.
// Cancelling or returning an order puts its stock back.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id uint, req *UpdateStatusRequest) (*Order, error) {
	if !actor.IsAdmin {
		return nil, apperror.Forbidden("Admin access required")
	}

	var o *Order
	var released []inventory.Line
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		o, err = tx.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		prev := o.Status
		if req.Status == OrderStatusCancelled && !req.Force {
			err = o.Cancel(req.Note, actor, s.now())
		} else {
			err = o.UpdateStatus(req.Status, req.Note, actor, req.Force, s.now())
		}
		if err != nil {
			return err
		}

		if reason, ok := restockReason(prev, o.Status); ok {
			released = stockLines(o.Items)
			if err := tx.Stock().Release(ctx, o.ID, released, reason); err != nil {
				return err
			}
		}

		o.UpdatedAt = s.now()
		return tx.Orders().Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStock(ctx, released)
	if o.Status == OrderStatusCancelled {
		s.publish(ctx, EventOrderCancelled, o)
		return s.refundCancelled(ctx, o), nil
	}
	s.publish(ctx, EventOrderStatusChanged, o)

	s.logger.WithFields(logrus.Fields{
		"order_id": o.ID,
		"status":   o.Status,
		"actor":    actor.Label(),
		"forced":   req.Force,
	}).Info("order status updated")
	return o, nil
}

// Cancel cancels a pending or confirmed order and restocks its items. A paid
// order is refunded in full after the cancellation commits.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uint, reason string) (*Order, error) {
	var o *Order
	var released []inventory.Line
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		o, err = tx.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccess(o) {
			return apperror.Forbidden("You do not have access to this order")
		}
		if reason == "" {
			reason = "Cancelled by customer"
		}
		if err := o.Cancel(reason, actor, s.now()); err != nil {
			return err
		}

		released = stockLines(o.Items)
		if err := tx.Stock().Release(ctx, o.ID, released, inventory.ReasonCancellation); err != nil {
			return err
		}

		o.UpdatedAt = s.now()
		return tx.Orders().Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStock(ctx, released)
	s.publish(ctx, EventOrderCancelled, o)
	s.logger.WithFields(logrus.Fields{
		"order_id": o.ID,
		"actor":    actor.Label(),
	}).Info("order cancelled")

	return s.refundCancelled(ctx, o), nil
}

// AddTracking attaches carrier details to a processing or shipped order
func (s *Service) AddTracking(ctx context.Context, actor Actor, id uint, req *TrackingRequest) (*Order, error) {
	if !actor.IsAdmin {
		return nil, apperror.Forbidden("Admin access required")
	}

	var o *Order
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		o, err = tx.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := o.SetTracking(req.Carrier, req.Number, req.URL, s.now()); err != nil {
			return err
		}
		o.UpdatedAt = s.now()
		return tx.Orders().Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// refundCancelled refunds a cancelled order that was already paid. A failed
// refund leaves the order cancelled and paid so an admin can retry it.
func (s *Service) refundCancelled(ctx context.Context, o *Order) *Order {
	if o.Payment.Status != PaymentStatusPaid && o.Payment.Status != PaymentStatusPartiallyRefunded {
		return o
	}

	log := s.logger.WithField("order_id", o.ID)
	if s.refunds == nil {
		log.Warn("cancelled order is paid but no refund path is configured")
		return o
	}

	refunded, err := s.refunds.Refund(ctx, SystemActor("cancellation"), o.ID, nil)
	if err != nil {
		log.WithError(err).Error("failed to refund cancelled order")
		return o
	}
	return refunded
}

func (s *Service) invalidateStock(ctx context.Context, lines []inventory.Line) {
	if s.products == nil || len(lines) == 0 {
		return
	}
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	s.products.Invalidate(ctx, ids...)
}

func (s *Service) publish(ctx context.Context, typ EventType, o *Order) {
	if err := s.events.Publish(ctx, NewEvent(typ, o, s.now())); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": o.ID,
			"event":    typ,
		}).Warn("failed to publish order event")
	}
}

// snapshot freezes the current catalog data for every cart line
func snapshot(ctx context.Context, products ProductReader, cartItems []cart.CartItem) ([]OrderItem, []pricing.Line, []inventory.Line, error) {
	items := make([]OrderItem, 0, len(cartItems))
	priced := make([]pricing.Line, 0, len(cartItems))
	stock := make([]inventory.Line, 0, len(cartItems))

	for _, ci := range cartItems {
		p, err := products.FindByID(ctx, ci.ProductID)
		if err != nil {
			if apperror.KindOf(err) == apperror.KindNotFound {
				return nil, nil, nil, apperror.Validation("Product %d is no longer available", ci.ProductID)
			}
			return nil, nil, nil, fmt.Errorf("failed to load product: %w", err)
		}

		purchase, err := p.Resolve(ci.VariantID)
		if err != nil {
			return nil, nil, nil, err
		}

		item := OrderItem{
			ProductID:    p.ID,
			VariantID:    purchase.VariantID,
			SKU:          purchase.SKU,
			Name:         p.Name,
			Quantity:     ci.Quantity,
			UnitPrice:    purchase.UnitPrice,
			LineTotal:    purchase.UnitPrice.Mul(decimal.NewFromInt(int64(ci.Quantity))),
			StockTracked: purchase.Tracked,
		}
		if purchase.VariantID != nil {
			item.VariantName = strings.TrimPrefix(purchase.Name, p.Name+" - ")
		}

		items = append(items, item)
		priced = append(priced, pricing.Line{Quantity: ci.Quantity, UnitPrice: purchase.UnitPrice})
		stock = append(stock, inventory.Line{
			ProductID: p.ID,
			VariantID: purchase.VariantID,
			Name:      purchase.Name,
			Quantity:  ci.Quantity,
			Tracked:   purchase.Tracked,
		})
	}
	return items, priced, stock, nil
}

func stockLines(items []OrderItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, inventory.Line{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Tracked:   it.StockTracked,
		})
	}
	return lines
}

// restockReason reports whether moving from prev to next returns stock to the shelf
func restockReason(prev, next OrderStatus) (inventory.MovementReason, bool) {
	held := prev == OrderStatusPending || prev == OrderStatusConfirmed || prev == OrderStatusProcessing
	switch {
	case next == OrderStatusCancelled && held:
		return inventory.ReasonCancellation, true
	case next == OrderStatusReturned && prev != OrderStatusReturned:
		return inventory.ReasonReturn, true
	}
	return "", false
}

func normalizeAddress(a Address) Address {
	a.FullName = strings.TrimSpace(a.FullName)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "IN"
	}
	return a
}
