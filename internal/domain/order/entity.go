// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/jewelry-backend/internal/domain/pricing"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCard   PaymentMethod = "card"
)

// IsPrepaid reports whether the method settles through the payment gateway
func (m PaymentMethod) IsPrepaid() bool {
	return m != PaymentMethodCOD
}

// Order is an immutable snapshot of a cart moving through fulfilment
type Order struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	OrderNumber  string      `gorm:"uniqueIndex;not null;size:50" json:"orderNumber"`
	UserID       uint        `gorm:"not null;index" json:"userId"`
	Email        string      `gorm:"size:255" json:"email"`
	Status       OrderStatus `gorm:"not null;size:20;default:'pending';index" json:"status"`
	Currency     string      `gorm:"size:3;not null;default:'INR'" json:"currency"`
	Notes        string      `gorm:"type:text" json:"notes,omitempty"`
	CancelReason string      `gorm:"type:text" json:"cancelReason,omitempty"`

	Pricing Pricing `gorm:"embedded;embeddedPrefix:price_" json:"pricing"`
	Payment Payment `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`

	ShippingAddress Address  `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	BillingAddress  Address  `gorm:"embedded;embeddedPrefix:billing_" json:"billingAddress"`
	Tracking        Tracking `gorm:"embedded;embeddedPrefix:tracking_" json:"tracking"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Items    []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Timeline []TimelineEntry `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"timeline"`
}

// OrderItem is a purchased line with its catalog data frozen at checkout
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"-"`
	ProductID   uint            `gorm:"not null;index" json:"productId"`
	VariantID   *uint           `gorm:"index" json:"variantId,omitempty"`
	SKU         string          `gorm:"not null;size:100" json:"sku"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	VariantName string          `gorm:"size:255" json:"variantName,omitempty"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unitPrice"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"lineTotal"`

	// StockTracked is copied from the product so cancellation knows what to restock
	StockTracked bool `gorm:"not null;default:false" json:"-"`
}

// Pricing is the order's price breakdown in major units
type Pricing struct {
	Subtotal decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal"`
	Tax      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax"`
	Shipping decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shipping"`
	Discount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	Total    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
}

// Payment is the payment sub-record of an order
type Payment struct {
	Method         PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Status         PaymentStatus   `gorm:"size:20;not null;default:'pending';index" json:"status"`
	GatewayOrderID string          `gorm:"size:64;index" json:"gatewayOrderId,omitempty"`
	TransactionID  string          `gorm:"size:64" json:"transactionId,omitempty"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	FailureReason  string          `gorm:"type:text" json:"failureReason,omitempty"`
	RefundID       string          `gorm:"size:64" json:"refundId,omitempty"`
	RefundedAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"refundedAmount"`
}

// Address is a postal address embedded in the order
type Address struct {
	FullName   string `gorm:"size:200" json:"fullName" validate:"required,max=200"`
	Phone      string `gorm:"size:20" json:"phone" validate:"required,min=10,max=15"`
	Line1      string `gorm:"size:255" json:"line1" validate:"required,max=255"`
	Line2      string `gorm:"size:255" json:"line2" validate:"max=255"`
	City       string `gorm:"size:100" json:"city" validate:"required,max=100"`
	State      string `gorm:"size:100" json:"state" validate:"required,max=100"`
	PostalCode string `gorm:"size:20" json:"postalCode" validate:"required,pincode"`
	Country    string `gorm:"size:2" json:"country" validate:"omitempty,len=2"`
}

// IsZero reports whether no address was given
func (a Address) IsZero() bool {
	return a == Address{}
}

// Tracking is the carrier information recorded once the order ships
type Tracking struct {
	Carrier   string     `gorm:"size:100" json:"carrier,omitempty"`
	Number    string     `gorm:"size:100" json:"number,omitempty"`
	URL       string     `gorm:"size:500" json:"url,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// TimelineEntry records one status change. Entries are only ever appended.
type TimelineEntry struct {
	ID        uint        `gorm:"primaryKey" json:"-"`
	OrderID   uint        `gorm:"not null;index" json:"-"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Note      string      `gorm:"type:text" json:"note,omitempty"`
	Actor     string      `gorm:"size:50" json:"actor,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// TableName overrides
func (Order) TableName() string         { return "orders" }
func (OrderItem) TableName() string     { return "order_items" }
func (TimelineEntry) TableName() string { return "order_timeline" }

// Actor identifies who performs an operation
type Actor struct {
	UserID  uint
	IsAdmin bool
	System  string
}

// SystemActor returns an actor for automated callers such as the payment webhook
func SystemActor(name string) Actor {
	return Actor{System: name, IsAdmin: true}
}

// Label is the actor as recorded on timeline entries
func (a Actor) Label() string {
	switch {
	case a.System != "":
		return "system:" + a.System
	case a.IsAdmin:
		return fmt.Sprintf("admin:%d", a.UserID)
	default:
		return fmt.Sprintf("user:%d", a.UserID)
	}
}

// CanAccess reports whether the actor may read or act on the order
func (a Actor) CanAccess(o *Order) bool {
	return a.IsAdmin || o.UserID == a.UserID
}

// FormatOrderNumber renders a sequence value as a display order number
func FormatOrderNumber(prefix string, width int, seq int64) string {
	return fmt.Sprintf("%s%0*d", strings.ToUpper(prefix), width, seq)
}

// SetPricing copies a pricing breakdown onto the order
func (o *Order) SetPricing(b pricing.Breakdown) {
	o.Pricing = Pricing{
		Subtotal: b.Subtotal,
		Tax:      b.Tax,
		Shipping: b.Shipping,
		Discount: b.Discount,
		Total:    b.Total,
	}
}

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	ShippingAddress Address  `json:"shippingAddress" validate:"required"`
	BillingAddress  *Address `json:"billingAddress"`
	PaymentMethod   string   `json:"paymentMethod" validate:"required,payment_method"`
	Notes           string   `json:"notes" validate:"max=500"`
}

// UpdateStatusRequest is the admin body for status changes. Force applies an
// edge the lifecycle does not allow and is recorded on the timeline.
type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required"`
	Note   string      `json:"note" validate:"max=500"`
	Force  bool        `json:"force"`
}

// CancelRequest is the body of PUT /orders/:id/cancel
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// TrackingRequest is the admin body for attaching carrier details
type TrackingRequest struct {
	Carrier string `json:"carrier" validate:"required,max=100"`
	Number  string `json:"number" validate:"required,max=100"`
	URL     string `json:"url" validate:"omitempty,url,max=500"`
}

// ListFilter selects a page of orders
type ListFilter struct {
	UserID        *uint
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Page          int
	Limit         int
}

// ListResponse is a page of orders
type ListResponse struct {
	Orders     []Order `json:"orders"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}
