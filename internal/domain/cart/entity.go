// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/jewelry-backend/internal/domain/pricing"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

// Cart is a user's single shopping cart. Money fields are decimal rupees and
// always reflect the current items.
type Cart struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"uniqueIndex;not null" json:"userId"`
	Items     []CartItem      `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal"`
	Tax       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax"`
	Shipping  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shipping"`
	Discount  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
	Currency  string          `gorm:"size:3;not null;default:'INR'" json:"currency"`
	ExpiresAt time.Time       `gorm:"index" json:"expiresAt"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`

	pricing pricing.Calculator
}

// CartItem is one (product, variant) line of a cart
type CartItem struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	CartID    uint            `gorm:"not null;index" json:"-"`
	Position  int             `gorm:"not null;default:0" json:"-"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	VariantID *uint           `gorm:"index" json:"variantId,omitempty"`
	Name      string          `gorm:"size:255" json:"name"`
	SKU       string          `gorm:"size:100" json:"sku"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unitPrice"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"lineTotal"`
	AddedAt   time.Time       `json:"addedAt"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// AddToCartRequest is the body of POST /cart
type AddToCartRequest struct {
	ProductID uint  `json:"productId" validate:"required"`
	VariantID *uint `json:"variantId"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

// UpdateCartItemRequest is the body of PUT /cart/:productId. Zero or less removes the line.
type UpdateCartItemRequest struct {
	Quantity  *int  `json:"quantity" validate:"required"`
	VariantID *uint `json:"variantId"`
}

// New returns an empty cart for userID priced by calc
func New(userID uint, currency string, calc pricing.Calculator) *Cart {
	c := &Cart{UserID: userID, Currency: currency, pricing: calc}
	c.reprice()
	return c
}

// UsePricing attaches the calculator used on every mutation and reprices
// immediately, so carts loaded from storage pick up the current policy.
func (c *Cart) UsePricing(calc pricing.Calculator) {
	c.pricing = calc
	c.reprice()
}

// AddItem appends a line or accumulates quantity on the existing line for the
// same product and variant. The line's unit price is refreshed to unitPrice.
func (c *Cart) AddItem(productID uint, variantID *uint, quantity int, unitPrice decimal.Decimal, now time.Time) (*CartItem, error) {
	if quantity < 1 {
		return nil, apperror.Validation("Quantity must be at least 1")
	}
	if unitPrice.IsNegative() {
		return nil, apperror.Validation("Unit price must not be negative")
	}

	if item := c.Find(productID, variantID); item != nil {
		item.Quantity += quantity
		item.UnitPrice = unitPrice
		c.reprice()
		return item, nil
	}

	c.Items = append(c.Items, CartItem{
		CartID:    c.ID,
		ProductID: productID,
		VariantID: copyID(variantID),
		Quantity:  quantity,
		UnitPrice: unitPrice,
		AddedAt:   now,
	})
	c.reprice()
	return &c.Items[len(c.Items)-1], nil
}

// UpdateItemQuantity sets a line's quantity. Zero or less removes the line.
func (c *Cart) UpdateItemQuantity(productID uint, variantID *uint, quantity int) error {
	item := c.Find(productID, variantID)
	if item == nil {
		return apperror.NotFound("Item not found in cart")
	}

	if quantity <= 0 {
		c.RemoveItem(productID, variantID)
		return nil
	}

	item.Quantity = quantity
	c.reprice()
	return nil
}

// RemoveItem drops the line if present and reports whether it was there.
// Removing an absent line is not an error.
func (c *Cart) RemoveItem(productID uint, variantID *uint) bool {
	for i := range c.Items {
		if c.Items[i].matches(productID, variantID) {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.reprice()
			return true
		}
	}
	return false
}

// Clear empties the cart and zeroes its pricing
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.reprice()
}

// Find returns the line for product and variant, or nil
func (c *Cart) Find(productID uint, variantID *uint) *CartItem {
	for i := range c.Items {
		if c.Items[i].matches(productID, variantID) {
			return &c.Items[i]
		}
	}
	return nil
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the total number of units across lines
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Touch slides the expiry window forward from now
func (c *Cart) Touch(now time.Time, ttl time.Duration) {
	c.ExpiresAt = now.Add(ttl)
}

// IsExpired reports whether the cart outlived its expiry
func (c *Cart) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Lines returns the cart as pricing input
func (c *Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, len(c.Items))
	for i, it := range c.Items {
		lines[i] = pricing.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return lines
}

// Breakdown returns the cart's current pricing fields
func (c *Cart) Breakdown() pricing.Breakdown {
	return pricing.Breakdown{
		Subtotal: c.Subtotal,
		Tax:      c.Tax,
		Shipping: c.Shipping,
		Discount: c.Discount,
		Total:    c.Total,
	}
}

func (c *Cart) reprice() {
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	for i := range c.Items {
		c.Items[i].Position = i
		c.Items[i].LineTotal = pricing.Line{Quantity: c.Items[i].Quantity, UnitPrice: c.Items[i].UnitPrice}.Total()
	}

	b := c.pricing.Calculate(c.Lines(), c.Discount)
	c.Subtotal = b.Subtotal
	c.Tax = b.Tax
	c.Shipping = b.Shipping
	c.Discount = b.Discount
	c.Total = b.Total
}

func (i *CartItem) matches(productID uint, variantID *uint) bool {
	return i.ProductID == productID && sameVariant(i.VariantID, variantID)
}

func sameVariant(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
