// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType represents the direction of a stock movement
type MovementType string

const (
	MovementTypeInbound  MovementType = "inbound"  // Release, restock
	MovementTypeOutbound MovementType = "outbound" // Sale
)

// MovementReason represents the reason for inventory movement
type MovementReason string

const (
	ReasonSale         MovementReason = "sale"
	ReasonCancellation MovementReason = "cancellation"
	ReasonReturn       MovementReason = "return"
	ReasonAdjustment   MovementReason = "adjustment"
)

// Movement is one row of the stock ledger. Quantity is always positive;
// Type gives the direction.
type Movement struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ProductID     uint           `gorm:"not null;index" json:"productId"`
	VariantID     *uint          `gorm:"index" json:"variantId,omitempty"`
	MovementType  MovementType   `gorm:"not null;size:20" json:"movementType"`
	Reason        MovementReason `gorm:"not null;size:20" json:"reason"`
	Quantity      int            `gorm:"not null" json:"quantity"`
	ReferenceType string         `gorm:"size:50" json:"referenceType"`
	ReferenceID   uint           `gorm:"index" json:"referenceId"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func (Movement) TableName() string { return "stock_movements" }

// Line is a quantity of one product, or one of its variants, to move
type Line struct {
	ProductID uint
	VariantID *uint
	Name      string
	Quantity  int
	Tracked   bool
}
