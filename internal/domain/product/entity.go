// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// Product is a catalog item. Prices are decimal rupees.
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SKU           string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name          string          `gorm:"not null;size:255" json:"name"`
	Slug          string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description   string          `gorm:"type:text" json:"description"`
	Category      string          `gorm:"size:100;index" json:"category"`
	Material      string          `gorm:"size:50" json:"material"` // gold, silver, platinum
	Purity        string          `gorm:"size:20" json:"purity"`   // 22K, 925
	WeightGrams   decimal.Decimal `gorm:"type:numeric(10,3);default:0" json:"weightGrams"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	ComparePrice  decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"comparePrice"`
	ImageURL      string          `gorm:"size:500" json:"imageUrl"`
	IsActive      bool            `gorm:"default:true" json:"isActive"`
	TrackQuantity bool            `gorm:"default:true" json:"trackQuantity"`
	Stock         int             `gorm:"default:0" json:"stock"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	Variants []Variant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// Variant is a purchasable option of a product, such as a ring size.
// A zero Price inherits the product price.
type Variant struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	SKU       string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"price"`
	Stock     int             `gorm:"default:0" json:"stock"`
	IsActive  bool            `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (Product) TableName() string { return "products" }
func (Variant) TableName() string { return "product_variants" }

// Purchase describes what one unit of a product or variant costs and how many are left
type Purchase struct {
	ProductID uint
	VariantID *uint
	Name      string
	SKU       string
	UnitPrice decimal.Decimal
	Tracked   bool
	Available int
}

// Resolve checks that the product, and the variant when given, can be sold
// and returns its current price and stock.
func (p *Product) Resolve(variantID *uint) (*Purchase, error) {
	if !p.IsActive {
		return nil, apperror.Validation("Product %q is not available", p.Name)
	}

	if variantID == nil {
		return &Purchase{
			ProductID: p.ID,
			Name:      p.Name,
			SKU:       p.SKU,
			UnitPrice: p.Price,
			Tracked:   p.TrackQuantity,
			Available: p.Stock,
		}, nil
	}

	v := p.Variant(*variantID)
	if v == nil {
		return nil, apperror.Validation("Variant %d does not belong to product %d", *variantID, p.ID)
	}
	if !v.IsActive {
		return nil, apperror.Validation("Variant %q is not available", v.Name)
	}

	price := v.Price
	if price.IsZero() {
		price = p.Price
	}

	id := v.ID
	return &Purchase{
		ProductID: p.ID,
		VariantID: &id,
		Name:      p.Name + " - " + v.Name,
		SKU:       v.SKU,
		UnitPrice: price,
		Tracked:   p.TrackQuantity,
		Available: v.Stock,
	}, nil
}

// Variant returns the variant with the given id or nil
func (p *Product) Variant(id uint) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// ListFilter selects catalog pages
type ListFilter struct {
	Category   string
	Search     string
	ActiveOnly bool
	Page       int
	Limit      int
}

// ProductRequest is the admin payload for creating or replacing a product
type ProductRequest struct {
	SKU           string           `json:"sku" validate:"required,max=100"`
	Name          string           `json:"name" validate:"required,max=255"`
	Description   string           `json:"description"`
	Category      string           `json:"category" validate:"max=100"`
	Material      string           `json:"material" validate:"omitempty,oneof=gold silver platinum diamond other"`
	Purity        string           `json:"purity" validate:"max=20"`
	WeightGrams   decimal.Decimal  `json:"weightGrams"`
	Price         decimal.Decimal  `json:"price"`
	ComparePrice  decimal.Decimal  `json:"comparePrice"`
	ImageURL      string           `json:"imageUrl" validate:"omitempty,url"`
	IsActive      *bool            `json:"isActive"`
	TrackQuantity *bool            `json:"trackQuantity"`
	Stock         int              `json:"stock" validate:"gte=0"`
	Variants      []VariantRequest `json:"variants" validate:"dive"`
}

type VariantRequest struct {
	SKU   string          `json:"sku" validate:"required,max=100"`
	Name  string          `json:"name" validate:"required,max=255"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"gte=0"`
}

// ListResponse is a page of products
type ListResponse struct {
	Products   []Product `json:"products"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}
