package postgres

import (
	"context"
	"strings"

	"github.com/your-org/jewelry-backend/internal/domain/product"
	"gorm.io/gorm"
)

// ProductRepository stores catalog items
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	var p product.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&p, id).Error
	if err != nil {
		return nil, notFound(err, "Product")
	}
	return &p, nil
}

func (r *ProductRepository) FindIDBySlug(ctx context.Context, slug string) (uint, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).Select("id").Where("slug = ?", slug).First(&p).Error; err != nil {
		return 0, notFound(err, "Product")
	}
	return p.ID, nil
}

func (r *ProductRepository) List(ctx context.Context, filter product.ListFilter) ([]product.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&product.Product{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []product.Product
	err := query.Preload("Variants").
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update saves the product and replaces its variants. Variants whose SKU
// disappeared are deleted.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Variants").Save(p).Error; err != nil {
			return err
		}

		keep := make([]uint, 0, len(p.Variants))
		for i := range p.Variants {
			p.Variants[i].ProductID = p.ID
			if err := tx.Save(&p.Variants[i]).Error; err != nil {
				return err
			}
			keep = append(keep, p.Variants[i].ID)
		}

		stale := tx.Where("product_id = ?", p.ID)
		if len(keep) > 0 {
			stale = stale.Where("id NOT IN ?", keep)
		}
		return stale.Delete(&product.Variant{}).Error
	})
}

func (r *ProductRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Unscoped().Model(&product.Product{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
