package postgres

import (
	"context"

	"github.com/your-org/jewelry-backend/internal/domain/inventory"
	"github.com/your-org/jewelry-backend/internal/domain/product"
	"gorm.io/gorm"
)

// StockStore adjusts product and variant stock counters
type StockStore struct {
	db *gorm.DB
}

func NewStockStore(db *gorm.DB) *StockStore {
	return &StockStore{db: db}
}

// Decrement lowers stock only when enough is left
func (s *StockStore) Decrement(ctx context.Context, line inventory.Line) (bool, error) {
	res := s.target(ctx, line).
		Where("stock >= ?", line.Quantity).
		Update("stock", gorm.Expr("stock - ?", line.Quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *StockStore) Increment(ctx context.Context, line inventory.Line) error {
	return s.target(ctx, line).
		Update("stock", gorm.Expr("stock + ?", line.Quantity)).Error
}

func (s *StockStore) RecordMovement(ctx context.Context, m *inventory.Movement) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *StockStore) target(ctx context.Context, line inventory.Line) *gorm.DB {
	db := s.db.WithContext(ctx)
	if line.VariantID != nil {
		return db.Model(&product.Variant{}).Where("id = ? AND product_id = ?", *line.VariantID, line.ProductID)
	}
	return db.Model(&product.Product{}).Where("id = ?", line.ProductID)
}
