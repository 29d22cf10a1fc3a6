package postgres

import (
	"context"

	"github.com/your-org/jewelry-backend/internal/domain/inventory"
	"github.com/your-org/jewelry-backend/internal/domain/order"
	"gorm.io/gorm"
)

type txRepos struct {
	orders   *OrderRepository
	products *ProductRepository
	stock    *inventory.Ledger
}

func (r *txRepos) Orders() order.Repository      { return r.orders }
func (r *txRepos) Products() order.ProductReader { return r.products }
func (r *txRepos) Stock() order.StockLedger      { return r.stock }

// UnitOfWork runs order workflows in one database transaction
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithinTx rebuilds the repositories on the transaction handle and commits
// when fn returns nil
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txRepos{
			orders:   NewOrderRepository(tx),
			products: NewProductRepository(tx),
			stock:    inventory.NewLedger(NewStockStore(tx)),
		})
	})
}
