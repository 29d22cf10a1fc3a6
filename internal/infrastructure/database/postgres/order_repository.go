package postgres

import (
	"context"

	"github.com/your-org/jewelry-backend/internal/domain/order"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter is a named monotonic sequence
type Counter struct {
	Name  string `gorm:"primaryKey;size:50"`
	Value int64  `gorm:"not null;default:0"`
}

func (Counter) TableName() string { return "counters" }

// OrderRepository stores orders with their items and timeline
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order together with its items and timeline
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, notFound(err, "Order")
	}
	if err := r.loadAssociations(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// FindByIDForUpdate locks the order row until the surrounding transaction ends
func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, id).Error
	if err != nil {
		return nil, notFound(err, "Order")
	}
	if err := r.loadAssociations(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Where("payment_gateway_order_id = ?", gatewayOrderID).
		First(&o).Error
	if err != nil {
		return nil, notFound(err, "Order")
	}
	return &o, nil
}

func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []order.Order
	err := query.Preload("Items").
		Order("created_at DESC, id DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Save updates the order row and appends timeline entries not stored yet.
// Callers run it inside a transaction.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(o).Error; err != nil {
		return err
	}

	for i := range o.Timeline {
		if o.Timeline[i].ID != 0 {
			continue
		}
		o.Timeline[i].OrderID = o.ID
		if err := db.Create(&o.Timeline[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// NextSequence atomically increments and returns the named counter
func (r *OrderRepository) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		 RETURNING value`, name).Scan(&value).Error
	return value, err
}

func (r *OrderRepository) loadAssociations(ctx context.Context, o *order.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", o.ID).Order("id ASC").Find(&o.Items).Error; err != nil {
		return err
	}
	return db.Where("order_id = ?", o.ID).Order("id ASC").Find(&o.Timeline).Error
}
