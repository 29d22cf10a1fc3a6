package postgres

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/domain/cart"
	"github.com/your-org/jewelry-backend/internal/domain/inventory"
	"github.com/your-org/jewelry-backend/internal/domain/order"
	"github.com/your-org/jewelry-backend/internal/domain/product"
	"github.com/your-org/jewelry-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log logrus.FieldLogger) *Migration {
	return &Migration{
		db:  db,
		log: log.WithField("component", "migration"),
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&user.User{},

		&product.Product{},
		&product.Variant{},

		&cart.Cart{},
		&cart.CartItem{},

		&order.Order{},
		&order.OrderItem{},
		&order.TimelineEntry{},
		&Counter{},

		&inventory.Movement{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for the hot queries
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",

		"CREATE INDEX IF NOT EXISTS idx_cart_items_cart_position ON cart_items(cart_id, position)",

		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_gateway_order ON orders(payment_gateway_order_id) WHERE payment_gateway_order_id <> ''",

		"CREATE INDEX IF NOT EXISTS idx_order_timeline_order ON order_timeline(order_id, id)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_reference ON stock_movements(reference_type, reference_id)",
	}

	failCount := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.log.WithError(err).Warn("Failed to create index")
			failCount++
		}
	}

	m.log.WithFields(logrus.Fields{
		"created": len(indexes) - failCount,
		"failed":  failCount,
	}).Info("Database indexes ensured")
	return nil
}

// SeedInitialData inserts the development users and a small catalog
func (m *Migration) SeedInitialData() error {
	if err := m.seedUsers(); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	m.log.Info("Initial data seeded")
	return nil
}

func (m *Migration) seedUsers() error {
	users := []user.User{
		{Email: "admin@example.com", FirstName: "Store", LastName: "Admin", Role: user.RoleAdmin, IsActive: true},
		{Email: "customer@example.com", FirstName: "Test", LastName: "Customer", Role: user.RoleCustomer, IsActive: true},
	}

	for i := range users {
		var existing user.User
		err := m.db.Where("email = ?", users[i].Email).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := m.db.Create(&users[i]).Error; err != nil {
			return err
		}
		m.log.WithField("email", users[i].Email).Info("Created user")
	}
	return nil
}

func (m *Migration) seedProducts() error {
	var count int64
	if err := m.db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	products := []product.Product{
		{
			SKU:           "RNG-GLD-001",
			Name:          "Classic Gold Band",
			Slug:          "classic-gold-band",
			Description:   "Plain 22K gold band with a polished finish",
			Category:      "rings",
			Material:      "gold",
			Purity:        "22K",
			WeightGrams:   decimal.RequireFromString("4.200"),
			Price:         decimal.RequireFromString("28500.00"),
			IsActive:      true,
			TrackQuantity: true,
			Variants: []product.Variant{
				{SKU: "RNG-GLD-001-12", Name: "Size 12", Stock: 5, IsActive: true},
				{SKU: "RNG-GLD-001-14", Name: "Size 14", Stock: 5, IsActive: true},
				{SKU: "RNG-GLD-001-16", Name: "Size 16", Price: decimal.RequireFromString("29800.00"), Stock: 3, IsActive: true},
			},
		},
		{
			SKU:           "NCK-SLV-001",
			Name:          "Sterling Silver Chain",
			Slug:          "sterling-silver-chain",
			Description:   "18 inch 925 silver rope chain",
			Category:      "necklaces",
			Material:      "silver",
			Purity:        "925",
			WeightGrams:   decimal.RequireFromString("8.500"),
			Price:         decimal.RequireFromString("3499.00"),
			ComparePrice:  decimal.RequireFromString("3999.00"),
			IsActive:      true,
			TrackQuantity: true,
			Stock:         25,
		},
		{
			SKU:           "EAR-SLV-002",
			Name:          "Silver Jhumka Earrings",
			Slug:          "silver-jhumka-earrings",
			Description:   "Oxidised silver jhumkas",
			Category:      "earrings",
			Material:      "silver",
			Purity:        "925",
			WeightGrams:   decimal.RequireFromString("12.000"),
			Price:         decimal.RequireFromString("1850.00"),
			IsActive:      true,
			TrackQuantity: true,
			Stock:         40,
		},
	}

	for i := range products {
		if err := m.db.Create(&products[i]).Error; err != nil {
			m.log.WithError(err).WithField("sku", products[i].SKU).Warn("Failed to seed product")
			continue
		}
		m.log.WithField("sku", products[i].SKU).Info("Created product")
	}
	return nil
}

// GetTableInfo logs the row count of every table
func (m *Migration) GetTableInfo() {
	tables := []string{
		"users", "products", "product_variants", "carts", "cart_items",
		"orders", "order_items", "order_timeline", "stock_movements", "counters",
	}

	var total int64
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			m.log.WithError(err).WithField("table", table).Warn("Table not readable")
			continue
		}
		total += count
		m.log.WithFields(logrus.Fields{"table": table, "records": count}).Debug("Table info")
	}
	m.log.WithFields(logrus.Fields{"tables": len(tables), "records": total}).Info("Database summary")
}
