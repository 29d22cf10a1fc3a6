package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/your-org/jewelry-backend/internal/domain/cart"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository stores one cart row per user with its items
type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) FindByUser(ctx context.Context, userID uint) (*cart.Cart, error) {
	var c cart.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cart.ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the cart and replaces its items. Two first-time saves for the
// same user collapse onto one row through the user_id unique index.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if c.ID == 0 {
			err := tx.Omit("Items").Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"subtotal", "tax", "shipping", "discount", "total", "currency", "expires_at", "updated_at"}),
			}).Create(c).Error
			if err != nil {
				return err
			}
		} else if err := tx.Omit("Items").Save(c).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", c.ID).Delete(&cart.CartItem{}).Error; err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return nil
		}

		for i := range c.Items {
			c.Items[i].ID = 0
			c.Items[i].CartID = c.ID
			c.Items[i].Position = i
		}
		return tx.Create(&c.Items).Error
	})
}

func (r *CartRepository) Delete(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&cart.Cart{}).Error
}

// PurgeExpired removes carts whose window closed before the given time.
// Items go with them through the foreign key cascade.
func (r *CartRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&cart.Cart{})
	return res.RowsAffected, res.Error
}
