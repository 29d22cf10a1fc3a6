// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/domain/pricing"
	"github.com/your-org/jewelry-backend/internal/domain/product"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

// ErrCartNotFound is returned by repositories when a user has no stored cart
var ErrCartNotFound = errors.New("cart not found")

// Repository stores one cart per user. Save replaces the stored cart
// wholesale; concurrent saves for one user are last-write-wins.
type Repository interface {
	FindByUser(ctx context.Context, userID uint) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, userID uint) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// ProductFinder looks up catalog items
type ProductFinder interface {
	FindProduct(ctx context.Context, id uint) (*product.Product, error)
}

// Options configures the cart service
type Options struct {
	Currency        string
	TTL             time.Duration
	MaxLineQuantity int
}

// Service handles cart business logic
type Service struct {
	repo     Repository
	products ProductFinder
	pricing  pricing.Calculator
	opts     Options
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewService creates a new cart service
func NewService(repo Repository, products ProductFinder, calc pricing.Calculator, opts Options, logger logrus.FieldLogger) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 30 * 24 * time.Hour
	}
	return &Service{
		repo:     repo,
		products: products,
		pricing:  calc,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// GetCart returns the user's cart, creating an empty one on first access
func (s *Service) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	c, created, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if created {
		if err := s.save(ctx, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddItem puts quantity units of a product (or variant) into the cart at its
// current catalog price
func (s *Service) AddItem(ctx context.Context, userID uint, req *AddToCartRequest) (*Cart, error) {
	p, err := s.products.FindProduct(ctx, req.ProductID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return nil, apperror.Validation("Product %d not found", req.ProductID)
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	purchase, err := p.Resolve(req.VariantID)
	if err != nil {
		return nil, err
	}

	c, _, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	want := req.Quantity
	if existing := c.Find(req.ProductID, req.VariantID); existing != nil {
		want += existing.Quantity
	}
	if err := s.checkQuantity(purchase, want); err != nil {
		return nil, err
	}

	item, err := c.AddItem(req.ProductID, req.VariantID, req.Quantity, purchase.UnitPrice, s.now())
	if err != nil {
		return nil, err
	}
	item.Name = purchase.Name
	item.SKU = purchase.SKU

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	}).Debug("item added to cart")
	return c, nil
}

// UpdateItemQuantity sets a line's quantity; zero or less removes it
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, productID uint, variantID *uint, quantity int) (*Cart, error) {
	c, _, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.Find(productID, variantID) == nil {
		return nil, apperror.NotFound("Item not found in cart")
	}

	if quantity > 0 {
		p, err := s.products.FindProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to find product: %w", err)
		}
		purchase, err := p.Resolve(variantID)
		if err != nil {
			return nil, err
		}
		if err := s.checkQuantity(purchase, quantity); err != nil {
			return nil, err
		}
	}

	if err := c.UpdateItemQuantity(productID, variantID, quantity); err != nil {
		return nil, err
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops a line. Removing a line that is not there succeeds.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uint, variantID *uint) (*Cart, error) {
	c, created, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !c.RemoveItem(productID, variantID) && !created {
		return c, nil
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Clear empties the user's cart
func (s *Service) Clear(ctx context.Context, userID uint) error {
	c, _, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	c.Clear()
	return s.save(ctx, c)
}

// PurgeExpired deletes carts whose sliding window has closed
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired carts: %w", err)
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("expired carts purged")
	}
	return n, nil
}

func (s *Service) checkQuantity(p *product.Purchase, quantity int) error {
	if s.opts.MaxLineQuantity > 0 && quantity > s.opts.MaxLineQuantity {
		return apperror.Validation("At most %d units of %s can be ordered", s.opts.MaxLineQuantity, p.Name)
	}
	if p.Tracked && quantity > p.Available {
		return apperror.Validation("Only %d units of %s are in stock", p.Available, p.Name)
	}
	return nil
}

// load returns the stored cart with current pricing, or a fresh one when the
// user has none or it expired
func (s *Service) load(ctx context.Context, userID uint) (*Cart, bool, error) {
	c, err := s.repo.FindByUser(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return New(userID, s.opts.Currency, s.pricing), true, nil
	}
	if err != nil {
		return nil, false, apperror.Upstream(err, "failed to load cart")
	}

	c.UsePricing(s.pricing)
	if c.IsExpired(s.now()) {
		c.Clear()
		return c, true, nil
	}
	return c, false, nil
}

func (s *Service) save(ctx context.Context, c *Cart) error {
	now := s.now()
	c.Touch(now, s.opts.TTL)
	c.UpdatedAt = now
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return apperror.Upstream(err, "failed to save cart")
	}
	return nil
}
