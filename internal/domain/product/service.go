// internal/domain/product/service.go
package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
	"github.com/your-org/jewelry-backend/internal/pkg/cache"
)

const cachePrefix = "product:"

// Repository persists catalog items
type Repository interface {
	FindByID(ctx context.Context, id uint) (*Product, error)
	FindIDBySlug(ctx context.Context, slug string) (uint, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int64, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
}

// Service is the read-mostly product catalog
type Service struct {
	repo   Repository
	loader *cache.Loader
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewService creates a new product service
func NewService(repo Repository, loader *cache.Loader, ttl time.Duration, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:   repo,
		loader: loader,
		ttl:    ttl,
		logger: logger,
	}
}

func idKey(id uint) string       { return fmt.Sprintf("%sid:%d", cachePrefix, id) }
func slugKey(slug string) string { return cachePrefix + "slug:" + slug }

// FindProduct returns a product whether or not it is active
func (s *Service) FindProduct(ctx context.Context, id uint) (*Product, error) {
	return cache.Fetch(ctx, s.loader, idKey(id), s.ttl, func(ctx context.Context) (*Product, error) {
		return s.repo.FindByID(ctx, id)
	})
}

// GetProduct returns an active product for storefront display
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	p, err := s.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperror.NotFound("Product not found")
	}
	return p, nil
}

// GetProductBySlug resolves a slug through the cache and returns the active product
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	id, err := cache.Fetch(ctx, s.loader, slugKey(slug), s.ttl, func(ctx context.Context) (uint, error) {
		return s.repo.FindIDBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// ListProducts returns a page of products, newest first
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ListResponse{
		Products:   products,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
	}, nil
}

// CreateProduct adds a product with a unique slug derived from its name
func (s *Service) CreateProduct(ctx context.Context, req *ProductRequest) (*Product, error) {
	if err := validatePrices(req); err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, req.Name, 0)
	if err != nil {
		return nil, err
	}

	p := &Product{Slug: slug, IsActive: true, TrackQuantity: true}
	apply(p, req)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.loader.InvalidatePrefix(ctx, cachePrefix)
	s.logger.WithFields(logrus.Fields{"product_id": p.ID, "slug": p.Slug}).Info("product created")
	return p, nil
}

// UpdateProduct replaces a product's fields and variants. The slug follows the name.
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *ProductRequest) (*Product, error) {
	if err := validatePrices(req); err != nil {
		return nil, err
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if Slugify(req.Name) != Slugify(p.Name) {
		slug, err := s.uniqueSlug(ctx, req.Name, p.ID)
		if err != nil {
			return nil, err
		}
		p.Slug = slug
	}

	existing := make(map[string]uint, len(p.Variants))
	for _, v := range p.Variants {
		existing[v.SKU] = v.ID
	}
	apply(p, req)
	for i := range p.Variants {
		p.Variants[i].ID = existing[p.Variants[i].SKU]
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.loader.InvalidatePrefix(ctx, cachePrefix)
	return p, nil
}

// Invalidate drops cached copies of products whose stock or price changed
func (s *Service) Invalidate(ctx context.Context, ids ...uint) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = idKey(id)
	}
	s.loader.Invalidate(ctx, keys...)
}

func (s *Service) uniqueSlug(ctx context.Context, name string, excludeID uint) (string, error) {
	base := Slugify(name)
	if base == "" {
		return "", apperror.Validation("Product name must contain letters or digits")
	}

	slug := base
	for i := 2; i < 100; i++ {
		exists, err := s.repo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return "", apperror.Validation("Too many products named %q", name)
}

func validatePrices(req *ProductRequest) error {
	if !req.Price.IsPositive() {
		return apperror.ValidationFields("Validation failed", map[string]string{"price": "must be greater than 0"})
	}
	if req.ComparePrice.IsNegative() {
		return apperror.ValidationFields("Validation failed", map[string]string{"comparePrice": "must not be negative"})
	}
	for i, v := range req.Variants {
		if v.Price.IsNegative() {
			return apperror.ValidationFields("Validation failed", map[string]string{
				fmt.Sprintf("variants[%d].price", i): "must not be negative",
			})
		}
	}
	return nil
}

func apply(p *Product, req *ProductRequest) {
	p.SKU = strings.TrimSpace(req.SKU)
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.Category = req.Category
	p.Material = req.Material
	p.Purity = req.Purity
	p.WeightGrams = req.WeightGrams
	p.Price = req.Price.Round(2)
	p.ComparePrice = req.ComparePrice.Round(2)
	p.ImageURL = req.ImageURL
	p.Stock = req.Stock
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.TrackQuantity != nil {
		p.TrackQuantity = *req.TrackQuantity
	}

	p.Variants = make([]Variant, 0, len(req.Variants))
	for _, v := range req.Variants {
		p.Variants = append(p.Variants, Variant{
			ProductID: p.ID,
			SKU:       v.SKU,
			Name:      v.Name,
			Price:     v.Price.Round(2),
			Stock:     v.Stock,
			IsActive:  true,
		})
	}
}
