package product

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
	"github.com/your-org/jewelry-backend/internal/pkg/cache"
	"github.com/your-org/jewelry-backend/internal/pkg/logger"
)

type mockRepository struct {
	mu       sync.Mutex
	products map[uint]*Product
	nextID   uint
	finds    int
}

func newMockRepository() *mockRepository {
	return &mockRepository{products: map[uint]*Product{}, nextID: 1}
}

func (m *mockRepository) FindByID(_ context.Context, id uint) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	p, ok := m.products[id]
	if !ok {
		return nil, apperror.NotFound("Product not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepository) FindIDBySlug(_ context.Context, slug string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug {
			return p.ID, nil
		}
	}
	return 0, apperror.NotFound("Product not found")
}

func (m *mockRepository) List(_ context.Context, _ ListFilter) ([]Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (m *mockRepository) Create(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID
	m.nextID++
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockRepository) Update(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockRepository) SlugExists(_ context.Context, slug string, excludeID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	loader := cache.NewLoader(cache.NewMemoryCache(100), logger.Discard())
	return NewService(repo, loader, 0, logger.Discard()), repo
}

func ringRequest(name string) *ProductRequest {
	return &ProductRequest{
		SKU:   "RING-" + name,
		Name:  name,
		Price: decimal.RequireFromString("24999.50"),
		Stock: 3,
		Variants: []VariantRequest{
			{SKU: "RING-" + name + "-7", Name: "Size 7"},
			{SKU: "RING-" + name + "-8", Name: "Size 8", Price: decimal.NewFromInt(26000)},
		},
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "22k-gold-jhumka-earrings", Slugify("  22K Gold   Jhumka Earrings! "))
	assert.Equal(t, "rose-gold-ring", Slugify("Rose_Gold--Ring"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestCreateProduct_UniqueSlugs(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateProduct(ctx, ringRequest("Solitaire Ring"))
	require.NoError(t, err)
	req := ringRequest("Solitaire Ring")
	req.SKU = "RING-OTHER"
	second, err := svc.CreateProduct(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "solitaire-ring", first.Slug)
	assert.Equal(t, "solitaire-ring-2", second.Slug)
}

func TestCreateProduct_RejectsNonPositivePrice(t *testing.T) {
	svc, _ := newTestService()
	req := ringRequest("Band")
	req.Price = decimal.Zero

	_, err := svc.CreateProduct(context.Background(), req)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestFindProduct_ReadThroughAndInvalidate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, ringRequest("Pearl Studs"))
	require.NoError(t, err)

	_, err = svc.FindProduct(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.FindProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.finds)

	svc.Invalidate(ctx, created.ID)
	_, err = svc.FindProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.finds)
}

func TestGetProductBySlug_HidesInactive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	req := ringRequest("Temple Necklace")
	inactive := false
	req.IsActive = &inactive
	_, err := svc.CreateProduct(ctx, req)
	require.NoError(t, err)

	_, err = svc.GetProductBySlug(ctx, "temple-necklace")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestResolveVariantPricing(t *testing.T) {
	svc, _ := newTestService()
	p, err := svc.CreateProduct(context.Background(), ringRequest("Eternity Band"))
	require.NoError(t, err)
	p.Variants[0].ID = 10
	p.Variants[1].ID = 11

	base, err := p.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "24999.5", base.UnitPrice.String())

	ten, eleven := uint(10), uint(11)
	inherited, err := p.Resolve(&ten)
	require.NoError(t, err)
	assert.True(t, inherited.UnitPrice.Equal(p.Price))

	own, err := p.Resolve(&eleven)
	require.NoError(t, err)
	assert.Equal(t, "26000", own.UnitPrice.String())
	assert.Equal(t, "Eternity Band - Size 8", own.Name)

	missing := uint(99)
	_, err = p.Resolve(&missing)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestUpdateProduct_KeepsVariantIDsBySKU(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, ringRequest("Halo Ring"))
	require.NoError(t, err)
	stored := repo.products[p.ID]
	stored.Variants[0].ID = 31
	stored.Variants[1].ID = 32

	req := ringRequest("Halo Ring")
	req.Name = "Halo Ring Platinum"
	updated, err := svc.UpdateProduct(ctx, p.ID, req)
	require.NoError(t, err)

	assert.Equal(t, "halo-ring-platinum", updated.Slug)
	assert.Equal(t, uint(31), updated.Variants[0].ID)
	assert.Equal(t, uint(32), updated.Variants[1].ID)
}
