// internal/domain/user/service.go
package user

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/jewelry-backend/internal/pkg/cache"
)

// Repository reads users from the primary store
type Repository interface {
	FindByID(ctx context.Context, id uint) (*User, error)
}

// Directory answers who a user is and whether they may act
type Directory struct {
	repo   Repository
	loader *cache.Loader
	ttl    time.Duration
}

// NewDirectory creates a cached user directory
func NewDirectory(repo Repository, loader *cache.Loader, ttl time.Duration) *Directory {
	return &Directory{
		repo:   repo,
		loader: loader,
		ttl:    ttl,
	}
}

// FindUser returns the user with id, active or not
func (d *Directory) FindUser(ctx context.Context, id uint) (*User, error) {
	return cache.Fetch(ctx, d.loader, fmt.Sprintf("user:%d", id), d.ttl, func(ctx context.Context) (*User, error) {
		return d.repo.FindByID(ctx, id)
	})
}
