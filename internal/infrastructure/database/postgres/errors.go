package postgres

import (
	"errors"

	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// notFound maps a missing row onto the domain's not found error
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s not found", what)
	}
	return err
}
