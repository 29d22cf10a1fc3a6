// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

// Store adjusts stock counters and records movements. Implementations run
// inside the caller's transaction.
type Store interface {
	// Decrement lowers stock by line.Quantity only when enough is left and
	// reports whether it did
	Decrement(ctx context.Context, line Line) (bool, error)
	Increment(ctx context.Context, line Line) error
	RecordMovement(ctx context.Context, m *Movement) error
}

// Ledger reserves and releases stock for orders
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger creates a ledger over store
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Reserve takes stock for every tracked line of an order. The first line
// that cannot be covered fails the whole reservation; callers roll back.
func (l *Ledger) Reserve(ctx context.Context, orderID uint, lines []Line) error {
	for _, line := range lines {
		if !line.Tracked {
			continue
		}

		ok, err := l.store.Decrement(ctx, line)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		if !ok {
			return apperror.Validation("Insufficient stock for %s", line.Name)
		}

		if err := l.record(ctx, orderID, line, MovementTypeOutbound, ReasonSale); err != nil {
			return err
		}
	}
	return nil
}

// Release puts the stock of an order's tracked lines back
func (l *Ledger) Release(ctx context.Context, orderID uint, lines []Line, reason MovementReason) error {
	for _, line := range lines {
		if !line.Tracked {
			continue
		}

		if err := l.store.Increment(ctx, line); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
		if err := l.record(ctx, orderID, line, MovementTypeInbound, reason); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) record(ctx context.Context, orderID uint, line Line, typ MovementType, reason MovementReason) error {
	m := &Movement{
		ProductID:     line.ProductID,
		VariantID:     line.VariantID,
		MovementType:  typ,
		Reason:        reason,
		Quantity:      line.Quantity,
		ReferenceType: "order",
		ReferenceID:   orderID,
		CreatedAt:     l.now(),
	}
	if err := l.store.RecordMovement(ctx, m); err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}
	return nil
}
