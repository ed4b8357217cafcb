package payments

import (
	"context"

	"github.com/google/uuid"
)

// Store persists payment records. Implementations live in
// internal/memory and internal/postgres.
type Store interface {
	Create(ctx context.Context, p *Payment) error
	Update(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	List(ctx context.Context) ([]*Payment, error)
}
