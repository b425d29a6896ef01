package order

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores orders together with their lines.
type Repository interface {
	// Create persists the order and its lines atomically. ID, status,
	// version and timestamps are assigned by the store.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// List returns every order, newest first, with the owner's name and
	// email resolved.
	List(ctx context.Context) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// UpdateStatus sets the status and bumps the version. When
	// expectedVersion is positive the update only applies to that version
	// and ErrConflict is returned otherwise.
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, expectedVersion int) (*domain.Order, error)
	Delete(ctx context.Context, id string) error
}
