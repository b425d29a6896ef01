package product

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// List returns the menu, optionally filtered by category ("" for all).
	List(ctx context.Context, category string) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// Upsert inserts a product or updates the one with the same name.
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
	// Create inserts a new product; a taken name is ErrAlreadyExists.
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	// Update overwrites the editable fields of the product with p.ID.
	Update(ctx context.Context, p domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}
