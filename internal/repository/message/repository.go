package message

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, m domain.Message) (*domain.Message, error)
	// List returns all messages, newest first.
	List(ctx context.Context) ([]domain.Message, error)
	Delete(ctx context.Context, id string) error
}
