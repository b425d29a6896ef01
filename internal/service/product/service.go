package product

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/logging"
	productrepo "storefront/internal/repository/product"
)

const (
	nameMax        = 100
	descriptionMax = 1000
	stockMax       = 99999
)

// priceLimit is the first price the products table cannot store.
var priceLimit = decimal.New(1, 8)

type Service struct {
	repo   productrepo.Repository
	logger *slog.Logger
}

func New(repo productrepo.Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logging.OrDiscard(logger).With("service", "product")}
}

// Input carries product fields from the back office. On update a nil or
// empty field keeps the stored value.
type Input struct {
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    string           `json:"category"`
	Image       *string          `json:"image"`
	Stock       *int             `json:"stock"`
}

// List returns the menu. An empty category lists everything; an unknown one
// is a validation error.
func (s *Service) List(ctx context.Context, category string) ([]domain.Product, error) {
	if strings.TrimSpace(category) == "" {
		return s.repo.List(ctx, "")
	}
	canonical := domain.NormalizeCategory(category)
	if canonical == "" {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, category)
	}
	return s.repo.List(ctx, canonical)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Create adds a product to the menu. Admin only; name, price and category
// are required.
func (s *Service) Create(ctx context.Context, caller domain.Caller, in Input) (*domain.Product, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" || in.Price == nil || strings.TrimSpace(in.Category) == "" {
		return nil, fmt.Errorf("%w: name, price and category are required", domain.ErrValidation)
	}
	p, err := apply(domain.Product{}, in)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, s.logger).Info("product created", "product_id", created.ID, "admin_id", caller.UserID)
	return created, nil
}

// Update changes the given fields of a product. Admin only.
func (s *Service) Update(ctx context.Context, caller domain.Caller, id string, in Input) (*domain.Product, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := apply(*current, in)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, s.logger).Info("product updated", "product_id", id, "admin_id", caller.UserID)
	return updated, nil
}

// Delete removes a product from the menu. Placed orders keep their
// snapshots. Admin only.
func (s *Service) Delete(ctx context.Context, caller domain.Caller, id string) error {
	if !caller.IsAdmin() {
		return domain.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx, s.logger).Info("product removed", "product_id", id, "admin_id", caller.UserID)
	return nil
}

// apply merges in over p and validates the result.
func apply(p domain.Product, in Input) (domain.Product, error) {
	if name := strings.TrimSpace(in.Name); name != "" {
		p.Name = name
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Category != "" {
		category := domain.NormalizeCategory(in.Category)
		if category == "" {
			return p, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, in.Category)
		}
		p.Category = category
	}
	if in.Image != nil {
		p.Image = strings.TrimSpace(*in.Image)
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}

	switch {
	case utf8.RuneCountInString(p.Name) > nameMax:
		return p, fmt.Errorf("%w: name cannot exceed %d characters", domain.ErrValidation, nameMax)
	case utf8.RuneCountInString(p.Description) > descriptionMax:
		return p, fmt.Errorf("%w: description cannot exceed %d characters", domain.ErrValidation, descriptionMax)
	case p.Price.IsNegative() || p.Price.GreaterThanOrEqual(priceLimit):
		return p, fmt.Errorf("%w: price out of range", domain.ErrValidation)
	case !p.Price.Equal(p.Price.Round(2)):
		return p, fmt.Errorf("%w: price has more than 2 decimal places", domain.ErrValidation)
	case p.Stock < 0 || p.Stock > stockMax:
		return p, fmt.Errorf("%w: stock must be between 0 and %d", domain.ErrValidation, stockMax)
	}
	return p, nil
}
