package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/logging"
	orderrepo "storefront/internal/repository/order"
)

// Service implements the order lifecycle: placement by customers and
// review, status changes and removal by administrators.
type Service struct {
	repo   orderrepo.Repository
	events events.Publisher
	logger *slog.Logger
	strict bool
}

type Option func(*Service)

// WithStrictTransitions enables the transition table
// Pending -> {Completed, Canceled} with terminal states immutable.
func WithStrictTransitions(on bool) Option {
	return func(s *Service) { s.strict = on }
}

func New(repo orderrepo.Repository, publisher events.Publisher, logger *slog.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &Service{
		repo:   repo,
		events: publisher,
		logger: logging.OrDiscard(logger).With("service", "order"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LineInput is one submitted order line. The product reference may arrive
// as "product" or, straight from a cart, as "_id".
type LineInput struct {
	ProductID string          `json:"product"`
	CartID    string          `json:"_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
}

type CreateInput struct {
	Lines           []LineInput            `json:"orderItems"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ItemsPrice      decimal.Decimal        `json:"itemsPrice"`
	TaxPrice        decimal.Decimal        `json:"taxPrice"`
	ShippingPrice   decimal.Decimal        `json:"shippingPrice"`
	TotalPrice      decimal.Decimal        `json:"totalPrice"`
}

type UpdateStatusInput struct {
	Status  string `json:"status"`
	Version int    `json:"version"`
}

// Create places an order owned by the caller. Monetary fields are stored as
// submitted; an inconsistent total is logged, not rejected.
func (s *Service) Create(ctx context.Context, caller domain.Caller, in CreateInput) (*domain.Order, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: no order items", domain.ErrValidation)
	}
	lines := make([]domain.OrderLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		line, err := snapshotLine(l)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, line)
	}

	o := domain.Order{
		User:            domain.UserRef{ID: caller.UserID},
		Lines:           lines,
		ShippingAddress: trimAddress(in.ShippingAddress),
		PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
		ItemsPrice:      in.ItemsPrice,
		TaxPrice:        in.TaxPrice,
		ShippingPrice:   in.ShippingPrice,
		TotalPrice:      in.TotalPrice,
		Status:          domain.OrderStatusPending,
	}
	log := logging.FromContext(ctx, s.logger)
	if !o.TotalsConsistent() {
		log.Warn("order totals do not add up",
			"user_id", caller.UserID,
			"items_price", o.ItemsPrice.String(),
			"tax_price", o.TaxPrice.String(),
			"shipping_price", o.ShippingPrice.String(),
			"total_price", o.TotalPrice.String(),
		)
	}

	created, err := s.repo.Create(ctx, o)
	if err != nil {
		return nil, err
	}
	log.Info("order placed", "order_id", created.ID, "user_id", caller.UserID, "lines", len(created.Lines))
	s.publish(ctx, events.OrderCreated, *created)
	return created, nil
}

// ListAll returns every order with owners resolved. Admin only.
func (s *Service) ListAll(ctx context.Context, caller domain.Caller) ([]domain.Order, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.repo.List(ctx)
}

// ListMine returns the caller's own orders.
func (s *Service) ListMine(ctx context.Context, caller domain.Caller) ([]domain.Order, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.repo.ListByUser(ctx, caller.UserID)
}

// Get returns an order visible to the caller. Callers that are neither the
// owner nor an admin get ErrForbidden whether or not the order exists.
func (s *Service) Get(ctx context.Context, caller domain.Caller, id string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && !caller.IsAdmin() {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}
	if !caller.IsAdmin() && !caller.Owns(o.User.ID) {
		return nil, domain.ErrForbidden
	}
	return o, nil
}

// UpdateStatus changes the fulfilment status. Admin only. An empty status
// keeps the current one; a positive Version must match the stored version.
func (s *Service) UpdateStatus(ctx context.Context, caller domain.Caller, id string, in UpdateStatusInput) (*domain.Order, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	var next domain.OrderStatus
	if strings.TrimSpace(in.Status) != "" {
		parsed, err := domain.ParseOrderStatus(in.Status)
		if err != nil {
			return nil, err
		}
		next = parsed
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if next == "" {
		next = current.Status
	}
	if in.Version > 0 && in.Version != current.Version {
		return nil, domain.ErrConflict
	}

	expected := in.Version
	if s.strict {
		if !allowed(current.Status, next) {
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, next)
		}
		// the check above was made against this version
		expected = current.Version
	}

	updated, err := s.repo.UpdateStatus(ctx, id, next, expected)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, s.logger).Info("order status updated",
		"order_id", id,
		"from", current.Status,
		"to", updated.Status,
		"version", updated.Version,
		"admin_id", caller.UserID,
	)
	s.publish(ctx, events.OrderStatusChanged, *updated)
	return updated, nil
}

// Delete removes an order permanently. Admin only.
func (s *Service) Delete(ctx context.Context, caller domain.Caller, id string) error {
	if !caller.IsAdmin() {
		return domain.ErrForbidden
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx, s.logger).Info("order removed", "order_id", id, "admin_id", caller.UserID)
	s.publish(ctx, events.OrderDeleted, *o)
	return nil
}

func (s *Service) publish(ctx context.Context, t events.Type, o domain.Order) {
	if err := s.events.Publish(ctx, events.NewOrderEvent(t, o)); err != nil {
		logging.FromContext(ctx, s.logger).Warn("publish order event", "type", t, "order_id", o.ID, "error", err)
	}
}

// allowed is the strict transition table. Writing the current status again
// is not a change and always passes.
func allowed(from, to domain.OrderStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case domain.OrderStatusPending:
		return to == domain.OrderStatusCompleted || to == domain.OrderStatusCanceled
	case domain.OrderStatusCompleted, domain.OrderStatusCanceled:
		return false
	default:
		return false
	}
}

func snapshotLine(l LineInput) (domain.OrderLine, error) {
	productID := strings.TrimSpace(l.ProductID)
	if productID == "" {
		productID = strings.TrimSpace(l.CartID)
	}
	if productID == "" {
		return domain.OrderLine{}, fmt.Errorf("%w: product is required", domain.ErrValidation)
	}
	if l.Quantity < 1 {
		return domain.OrderLine{}, fmt.Errorf("%w: qty must be at least 1", domain.ErrValidation)
	}
	if l.Price.IsNegative() {
		return domain.OrderLine{}, fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	return domain.OrderLine{
		ProductID: productID,
		Name:      strings.TrimSpace(l.Name),
		Quantity:  l.Quantity,
		Price:     l.Price,
		Image:     l.Image,
	}, nil
}

func trimAddress(a domain.ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		Address: strings.TrimSpace(a.Address),
		City:    strings.TrimSpace(a.City),
		Zip:     strings.TrimSpace(a.Zip),
	}
}
