package shopclient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

// DefaultPaymentMethod is used when checkout does not name one.
const DefaultPaymentMethod = "creditCard"

// Session is one shopper's visit: credentials plus a cart. The cart lives
// and dies with the session.
type Session struct {
	client *Client
	cart   *cart.Store
	logger *slog.Logger

	mu    sync.RWMutex
	token string
	user  *AuthResult
}

func NewSession(client *Client, logger *slog.Logger) *Session {
	return &Session{
		client: client,
		cart:   cart.New(),
		logger: logging.OrDiscard(logger).With("component", "shopclient"),
	}
}

// Login authenticates and keeps the token for later calls.
func (s *Session) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.setAuth(res)
	s.logger.Info("signed in", "user_id", res.ID)
	return res, nil
}

// Signup registers a new account and signs in with it.
func (s *Session) Signup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	res, err := s.client.Signup(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	s.setAuth(res)
	return res, nil
}

// AddItem snapshots the product's current price into the cart. Adding a
// product already in the cart replaces its quantity.
func (s *Session) AddItem(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}
	p, err := s.client.Product(ctx, productID)
	if err != nil {
		return err
	}
	s.cart.AddOrUpdate(*p, quantity)
	return nil
}

func (s *Session) SetQuantity(productID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}
	if !s.cart.SetQuantity(productID, quantity) {
		return fmt.Errorf("%w: product %s is not in the cart", domain.ErrNotFound, productID)
	}
	return nil
}

func (s *Session) RemoveItem(productID string) {
	s.cart.Remove(productID)
}

func (s *Session) Cart() []cart.Line {
	return s.cart.Lines()
}

func (s *Session) Totals(shipping decimal.Decimal) cart.Totals {
	return s.cart.Totals(cart.DefaultTaxRate, shipping)
}

type CheckoutInput struct {
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
	ShippingPrice   decimal.Decimal
}

// Checkout places an order for the cart contents. The cart is emptied only
// when the order was accepted.
func (s *Session) Checkout(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	token := s.currentToken()
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	lines := s.cart.Lines()
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = DefaultPaymentMethod
	}
	totals := s.cart.Totals(cart.DefaultTaxRate, in.ShippingPrice)

	o, err := s.client.PlaceOrder(ctx, token, PlaceOrderRequest{
		Lines:           lines,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   method,
		ItemsPrice:      totals.Items,
		TaxPrice:        totals.Tax,
		ShippingPrice:   totals.Shipping,
		TotalPrice:      totals.Total,
	})
	if err != nil {
		s.logger.Warn("checkout failed", "error", err)
		return nil, err
	}
	s.cart.Clear()
	s.logger.Info("order placed", "order_id", o.ID, "total", o.TotalPrice.String())
	return o, nil
}

func (s *Session) MyOrders(ctx context.Context) ([]domain.Order, error) {
	token := s.currentToken()
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.client.MyOrders(ctx, token)
}

// Close ends the session, dropping the cart and credentials.
func (s *Session) Close() {
	s.cart.Clear()
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}

// User returns the signed-in account, or nil.
func (s *Session) User() *AuthResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) setAuth(res *AuthResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = res.Token
	s.user = res
}

func (s *Session) currentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
