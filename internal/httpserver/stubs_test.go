package httpserver

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	messagesvc "storefront/internal/service/message"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	usersvc "storefront/internal/service/user"
)

var (
	adminCaller    = domain.Caller{UserID: "admin-1", Role: domain.RoleAdmin}
	customerCaller = domain.Caller{UserID: "user-1", Role: domain.RoleCustomer}
)

type stubUserService struct {
	session   *usersvc.Session
	err       error
	lastCall  string
	lastReset usersvc.ResetPasswordInput
}

func (s *stubUserService) ForgotPassword(_ context.Context, _ usersvc.ForgotPasswordInput) error {
	s.lastCall = "forgot"
	return s.err
}

func (s *stubUserService) ResetPassword(_ context.Context, in usersvc.ResetPasswordInput) error {
	s.lastCall, s.lastReset = "reset", in
	return s.err
}

func (s *stubUserService) Signup(_ context.Context, _ usersvc.SignupInput) (*usersvc.Session, error) {
	s.lastCall = "signup"
	return s.session, s.err
}

func (s *stubUserService) Login(_ context.Context, _ usersvc.LoginInput) (*usersvc.Session, error) {
	s.lastCall = "login"
	return s.session, s.err
}

func (s *stubUserService) ResolveCaller(_ context.Context, token string) (domain.Caller, error) {
	switch token {
	case "admin-token":
		return adminCaller, nil
	case "user-token":
		return customerCaller, nil
	default:
		return domain.Caller{}, domain.ErrUnauthenticated
	}
}

type stubOrderService struct {
	order      *domain.Order
	orders     []domain.Order
	err        error
	lastCaller domain.Caller
	lastID     string
	lastCreate ordersvc.CreateInput
	lastUpdate ordersvc.UpdateStatusInput
}

func (s *stubOrderService) Create(_ context.Context, caller domain.Caller, in ordersvc.CreateInput) (*domain.Order, error) {
	s.lastCaller, s.lastCreate = caller, in
	return s.order, s.err
}

func (s *stubOrderService) ListAll(_ context.Context, caller domain.Caller) ([]domain.Order, error) {
	s.lastCaller = caller
	return s.orders, s.err
}

func (s *stubOrderService) ListMine(_ context.Context, caller domain.Caller) ([]domain.Order, error) {
	s.lastCaller = caller
	return s.orders, s.err
}

func (s *stubOrderService) Get(_ context.Context, caller domain.Caller, id string) (*domain.Order, error) {
	s.lastCaller, s.lastID = caller, id
	return s.order, s.err
}

func (s *stubOrderService) UpdateStatus(_ context.Context, caller domain.Caller, id string, in ordersvc.UpdateStatusInput) (*domain.Order, error) {
	s.lastCaller, s.lastID, s.lastUpdate = caller, id, in
	return s.order, s.err
}

func (s *stubOrderService) Delete(_ context.Context, caller domain.Caller, id string) error {
	s.lastCaller, s.lastID = caller, id
	return s.err
}

type stubProductService struct {
	products     []domain.Product
	err          error
	lastCategory string
	lastCaller   domain.Caller
	lastID       string
	lastInput    productsvc.Input
}

func (s *stubProductService) Create(_ context.Context, caller domain.Caller, in productsvc.Input) (*domain.Product, error) {
	s.lastCaller, s.lastInput = caller, in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: "p-new", Name: in.Name, Category: in.Category}, nil
}

func (s *stubProductService) Update(_ context.Context, caller domain.Caller, id string, in productsvc.Input) (*domain.Product, error) {
	s.lastCaller, s.lastID, s.lastInput = caller, id, in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: id, Name: in.Name}, nil
}

func (s *stubProductService) Delete(_ context.Context, caller domain.Caller, id string) error {
	s.lastCaller, s.lastID = caller, id
	return s.err
}

func (s *stubProductService) List(_ context.Context, category string) ([]domain.Product, error) {
	s.lastCategory = category
	return s.products, s.err
}

func (s *stubProductService) Get(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			clone := p
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubMessageService struct {
	message *domain.Message
	err     error
}

func (s *stubMessageService) Submit(_ context.Context, in messagesvc.SubmitInput) (*domain.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.message != nil {
		return s.message, nil
	}
	return &domain.Message{ID: "msg-1", Name: in.Name, Email: in.Email, Body: in.Body}, nil
}

func (s *stubMessageService) ListAll(_ context.Context, caller domain.Caller) ([]domain.Message, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return []domain.Message{}, s.err
}

func (s *stubMessageService) Delete(_ context.Context, caller domain.Caller, _ string) error {
	if !caller.IsAdmin() {
		return domain.ErrForbidden
	}
	return s.err
}

func sampleOrder() *domain.Order {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.Order{
		ID:   "order-1",
		User: domain.UserRef{ID: customerCaller.UserID, Name: "Ada", Email: "ada@example.com"},
		Lines: []domain.OrderLine{
			{ProductID: "p-latte", Name: "Latte", Quantity: 2, Price: decimal.RequireFromString("3.5")},
		},
		ShippingAddress: domain.ShippingAddress{Address: "1 Main St", City: "Springfield", Zip: "12345"},
		PaymentMethod:   "creditCard",
		ItemsPrice:      decimal.RequireFromString("7"),
		TaxPrice:        decimal.RequireFromString("0.56"),
		ShippingPrice:   decimal.Zero,
		TotalPrice:      decimal.RequireFromString("7.56"),
		Status:          domain.OrderStatusPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
