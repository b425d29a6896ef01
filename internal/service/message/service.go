package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"storefront/internal/domain"
	"storefront/internal/logging"
	msgrepo "storefront/internal/repository/message"
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

type SubmitInput struct {
	Name  string `json:"name" validate:"required,max=50"`
	Email string `json:"email" validate:"required,contactemail"`
	Body  string `json:"message" validate:"required,max=500"`
}

type Service struct {
	repo     msgrepo.Repository
	validate *validator.Validate
	logger   *slog.Logger
}

func New(repo msgrepo.Repository, logger *slog.Logger) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("contactemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return &Service{
		repo:     repo,
		validate: v,
		logger:   logging.OrDiscard(logger).With("service", "message"),
	}
}

// Submit stores a contact form message. Anyone may submit.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.Message, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Body = strings.TrimSpace(in.Body)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	m, err := s.repo.Create(ctx, domain.Message{Name: in.Name, Email: in.Email, Body: in.Body})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, s.logger).Info("message received", "message_id", m.ID)
	return m, nil
}

// ListAll returns messages newest first. Admin only.
func (s *Service) ListAll(ctx context.Context, caller domain.Caller) ([]domain.Message, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.repo.List(ctx)
}

// Delete removes a message. Admin only.
func (s *Service) Delete(ctx context.Context, caller domain.Caller, id string) error {
	if !caller.IsAdmin() {
		return domain.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Field() == "Body" {
		field = "message"
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: please enter your %s", domain.ErrValidation, field)
	case "max":
		return fmt.Errorf("%w: %s cannot exceed %s characters", domain.ErrValidation, field, fe.Param())
	case "contactemail":
		return fmt.Errorf("%w: please enter a valid email", domain.ErrValidation)
	default:
		return fmt.Errorf("%w: invalid %s", domain.ErrValidation, field)
	}
}
