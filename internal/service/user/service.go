package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"storefront/internal/domain"
	"storefront/internal/logging"
	userrepo "storefront/internal/repository/user"
)

// ErrInvalidCredentials is returned when email/password do not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	passwordMin = 6
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	passwordMaxBytes = 72
)

// ResetSender delivers a password reset token to the account owner.
type ResetSender interface {
	SendReset(ctx context.Context, u domain.User, token string) error
}

// logResetSender writes the token to the log; there is no mail transport.
type logResetSender struct {
	logger *slog.Logger
}

func (s logResetSender) SendReset(ctx context.Context, u domain.User, token string) error {
	logging.FromContext(ctx, s.logger).Info("password reset token issued", "user_id", u.ID, "email", u.Email, "token", token)
	return nil
}

// Service handles signup, login, password resets and bearer token
// resolution.
type Service struct {
	repo   userrepo.Repository
	tokens *tokenManager
	resets ResetSender
	logger *slog.Logger
}

type Option func(*Service)

// WithResetSender replaces the default log-only reset delivery.
func WithResetSender(sender ResetSender) Option {
	return func(s *Service) { s.resets = sender }
}

func New(repo userrepo.Repository, secret []byte, ttl time.Duration, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tokens: newTokenManager(secret, ttl),
		logger: logging.OrDiscard(logger).With("service", "user"),
	}
	s.resets = logResetSender{logger: s.logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordInput struct {
	Email string `json:"email"`
}

type ResetPasswordInput struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Session is a user together with a freshly issued bearer token.
type Session struct {
	User  domain.User
	Token string
}

// Signup registers a customer and signs them in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", domain.ErrValidation)
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.Create(ctx, domain.User{Name: name, Email: email, PasswordHash: hashed, Role: domain.RoleCustomer})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: user already exists", domain.ErrAlreadyExists)
		}
		return nil, err
	}
	logging.FromContext(ctx, s.logger).Info("user registered", "user_id", u.ID)
	return s.session(*u)
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(strings.TrimSpace(in.Password))); err != nil {
		logging.FromContext(ctx, s.logger).Warn("login failed", "user_id", u.ID)
		return nil, ErrInvalidCredentials
	}
	return s.session(*u)
}

// ForgotPassword issues a one-hour reset token for the account and hands it
// to the reset sender. Unknown emails are ErrNotFound.
func (s *Service) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: user not found", domain.ErrNotFound)
		}
		return err
	}
	token, err := s.tokens.IssueReset(u.ID, u.PasswordHash)
	if err != nil {
		return err
	}
	if err := s.resets.SendReset(ctx, *u, token); err != nil {
		return fmt.Errorf("send reset token: %w", err)
	}
	return nil
}

// ResetPassword sets a new password from a reset token. A token is spent
// once the password it was issued against has changed.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if strings.TrimSpace(in.Token) == "" || in.NewPassword == "" {
		return fmt.Errorf("%w: token and new password are required", domain.ErrValidation)
	}
	userID, stamp, err := s.tokens.ValidateReset(strings.TrimSpace(in.Token))
	if err != nil {
		logging.FromContext(ctx, s.logger).Debug("reset token rejected", "error", err)
		return fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthenticated)
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthenticated)
		}
		return err
	}
	if fingerprint(u.PasswordHash) != stamp {
		return fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthenticated)
	}
	if err := checkPassword(in.NewPassword); err != nil {
		return err
	}
	hashed, err := HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, hashed); err != nil {
		return err
	}
	logging.FromContext(ctx, s.logger).Info("password reset", "user_id", u.ID)
	return nil
}

// ResolveCaller turns a bearer token into the calling identity. The role is
// read from the store, so a demoted user loses access immediately.
func (s *Service) ResolveCaller(ctx context.Context, token string) (domain.Caller, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Caller{}, domain.ErrUnauthenticated
	}
	userID, err := s.tokens.Validate(token)
	if err != nil {
		logging.FromContext(ctx, s.logger).Debug("token rejected", "error", err)
		return domain.Caller{}, domain.ErrUnauthenticated
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Caller{}, domain.ErrUnauthenticated
		}
		return domain.Caller{}, err
	}
	return domain.Caller{UserID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}, nil
}

// EnsureAdmin creates or promotes the administrator account.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: admin email and password are required", domain.ErrValidation)
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.EnsureAdmin(ctx, domain.User{Name: strings.TrimSpace(name), Email: email, PasswordHash: hashed})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, s.logger).Info("admin ensured", "user_id", u.ID)
	return u, nil
}

func (s *Service) session(u domain.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}

func checkPassword(password string) error {
	password = strings.TrimSpace(password)
	if len(password) < passwordMin {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, passwordMin)
	}
	if len([]byte(password)) > passwordMaxBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", domain.ErrValidation, passwordMaxBytes)
	}
	return nil
}

// HashPassword bcrypts a trimmed password. Over-long input is a validation
// error rather than a hashing failure.
func HashPassword(password string) (string, error) {
	if len([]byte(strings.TrimSpace(password))) > passwordMaxBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", domain.ErrValidation, passwordMaxBytes)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(password)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
