package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
)

type stubProducts struct {
	byName map[string]domain.Product
}

func (s *stubProducts) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	if s.byName == nil {
		s.byName = map[string]domain.Product{}
	}
	s.byName[p.Name] = p
	return &p, nil
}

type stubAdmins struct {
	calls int
	err   error
}

func (s *stubAdmins) EnsureAdmin(_ context.Context, name, email, _ string) (*domain.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{ID: "admin-1", Name: name, Email: email, Role: domain.RoleAdmin}, nil
}

func TestApply_SeedsMenuIdempotently(t *testing.T) {
	products := &stubProducts{}
	admins := &stubAdmins{}
	ctx := context.Background()

	require.NoError(t, Apply(ctx, products, admins, Admin{}, nil))
	require.NoError(t, Apply(ctx, products, admins, Admin{}, nil))

	assert.Len(t, products.byName, len(Menu))
	assert.Equal(t, 0, admins.calls, "no password, no admin")
	for _, p := range products.byName {
		assert.NotEmpty(t, domain.NormalizeCategory(p.Category), "category %q must be known", p.Category)
	}
}

func TestApply_EnsuresAdmin(t *testing.T) {
	admins := &stubAdmins{}
	err := Apply(context.Background(), &stubProducts{}, admins, Admin{Name: "Admin", Email: "admin@example.com", Password: "s3cret"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, admins.calls)

	admins.err = errors.New("db down")
	err = Apply(context.Background(), &stubProducts{}, admins, Admin{Email: "admin@example.com", Password: "s3cret"}, nil)
	require.Error(t, err)
}
