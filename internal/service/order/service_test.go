package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
	"storefront/internal/events"
)

// memoryRepo is an in-memory order repository that counts every call.
type memoryRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	seq    int
	calls  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[string]domain.Order)}
}

func (r *memoryRepo) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.seq++
	o.ID = fmt.Sprintf("order-%d", r.seq)
	o.Version = 1
	o.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	o.UpdatedAt = o.CreatedAt
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	r.orders[o.ID] = o
	clone := o
	return &clone, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (r *memoryRepo) List(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := []domain.Order{}
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := []domain.Order{}
	for _, o := range r.orders {
		if o.User.ID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, expectedVersion int) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if expectedVersion > 0 && o.Version != expectedVersion {
		return nil, domain.ErrConflict
	}
	o.Status = status
	o.Version++
	o.UpdatedAt = time.Now()
	r.orders[id] = o
	return &o, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if _, ok := r.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *memoryRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var (
	alice = domain.Caller{UserID: "user-alice", Role: domain.RoleCustomer}
	bob   = domain.Caller{UserID: "user-bob", Role: domain.RoleCustomer}
	admin = domain.Caller{UserID: "user-admin", Role: domain.RoleAdmin}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleInput() CreateInput {
	return CreateInput{
		Lines: []LineInput{
			{ProductID: "p-latte", Name: "Latte", Quantity: 2, Price: dec("3.50")},
			{CartID: "p-croissant", Name: "Croissant", Quantity: 1, Price: dec("4.00")},
		},
		ShippingAddress: domain.ShippingAddress{Address: " 1 Main St ", City: "Springfield", Zip: "12345"},
		PaymentMethod:   "creditCard",
		ItemsPrice:      dec("11.00"),
		TaxPrice:        dec("0.88"),
		ShippingPrice:   decimal.Zero,
		TotalPrice:      dec("11.88"),
	}
}

func newService(opts ...Option) (*Service, *memoryRepo, *recordingPublisher) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	return New(repo, pub, nil, opts...), repo, pub
}

func TestCreate_SnapshotsLines(t *testing.T) {
	svc, _, pub := newService()
	ctx := context.Background()

	o, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, alice.UserID, o.User.ID)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, "p-latte", o.Lines[0].ProductID)
	assert.Equal(t, 2, o.Lines[0].Quantity)
	assert.True(t, o.Lines[0].Price.Equal(dec("3.50")))
	assert.Equal(t, "p-croissant", o.Lines[1].ProductID, "cart _id accepted as product reference")
	assert.True(t, o.Lines[1].Price.Equal(dec("4.00")))
	assert.Equal(t, "1 Main St", o.ShippingAddress.Address)
	assert.True(t, o.TotalPrice.Equal(dec("11.88")))
	assert.Equal(t, []events.Type{events.OrderCreated}, pub.types())
}

func TestCreate_EmptyLinesFailsWithoutPersisting(t *testing.T) {
	svc, repo, pub := newService()
	in := sampleInput()
	in.Lines = nil

	_, err := svc.Create(context.Background(), alice, in)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, repo.callCount())
	assert.Empty(t, pub.types())
}

func TestCreate_RejectsBadLines(t *testing.T) {
	cases := map[string]LineInput{
		"missing product": {Name: "Latte", Quantity: 1, Price: dec("3.50")},
		"zero quantity":   {ProductID: "p", Quantity: 0, Price: dec("3.50")},
		"negative price":  {ProductID: "p", Quantity: 1, Price: dec("-1")},
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			svc, repo, _ := newService()
			in := sampleInput()
			in.Lines = []LineInput{line}
			_, err := svc.Create(context.Background(), alice, in)
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, 0, repo.callCount())
		})
	}
}

func TestCreate_TrustsInconsistentTotals(t *testing.T) {
	svc, _, _ := newService()
	in := sampleInput()
	in.TotalPrice = dec("1.00")

	o, err := svc.Create(context.Background(), alice, in)
	require.NoError(t, err)
	assert.True(t, o.TotalPrice.Equal(dec("1.00")))
}

func TestListMine_OnlyCallersOrders(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, sampleInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, o := range mine {
		assert.Equal(t, alice.UserID, o.User.ID)
	}
}

func TestListAll_AdminOnly(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)

	before := repo.callCount()
	_, err = svc.ListAll(ctx, alice)
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, before, repo.callCount())

	all, err := svc.ListAll(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGet_Visibility(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	o, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)

	got, err := svc.Get(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = svc.Get(ctx, admin, o.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, o.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	// absent orders look the same as foreign ones to non-admins
	_, err = svc.Get(ctx, bob, "missing")
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Get(ctx, admin, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus_NonAdminRejectedBeforeStore(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()
	o, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)

	before := repo.callCount()
	_, err = svc.UpdateStatus(ctx, alice, o.ID, UpdateStatusInput{Status: "Completed"})
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, before, repo.callCount())

	_, err = svc.UpdateStatus(ctx, bob, "missing", UpdateStatusInput{Status: "Completed"})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateStatus_PermissiveByDefault(t *testing.T) {
	svc, _, pub := newService()
	ctx := context.Background()
	o, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)

	completed, err := svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusInput{Status: "Completed"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, completed.Status)

	canceled, err := svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusInput{Status: "Canceled"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, canceled.Status)
	assert.Equal(t, 3, canceled.Version)

	// only status changed
	assert.Len(t, canceled.Lines, 2)
	assert.True(t, canceled.TotalPrice.Equal(dec("11.88")))

	assert.Equal(t, []events.Type{events.OrderCreated, events.OrderStatusChanged, events.OrderStatusChanged}, pub.types())
}

func TestUpdateStatus_EmptyKeepsCurrentAndUnknownRejected(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	o, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)

	same, err := svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, same.Status)

	_, err = svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusInput{Status: "Shipped"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateStatus(ctx, admin, "missing", UpdateStatusInput{Status: "Completed"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus_VersionMismatchConflicts(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	o, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusInput{Status: "Completed", Version: o.Version})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusInput{Status: "Canceled", Version: o.Version})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateStatus_StrictTransitions(t *testing.T) {
	svc, _, _ := newService(WithStrictTransitions(true))
	ctx := context.Background()
	o, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusInput{Status: "Completed"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusInput{Status: "Canceled"})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusInput{Status: "Pending"})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDelete_ThenGetNotFound(t *testing.T) {
	svc, _, pub := newService()
	ctx := context.Background()
	o, err := svc.Create(ctx, alice, sampleInput())
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, alice, o.ID), domain.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, admin, o.ID))
	_, err = svc.Get(ctx, admin, o.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.ErrorIs(t, svc.Delete(ctx, admin, o.ID), domain.ErrNotFound)
	assert.Equal(t, []events.Type{events.OrderCreated, events.OrderDeleted}, pub.types())
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := New(repo, pub, nil)

	o, err := svc.Create(context.Background(), alice, sampleInput())
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
}
