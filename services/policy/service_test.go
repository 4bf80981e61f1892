package policy

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/models"
	"github.com/inboxmarket/datagate/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPolicyRepository is a mock implementation of repositories.PolicyRepository
type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Policy, error) {
	args := m.Called(ctx, ownerID)
	if p := args.Get(0); p != nil {
		return p.(*models.Policy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPolicyRepository) Save(ctx context.Context, policy *models.Policy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *MockPolicyRepository) Delete(ctx context.Context, ownerID uuid.UUID) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

func newService(repo *MockPolicyRepository) *Service {
	return NewService(repo, NewCache(10, 5*time.Minute), zap.NewNop())
}

func TestServiceGetCachesSnapshot(t *testing.T) {
	repo := new(MockPolicyRepository)
	svc := newService(repo)
	ctx := context.Background()

	stored := models.DefaultPolicy(uuid.New())
	repo.On("GetByOwner", ctx, stored.OwnerID).Return(stored, nil).Once()

	first, err := svc.Get(ctx, stored.OwnerID)
	require.NoError(t, err)

	// Second call must come from cache, not the repository
	second, err := svc.Get(ctx, stored.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	repo.AssertNumberOfCalls(t, "GetByOwner", 1)
}

func TestServiceGetReturnsClone(t *testing.T) {
	repo := new(MockPolicyRepository)
	svc := newService(repo)
	ctx := context.Background()

	stored := models.DefaultPolicy(uuid.New())
	repo.On("GetByOwner", ctx, stored.OwnerID).Return(stored, nil).Once()

	got, err := svc.Get(ctx, stored.OwnerID)
	require.NoError(t, err)

	// Mutating the returned snapshot must not leak into later reads
	got.GlobalDataSharing = false
	again, err := svc.Get(ctx, stored.OwnerID)
	require.NoError(t, err)
	assert.True(t, again.GlobalDataSharing)
}

func TestServiceGetNotFound(t *testing.T) {
	repo := new(MockPolicyRepository)
	svc := newService(repo)
	ctx := context.Background()
	ownerID := uuid.New()

	repo.On("GetByOwner", ctx, ownerID).Return(nil, sql.ErrNoRows)

	_, err := svc.Get(ctx, ownerID)
	assert.True(t, services.IsNotFoundError(err))
}

func TestServiceSetReplacesAndInvalidates(t *testing.T) {
	repo := new(MockPolicyRepository)
	svc := newService(repo)
	ctx := context.Background()

	stored := models.DefaultPolicy(uuid.New())
	// Consumed by the initial Get only; Set's version check hits the cache.
	repo.On("GetByOwner", ctx, stored.OwnerID).Return(stored, nil).Once()
	_, err := svc.Get(ctx, stored.OwnerID)
	require.NoError(t, err)

	updated := stored.Clone()
	updated.AllowPurchaseProof = true
	repo.On("Save", ctx, mock.AnythingOfType("*models.Policy")).Return(nil)

	result, err := svc.Set(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, stored.Version+1, result.Version)
	assert.True(t, result.AllowPurchaseProof)

	// Cache was invalidated: next Get goes back to the repository
	repo.On("GetByOwner", ctx, stored.OwnerID).Return(result, nil)
	fresh, err := svc.Get(ctx, stored.OwnerID)
	require.NoError(t, err)
	assert.True(t, fresh.AllowPurchaseProof)
}

func TestServiceSetRejectsInvalidPolicy(t *testing.T) {
	repo := new(MockPolicyRepository)
	svc := newService(repo)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(p *models.Policy)
	}{
		{"negative max emails", func(p *models.Policy) { p.MaxEmailsPerRequest = -1 }},
		{"negative max age", func(p *models.Policy) { p.MaxEmailAgeDays = -5 }},
		{"negative price", func(p *models.Policy) { p.Pricing.Delivery = -0.10 }},
		{"malformed wallet", func(p *models.Policy) { p.WalletAddress = "0x123" }},
		{"wallet without prefix", func(p *models.Policy) { p.WalletAddress = "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12ab" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.DefaultPolicy(uuid.New())
			tt.mutate(p)
			_, err := svc.Set(ctx, p)
			assert.True(t, services.IsValidationError(err))
		})
	}
	repo.AssertNotCalled(t, "Save")
}

func TestServiceBootstrap(t *testing.T) {
	repo := new(MockPolicyRepository)
	svc := newService(repo)
	ctx := context.Background()
	ownerID := uuid.New()

	repo.On("GetByOwner", ctx, ownerID).Return(nil, sql.ErrNoRows).Once()
	repo.On("Save", ctx, mock.AnythingOfType("*models.Policy")).Return(nil).Once()

	p, err := svc.Bootstrap(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, ownerID, p.OwnerID)
	assert.True(t, p.GlobalDataSharing)
	assert.True(t, p.RedactEmailBodies)
	repo.AssertExpectations(t)
}

func TestAllowed(t *testing.T) {
	base := models.DefaultPolicy(uuid.New())
	base.AllowPurchaseProof = true
	base.AllowFinancialProof = false

	tests := []struct {
		name     string
		mutate   func(p *models.Policy)
		category models.Category
		expected bool
	}{
		{"allowed category", nil, models.CategoryDelivery, true},
		{"disabled category", nil, models.CategoryFinancial, false},
		{
			"global switch dominates",
			func(p *models.Policy) { p.GlobalDataSharing = false },
			models.CategoryDelivery,
			false,
		},
		{"unknown category denied", nil, models.Category("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base.Clone()
			if tt.mutate != nil {
				tt.mutate(p)
			}
			assert.Equal(t, tt.expected, Allowed(p, tt.category))
		})
	}
}

func TestAllowedDeniesEverythingWhenGlobalOff(t *testing.T) {
	p := models.DefaultPolicy(uuid.New())
	p.AllowSubscriptionProof = true
	p.AllowDeliveryProof = true
	p.AllowPurchaseProof = true
	p.AllowFinancialProof = true
	p.GlobalDataSharing = false

	for _, c := range models.Categories() {
		assert.False(t, Allowed(p, c), "category %s should be denied", c)
	}
}

func TestValidWalletAddress(t *testing.T) {
	assert.True(t, ValidWalletAddress("0xab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"))
	assert.True(t, ValidWalletAddress("0xAB12CD34EF56AB12CD34EF56AB12CD34EF56AB12"))
	assert.False(t, ValidWalletAddress(""))
	assert.False(t, ValidWalletAddress("0x123"))
	assert.False(t, ValidWalletAddress("ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"))
	assert.False(t, ValidWalletAddress("0xzz12cd34ef56ab12cd34ef56ab12cd34ef56ab12"))
}

func TestCacheLRUEviction(t *testing.T) {
	cache := NewCache(2, time.Minute)

	a := models.DefaultPolicy(uuid.New())
	b := models.DefaultPolicy(uuid.New())
	c := models.DefaultPolicy(uuid.New())

	cache.Set(a)
	cache.Set(b)
	cache.Get(a.OwnerID) // a is now most recently used
	cache.Set(c)         // evicts b

	assert.NotNil(t, cache.Get(a.OwnerID))
	assert.Nil(t, cache.Get(b.OwnerID))
	assert.NotNil(t, cache.Get(c.OwnerID))
}

func TestCacheStats(t *testing.T) {
	cache := NewCache(4, time.Minute)
	p := models.DefaultPolicy(uuid.New())

	cache.Get(p.OwnerID) // miss
	cache.Set(p)
	cache.Get(p.OwnerID) // hit

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
	assert.Equal(t, 1, stats.Size)
}
