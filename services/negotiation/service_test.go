package negotiation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/internal/ledger"
	"github.com/inboxmarket/datagate/models"
	"github.com/inboxmarket/datagate/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockSource is a mock implementation of mailsource.Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchRecords(ctx context.Context, ownerID string, category models.Category, maxAgeDays int) ([]models.Record, error) {
	args := m.Called(ctx, ownerID, category, maxAgeDays)
	if r := args.Get(0); r != nil {
		return r.([]models.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockArchive is a mock implementation of repositories.ArchiveRepository
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Append(ctx context.Context, entry models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockArchive) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, ownerID, limit)
	if r := args.Get(0); r != nil {
		return r.([]models.LedgerEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestService(source *MockSource) (*Service, *ledger.Ledger) {
	l := ledger.New(ledger.DefaultCapacity, fixedClock)
	svc := NewService(l, source, nil, nil, zap.NewNop())
	svc.now = fixedClock
	return svc, l
}

func basePolicy() *models.Policy {
	p := models.DefaultPolicy(uuid.New())
	p.Pricing.Delivery = 0.10
	p.MaxEmailsPerRequest = 10
	p.RedactEmailBodies = true
	return p
}

func deliveryRequest() *models.NegotiationRequest {
	return &models.NegotiationRequest{
		ID:         uuid.New(),
		Category:   models.CategoryDelivery,
		Requester:  models.RequesterAgent,
		MaxAgeDays: 30,
		MaxEmails:  10,
		Timestamp:  testNow,
	}
}

func TestNegotiateAcceptsNeutralRequest(t *testing.T) {
	svc, _ := newTestService(nil)
	pol := basePolicy()

	result, err := svc.Negotiate(context.Background(), deliveryRequest(), pol)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 0.10, result.Price)
	require.NotNil(t, result.Adjusted)
	assert.Equal(t, 30, result.Adjusted.MaxAgeDays)
	assert.Equal(t, 10, result.Adjusted.MaxEmails)
	assert.True(t, result.Adjusted.RedactBodies)
	assert.True(t, result.Adjusted.RedactPersonalInfo)
}

func TestNegotiateBodyRequestCounterOffer(t *testing.T) {
	svc, _ := newTestService(nil)
	pol := basePolicy()

	req := deliveryRequest()
	req.IncludeBodies = true

	result, err := svc.Negotiate(context.Background(), req, pol)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "body access requested but policy requires redaction", result.Reason)
	require.NotNil(t, result.CounterOffer)
	assert.Equal(t, 0.150, result.CounterOffer.Price)
	assert.Equal(t, []string{"redacted bodies only"}, result.CounterOffer.Conditions)
}

func TestNegotiatePersonalInfoCounterOffer(t *testing.T) {
	svc, _ := newTestService(nil)
	pol := basePolicy()
	pol.RedactEmailBodies = false

	req := deliveryRequest()
	req.IncludePersonalInfo = true

	result, err := svc.Negotiate(context.Background(), req, pol)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	require.NotNil(t, result.CounterOffer)
	assert.Equal(t, []string{"redacted personal info only"}, result.CounterOffer.Conditions)
	assert.Equal(t, 0.130, result.CounterOffer.Price)
}

func TestNegotiateVolumeSurcharge(t *testing.T) {
	svc, _ := newTestService(nil)
	pol := basePolicy()
	pol.Pricing.Subscription = 0.05
	pol.MaxEmailsPerRequest = 50

	req := deliveryRequest()
	req.Category = models.CategorySubscription
	req.MaxEmails = 20

	result, err := svc.Negotiate(context.Background(), req, pol)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 0.060, result.Price)
	assert.Equal(t, 20, result.Adjusted.MaxEmails)
}

func TestNegotiateDemandSurcharge(t *testing.T) {
	svc, l := newTestService(nil)
	pol := basePolicy()
	pol.AllowPurchaseProof = true
	pol.Pricing.Purchase = 0.25

	for i := 0; i < 15; i++ {
		l.Record(models.LedgerEntry{
			ID:        uuid.New(),
			OwnerID:   pol.OwnerID,
			Category:  models.CategoryPurchase,
			Timestamp: testNow.Add(-30 * time.Minute),
		})
	}

	req := deliveryRequest()
	req.Category = models.CategoryPurchase

	result, err := svc.Negotiate(context.Background(), req, pol)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 0.500, result.Price)
}

func TestNegotiateGlobalSwitchDeniesEverything(t *testing.T) {
	svc, l := newTestService(nil)
	pol := basePolicy()
	pol.AllowSubscriptionProof = true
	pol.AllowPurchaseProof = true
	pol.AllowFinancialProof = true
	pol.GlobalDataSharing = false

	for _, c := range models.Categories() {
		req := deliveryRequest()
		req.Category = c
		result, err := svc.Negotiate(context.Background(), req, pol)
		require.NoError(t, err)
		assert.False(t, result.Accepted, "category %s", c)
		assert.Equal(t, "global sharing disabled", result.Reason)
	}
	assert.Equal(t, len(models.Categories()), l.Len())
}

func TestNegotiateCategoryDisabled(t *testing.T) {
	svc, _ := newTestService(nil)
	pol := basePolicy()
	pol.AllowFinancialProof = false

	req := deliveryRequest()
	req.Category = models.CategoryFinancial

	result, err := svc.Negotiate(context.Background(), req, pol)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "financial access disabled", result.Reason)
}

func TestNegotiatePricingUnset(t *testing.T) {
	svc, _ := newTestService(nil)
	pol := basePolicy()
	pol.Pricing.Delivery = 0

	result, err := svc.Negotiate(context.Background(), deliveryRequest(), pol)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, "pricing unset for delivery", result.Reason)
	assert.Nil(t, result.CounterOffer)
}

func TestNegotiateSettlementRequiresWallet(t *testing.T) {
	svc, _ := newTestService(nil)

	tests := []struct {
		name     string
		wallet   string
		accepted bool
	}{
		{"missing wallet", "", false},
		{"malformed wallet", "0x123", false},
		{"valid wallet", "0xab12cd34ef56ab12cd34ef56ab12cd34ef56ab12", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pol := basePolicy()
			pol.WalletAddress = tt.wallet
			req := deliveryRequest()
			req.SettlementRequired = true

			result, err := svc.Negotiate(context.Background(), req, pol)
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, result.Accepted)
			if !tt.accepted {
				assert.Equal(t, "invalid payment configuration", result.Reason)
			}
		})
	}
}

func TestNegotiateValidationSkipsLedger(t *testing.T) {
	svc, l := newTestService(nil)
	pol := basePolicy()

	tests := []struct {
		name   string
		mutate func(r *models.NegotiationRequest)
	}{
		{"unknown category", func(r *models.NegotiationRequest) { r.Category = "gossip" }},
		{"unknown requester", func(r *models.NegotiationRequest) { r.Requester = "bot" }},
		{"negative age", func(r *models.NegotiationRequest) { r.MaxAgeDays = -1 }},
		{"zero count", func(r *models.NegotiationRequest) { r.MaxEmails = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := deliveryRequest()
			tt.mutate(req)
			_, err := svc.Negotiate(context.Background(), req, pol)
			assert.True(t, services.IsValidationError(err))
		})
	}
	assert.Equal(t, 0, l.Len())
}

func TestNegotiateDenialNeverRecordsAccepted(t *testing.T) {
	svc, l := newTestService(nil)
	pol := basePolicy()
	pol.GlobalDataSharing = false

	_, err := svc.Negotiate(context.Background(), deliveryRequest(), pol)
	require.NoError(t, err)

	for _, entry := range l.History(10) {
		assert.False(t, entry.Accepted)
	}
	assert.Equal(t, 1, l.Len())
}

func TestNegotiateEveryOutcomeAppendsOneEntry(t *testing.T) {
	svc, l := newTestService(nil)
	pol := basePolicy()

	// accept
	_, err := svc.Negotiate(context.Background(), deliveryRequest(), pol)
	require.NoError(t, err)
	// counter-offer
	req := deliveryRequest()
	req.IncludeBodies = true
	_, err = svc.Negotiate(context.Background(), req, pol)
	require.NoError(t, err)

	assert.Equal(t, 2, l.Len())
}

func TestNegotiateAdjustedTightensCeilings(t *testing.T) {
	svc, _ := newTestService(nil)
	pol := basePolicy()
	pol.MaxEmailAgeDays = 7
	pol.MaxEmailsPerRequest = 5

	req := deliveryRequest()
	req.MaxAgeDays = 30
	req.MaxEmails = 10

	result, err := svc.Negotiate(context.Background(), req, pol)
	require.NoError(t, err)
	require.True(t, result.Accepted)
	assert.Equal(t, 7, result.Adjusted.MaxAgeDays)
	assert.Equal(t, 5, result.Adjusted.MaxEmails)
}

func TestNegotiateArchivesOutcome(t *testing.T) {
	archive := new(MockArchive)
	l := ledger.New(ledger.DefaultCapacity, fixedClock)
	svc := NewService(l, nil, archive, nil, zap.NewNop())
	svc.now = fixedClock
	pol := basePolicy()

	archive.On("Append", mock.Anything, mock.AnythingOfType("models.LedgerEntry")).Return(nil).Once()

	_, err := svc.Negotiate(context.Background(), deliveryRequest(), pol)
	require.NoError(t, err)
	archive.AssertExpectations(t)
}

func TestNegotiateArchiveFailureDoesNotFailNegotiation(t *testing.T) {
	archive := new(MockArchive)
	l := ledger.New(ledger.DefaultCapacity, fixedClock)
	svc := NewService(l, nil, archive, nil, zap.NewNop())
	svc.now = fixedClock

	archive.On("Append", mock.Anything, mock.Anything).Return(errors.New("db down"))

	result, err := svc.Negotiate(context.Background(), deliveryRequest(), basePolicy())
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 1, l.Len())
}

func TestDiscloseReturnsRedactedRecords(t *testing.T) {
	source := new(MockSource)
	svc, _ := newTestService(source)
	pol := basePolicy()

	records := []models.Record{
		{
			ID:        "r1",
			Sender:    "orders@amazon.com",
			Subject:   "Your package has shipped",
			Body:      "Tracking number 1Z999",
			Timestamp: testNow.AddDate(0, 0, -2),
		},
	}
	source.On("FetchRecords", mock.Anything, pol.OwnerID.String(), models.CategoryDelivery, 30).
		Return(records, nil)

	result, err := svc.Disclose(context.Background(), deliveryRequest(), pol)
	require.NoError(t, err)
	assert.True(t, result.Negotiation.Accepted)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Your package has shipped", result.Records[0].Subject)
	assert.Equal(t, "[REDACTED]", result.Records[0].Body)
	assert.Equal(t, "[REDACTED]", result.Records[0].Sender)
}

func TestDiscloseDeniedSkipsFetch(t *testing.T) {
	source := new(MockSource)
	svc, _ := newTestService(source)
	pol := basePolicy()
	pol.GlobalDataSharing = false

	result, err := svc.Disclose(context.Background(), deliveryRequest(), pol)
	require.NoError(t, err)
	assert.False(t, result.Negotiation.Accepted)
	assert.Empty(t, result.Records)
	source.AssertNotCalled(t, "FetchRecords")
}

func TestDiscloseFetchFailurePropagates(t *testing.T) {
	source := new(MockSource)
	svc, _ := newTestService(source)
	pol := basePolicy()

	source.On("FetchRecords", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("index offline"))

	_, err := svc.Disclose(context.Background(), deliveryRequest(), pol)
	assert.True(t, services.IsUpstreamError(err))
	assert.Equal(t, 1, svc.ledger.Len())
}

func TestDiscloseLedgerCarriesRecordCount(t *testing.T) {
	source := new(MockSource)
	svc, l := newTestService(source)
	pol := basePolicy()

	records := []models.Record{
		{
			ID:        "r1",
			Sender:    "tracking@carrier.test",
			Subject:   "Your package has shipped",
			Body:      "Tracking number inside",
			Timestamp: testNow.AddDate(0, 0, -1),
		},
		{
			ID:        "r2",
			Sender:    "tracking@carrier.test",
			Subject:   "Package delivered",
			Body:      "Left at the front door",
			Timestamp: testNow.AddDate(0, 0, -2),
		},
	}
	source.On("FetchRecords", mock.Anything, pol.OwnerID.String(), models.CategoryDelivery, 30).
		Return(records, nil)

	result, err := svc.Disclose(context.Background(), deliveryRequest(), pol)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	history := l.History(10)
	require.Len(t, history, 1)
	assert.True(t, history[0].Accepted)
	assert.Equal(t, len(result.Records), history[0].RecordCount)
}

func TestNegotiateSettlementFailure(t *testing.T) {
	l := ledger.New(ledger.DefaultCapacity, fixedClock)
	svc := NewService(l, nil, nil, failingSettler{}, zap.NewNop())
	svc.now = fixedClock

	pol := basePolicy()
	pol.WalletAddress = "0xab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"
	req := deliveryRequest()
	req.SettlementRequired = true

	_, err := svc.Negotiate(context.Background(), req, pol)
	assert.True(t, services.IsUpstreamError(err))
}

type failingSettler struct{}

func (failingSettler) Settle(context.Context, string, *models.NegotiationResult) error {
	return errors.New("rail unavailable")
}

func TestTighten(t *testing.T) {
	tests := []struct {
		requested, ceiling, want int
	}{
		{10, 5, 5},
		{5, 10, 5},
		{0, 10, 10},
		{10, 0, 10},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tighten(tt.requested, tt.ceiling))
	}
}
