// Package negotiation coordinates policy evaluation, pricing, and redaction
// into a single accept/deny/counter-offer decision per request.
package negotiation

import (
	"context"
	"fmt"
	"time"

	"github.com/inboxmarket/datagate/internal/ledger"
	"github.com/inboxmarket/datagate/internal/pricing"
	"github.com/inboxmarket/datagate/internal/redact"
	"github.com/inboxmarket/datagate/models"
	"github.com/inboxmarket/datagate/repositories"
	"github.com/inboxmarket/datagate/services"
	"github.com/inboxmarket/datagate/services/mailsource"
	"github.com/inboxmarket/datagate/services/policy"
	"go.uber.org/zap"
)

// demandWindow is the trailing window used for the demand multiplier
const demandWindow = time.Hour

// Settler settles payment for an accepted negotiation against the owner's
// configured wallet. Invoked only when the request demands settlement.
type Settler interface {
	Settle(ctx context.Context, walletAddress string, result *models.NegotiationResult) error
}

// NoopSettler accepts every settlement. Used when no payment rail is wired.
type NoopSettler struct{}

func (NoopSettler) Settle(context.Context, string, *models.NegotiationResult) error { return nil }

// Service orchestrates a negotiation pass: evaluate the policy, quote a
// price, run the privacy compatibility check, and record the outcome. Each
// call is a self-contained computation over the request and a policy
// snapshot; the ledger serializes its own appends.
type Service struct {
	ledger  *ledger.Ledger
	source  mailsource.Source
	archive repositories.ArchiveRepository
	settler Settler
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a negotiation service. archive may be nil when no
// durable store is configured; settler may be nil and defaults to NoopSettler.
func NewService(l *ledger.Ledger, source mailsource.Source, archive repositories.ArchiveRepository, settler Settler, logger *zap.Logger) *Service {
	if settler == nil {
		settler = NoopSettler{}
	}
	return &Service{
		ledger:  l,
		source:  source,
		archive: archive,
		settler: settler,
		logger:  logger,
		now:     time.Now,
	}
}

// Negotiate runs a single negotiation pass over the request and a policy
// snapshot. Malformed requests are rejected before any ledger state is
// touched; every validated request appends exactly one ledger entry,
// accepted or denied.
func (s *Service) Negotiate(ctx context.Context, req *models.NegotiationRequest, pol *models.Policy) (*models.NegotiationResult, error) {
	result, err := s.negotiate(req, pol)
	if err != nil {
		return nil, err
	}

	s.record(ctx, req, pol, result, 0)

	if err := s.settle(ctx, req, pol, result); err != nil {
		return nil, err
	}
	return result, nil
}

// negotiate validates and decides without touching the ledger; callers
// record the outcome once they know the disclosed record count.
func (s *Service) negotiate(req *models.NegotiationRequest, pol *models.Policy) (*models.NegotiationResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if pol == nil {
		return nil, fmt.Errorf("negotiate: %w", services.ErrPolicyNotFound)
	}
	return s.decide(req, pol), nil
}

func (s *Service) record(ctx context.Context, req *models.NegotiationRequest, pol *models.Policy, result *models.NegotiationResult, recordCount int) {
	entry := models.NewLedgerEntry(pol.OwnerID, result, recordCount)
	s.ledger.Record(entry)
	if s.archive != nil {
		if err := s.archive.Append(ctx, entry); err != nil {
			s.logger.Warn("failed to archive negotiation outcome",
				zap.String("request_id", req.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("negotiation decided",
		zap.String("request_id", req.ID.String()),
		zap.String("category", req.Category.String()),
		zap.Bool("accepted", result.Accepted),
		zap.Float64("price", result.Price),
		zap.Int("record_count", recordCount),
		zap.String("reason", result.Reason))
}

func (s *Service) settle(ctx context.Context, req *models.NegotiationRequest, pol *models.Policy, result *models.NegotiationResult) error {
	if !result.Accepted || !req.SettlementRequired {
		return nil
	}
	if err := s.settler.Settle(ctx, pol.WalletAddress, result); err != nil {
		return fmt.Errorf("%w: %v", services.ErrSettlementFailed, err)
	}
	return nil
}

// decide walks the decision steps in order. Denials are terminal for the
// attempt; the first failing step wins.
func (s *Service) decide(req *models.NegotiationRequest, pol *models.Policy) *models.NegotiationResult {
	result := &models.NegotiationResult{
		RequestID: req.ID,
		Category:  req.Category,
		DecidedAt: s.now(),
	}

	if !pol.GlobalDataSharing {
		result.Reason = "global sharing disabled"
		return result
	}

	if !policy.Allowed(pol, req.Category) {
		result.Reason = fmt.Sprintf("%s access disabled", req.Category)
		return result
	}

	basePrice := pol.BasePrice(req.Category)
	recentCount := s.ledger.RecentCount(req.Category, demandWindow)
	quote, err := pricing.Quote(pricing.Request{
		RequestedEmails:     req.MaxEmails,
		IncludeBodies:       req.IncludeBodies,
		IncludePersonalInfo: req.IncludePersonalInfo,
	}, basePrice, recentCount)
	if err != nil {
		result.Reason = fmt.Sprintf("pricing unset for %s", req.Category)
		return result
	}

	if req.IncludeBodies && pol.RedactEmailBodies {
		result.Reason = "body access requested but policy requires redaction"
		result.CounterOffer = &models.CounterOffer{
			Price:      quote,
			Conditions: []string{"redacted bodies only"},
		}
		return result
	}
	if req.IncludePersonalInfo && pol.RedactPersonalInfo {
		result.Reason = "personal info access requested but policy requires redaction"
		result.CounterOffer = &models.CounterOffer{
			Price:      quote,
			Conditions: []string{"redacted personal info only"},
		}
		return result
	}

	if req.SettlementRequired && !policy.ValidWalletAddress(pol.WalletAddress) {
		result.Reason = "invalid payment configuration"
		return result
	}

	result.Accepted = true
	result.Price = quote
	result.Adjusted = &models.EffectivePolicy{
		MaxAgeDays:         tighten(req.MaxAgeDays, pol.MaxEmailAgeDays),
		MaxEmails:          tighten(req.MaxEmails, pol.MaxEmailsPerRequest),
		RedactBodies:       !req.IncludeBodies || pol.RedactEmailBodies,
		RedactPersonalInfo: !req.IncludePersonalInfo || pol.RedactPersonalInfo,
		ShowSubject:        pol.ShowSubjectInfo,
		ShowSender:         pol.ShowSenderInfo,
	}
	return result
}

// Disclose negotiates and, on acceptance, fetches the owner's records and
// returns the redacted view under the adjusted policy. The ledger entry
// carries the disclosed record count. Fetch failures propagate as errors,
// never as an empty record set.
func (s *Service) Disclose(ctx context.Context, req *models.NegotiationRequest, pol *models.Policy) (*models.DisclosureResult, error) {
	result, err := s.negotiate(req, pol)
	if err != nil {
		return nil, err
	}
	if !result.Accepted {
		s.record(ctx, req, pol, result, 0)
		return &models.DisclosureResult{Negotiation: result}, nil
	}

	records, err := s.source.FetchRecords(ctx, pol.OwnerID.String(), req.Category, result.Adjusted.MaxAgeDays)
	if err != nil {
		s.record(ctx, req, pol, result, 0)
		return nil, fmt.Errorf("%w: %v", services.ErrFetchFailed, err)
	}

	pred := req.Predicate()
	pred.MaxAgeDays = result.Adjusted.MaxAgeDays
	disclosed := redact.Filter(records, pred, redact.FromAdjusted(result.Adjusted), s.now())

	s.record(ctx, req, pol, result, len(disclosed))

	if err := s.settle(ctx, req, pol, result); err != nil {
		return nil, err
	}

	return &models.DisclosureResult{
		Negotiation: result,
		Records:     disclosed,
	}, nil
}

// History returns the most recent ledger entries, newest first
func (s *Service) History(limit int) []models.LedgerEntry {
	return s.ledger.History(limit)
}

// Stats reports per-category demand over the standard trailing windows
func (s *Service) Stats() ledger.UsageStats {
	return s.ledger.Stats()
}

func validateRequest(req *models.NegotiationRequest) error {
	if req == nil {
		return fmt.Errorf("negotiate: %w", services.ErrInvalidRequest)
	}
	if !req.Category.Valid() {
		return fmt.Errorf("category %q: %w", string(req.Category), services.ErrUnknownCategory)
	}
	if !req.Requester.Valid() {
		return fmt.Errorf("requester %q: %w", string(req.Requester), services.ErrInvalidRequest)
	}
	if req.MaxAgeDays < 0 {
		return fmt.Errorf("max age %d: %w", req.MaxAgeDays, services.ErrNegativeAge)
	}
	if req.MaxEmails <= 0 {
		return fmt.Errorf("max emails %d: %w", req.MaxEmails, services.ErrNonPositiveCount)
	}
	return nil
}

// tighten combines a requested ceiling with the policy ceiling. Zero means
// no ceiling on either side, so the other value wins; otherwise the smaller.
func tighten(requested, ceiling int) int {
	if requested <= 0 {
		return ceiling
	}
	if ceiling <= 0 {
		return requested
	}
	if requested < ceiling {
		return requested
	}
	return ceiling
}
