// Package policy manages the single mutable per-owner sharing policy:
// retrieval with snapshot caching, whole-object atomic replacement, and
// category-level permission evaluation.
package policy

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/models"
	"github.com/inboxmarket/datagate/repositories"
	"github.com/inboxmarket/datagate/services"
	"go.uber.org/zap"
)

// walletPattern is the settlement address format: 0x followed by exactly
// 40 hex characters.
var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidWalletAddress reports whether s is a well-formed settlement address
func ValidWalletAddress(s string) bool {
	return walletPattern.MatchString(s)
}

// Service handles policy retrieval and replacement
type Service struct {
	repo   repositories.PolicyRepository
	cache  *Cache
	logger *zap.Logger
}

// NewService creates a new policy Service
func NewService(repo repositories.PolicyRepository, cache *Cache, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// Get returns the owner's current policy snapshot. Each negotiation reads
// one snapshot; an in-flight update is never partially visible.
func (s *Service) Get(ctx context.Context, ownerID uuid.UUID) (*models.Policy, error) {
	if cached := s.cache.Get(ownerID); cached != nil {
		s.logger.Debug("policy cache hit", zap.String("owner_id", ownerID.String()))
		return cached, nil
	}

	p, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrPolicyNotFound.WithDetail("owner_id", ownerID.String())
		}
		return nil, services.WrapInternal("failed to load policy", err)
	}

	s.cache.Set(p)
	s.logger.Debug("policy cache miss, loaded from store",
		zap.String("owner_id", ownerID.String()),
		zap.Int("version", p.Version))

	return p.Clone(), nil
}

// Set validates and replaces the owner's policy wholesale. The version is
// bumped and the cached snapshot invalidated so concurrent readers switch
// from the old complete object to the new complete object, never a mix.
func (s *Service) Set(ctx context.Context, p *models.Policy) (*models.Policy, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	updated := p.Clone()
	updated.Version = p.Version + 1
	// Callers replacing the whole object may not carry the stored version;
	// derive the bump from the current snapshot when available.
	if current, err := s.Get(ctx, p.OwnerID); err == nil && current.Version >= updated.Version {
		updated.Version = current.Version + 1
	}
	updated.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, updated); err != nil {
		return nil, services.WrapInternal("failed to save policy", err)
	}

	s.cache.Invalidate(updated.OwnerID)
	s.logger.Info("policy replaced",
		zap.String("owner_id", updated.OwnerID.String()),
		zap.Int("version", updated.Version))

	return updated, nil
}

// Bootstrap returns the owner's policy, creating the default one on first use
func (s *Service) Bootstrap(ctx context.Context, ownerID uuid.UUID) (*models.Policy, error) {
	p, err := s.Get(ctx, ownerID)
	if err == nil {
		return p, nil
	}
	if !services.IsNotFoundError(err) {
		return nil, err
	}

	def := models.DefaultPolicy(ownerID)
	if err := s.repo.Save(ctx, def); err != nil {
		return nil, services.WrapInternal("failed to bootstrap policy", err)
	}

	s.logger.Info("default policy created", zap.String("owner_id", ownerID.String()))
	return def.Clone(), nil
}

// Validate checks a policy's structural invariants before it is stored
func Validate(p *models.Policy) error {
	if p == nil || p.OwnerID == uuid.Nil {
		return invalidPolicy("owner_id")
	}
	if p.MaxEmailsPerRequest < 0 {
		return invalidPolicy("max_emails_per_request")
	}
	if p.MaxEmailAgeDays < 0 {
		return invalidPolicy("max_email_age_days")
	}
	for _, c := range models.Categories() {
		if p.Pricing.For(c) < 0 {
			return invalidPolicy("pricing").WithDetail("category", c.String())
		}
	}
	if p.WalletAddress != "" && !ValidWalletAddress(p.WalletAddress) {
		return invalidPolicy("wallet_address")
	}
	return nil
}

// invalidPolicy builds a fresh validation error; the shared sentinel is never
// mutated with per-call details.
func invalidPolicy(field string) *services.DomainError {
	return services.NewDomainError(services.ErrorTypeValidation, "invalid policy", nil).
		WithDetail("field", field)
}
