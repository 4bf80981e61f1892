package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/models"
	"github.com/inboxmarket/datagate/repositories"
	"go.uber.org/zap"
)

// PolicyRepository implements repositories.PolicyRepository over Postgres
type PolicyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *sql.DB, logger *zap.Logger) repositories.PolicyRepository {
	return &PolicyRepository{
		db:     db,
		logger: logger,
	}
}

const policyColumns = `owner_id, global_data_sharing,
	allow_subscription_proof, allow_delivery_proof, allow_purchase_proof, allow_financial_proof,
	price_subscription, price_delivery, price_purchase, price_financial,
	redact_email_bodies, redact_personal_info, show_subject_info, show_sender_info,
	max_emails_per_request, max_email_age_days, wallet_address, version, updated_at`

// GetByOwner retrieves the single active policy for an owner
func (r *PolicyRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE owner_id = $1`

	p := &models.Policy{}
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(
		&p.OwnerID,
		&p.GlobalDataSharing,
		&p.AllowSubscriptionProof,
		&p.AllowDeliveryProof,
		&p.AllowPurchaseProof,
		&p.AllowFinancialProof,
		&p.Pricing.Subscription,
		&p.Pricing.Delivery,
		&p.Pricing.Purchase,
		&p.Pricing.Financial,
		&p.RedactEmailBodies,
		&p.RedactPersonalInfo,
		&p.ShowSubjectInfo,
		&p.ShowSenderInfo,
		&p.MaxEmailsPerRequest,
		&p.MaxEmailAgeDays,
		&p.WalletAddress,
		&p.Version,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("policy for owner %s: %w", ownerID, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	return p, nil
}

// Save replaces the whole policy row atomically via upsert
func (r *PolicyRepository) Save(ctx context.Context, policy *models.Policy) error {
	query := `
		INSERT INTO policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (owner_id) DO UPDATE SET
			global_data_sharing = EXCLUDED.global_data_sharing,
			allow_subscription_proof = EXCLUDED.allow_subscription_proof,
			allow_delivery_proof = EXCLUDED.allow_delivery_proof,
			allow_purchase_proof = EXCLUDED.allow_purchase_proof,
			allow_financial_proof = EXCLUDED.allow_financial_proof,
			price_subscription = EXCLUDED.price_subscription,
			price_delivery = EXCLUDED.price_delivery,
			price_purchase = EXCLUDED.price_purchase,
			price_financial = EXCLUDED.price_financial,
			redact_email_bodies = EXCLUDED.redact_email_bodies,
			redact_personal_info = EXCLUDED.redact_personal_info,
			show_subject_info = EXCLUDED.show_subject_info,
			show_sender_info = EXCLUDED.show_sender_info,
			max_emails_per_request = EXCLUDED.max_emails_per_request,
			max_email_age_days = EXCLUDED.max_email_age_days,
			wallet_address = EXCLUDED.wallet_address,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		policy.OwnerID,
		policy.GlobalDataSharing,
		policy.AllowSubscriptionProof,
		policy.AllowDeliveryProof,
		policy.AllowPurchaseProof,
		policy.AllowFinancialProof,
		policy.Pricing.Subscription,
		policy.Pricing.Delivery,
		policy.Pricing.Purchase,
		policy.Pricing.Financial,
		policy.RedactEmailBodies,
		policy.RedactPersonalInfo,
		policy.ShowSubjectInfo,
		policy.ShowSenderInfo,
		policy.MaxEmailsPerRequest,
		policy.MaxEmailAgeDays,
		policy.WalletAddress,
		policy.Version,
		policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}

	r.logger.Debug("policy saved",
		zap.String("owner_id", policy.OwnerID.String()),
		zap.Int("version", policy.Version))
	return nil
}

// Delete removes an owner's policy
func (r *PolicyRepository) Delete(ctx context.Context, ownerID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM policies WHERE owner_id = $1`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("policy for owner %s: %w", ownerID, sql.ErrNoRows)
	}

	return nil
}
