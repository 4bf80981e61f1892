package models

import (
	"time"

	"github.com/google/uuid"
)

// PricingConfig holds per-category base prices. A zero or negative value
// means pricing is unset for that category and negotiation must deny.
type PricingConfig struct {
	Subscription float64 `json:"subscription" db:"price_subscription"`
	Delivery     float64 `json:"delivery" db:"price_delivery"`
	Purchase     float64 `json:"purchase" db:"price_purchase"`
	Financial    float64 `json:"financial" db:"price_financial"`
}

// For returns the configured base price for a category
func (p PricingConfig) For(c Category) float64 {
	switch c {
	case CategorySubscription:
		return p.Subscription
	case CategoryDelivery:
		return p.Delivery
	case CategoryPurchase:
		return p.Purchase
	case CategoryFinancial:
		return p.Financial
	}
	return 0
}

// Policy is the single mutable user-owned configuration governing data
// sharing. Exactly one active Policy exists per owner. It is read by every
// negotiation and mutated only through a whole-object replace, so concurrent
// readers never observe a partially-updated policy.
type Policy struct {
	OwnerID uuid.UUID `json:"owner_id" db:"owner_id"`

	// Global and per-category allow switches
	GlobalDataSharing      bool `json:"global_data_sharing" db:"global_data_sharing"`
	AllowSubscriptionProof bool `json:"allow_subscription_proof" db:"allow_subscription_proof"`
	AllowDeliveryProof     bool `json:"allow_delivery_proof" db:"allow_delivery_proof"`
	AllowPurchaseProof     bool `json:"allow_purchase_proof" db:"allow_purchase_proof"`
	AllowFinancialProof    bool `json:"allow_financial_proof" db:"allow_financial_proof"`

	Pricing PricingConfig `json:"pricing"`

	// Privacy flags
	RedactEmailBodies  bool `json:"redact_email_bodies" db:"redact_email_bodies"`
	RedactPersonalInfo bool `json:"redact_personal_info" db:"redact_personal_info"`
	ShowSubjectInfo    bool `json:"show_subject_info" db:"show_subject_info"`
	ShowSenderInfo     bool `json:"show_sender_info" db:"show_sender_info"`

	// Volume and age ceilings. Zero means no ceiling.
	MaxEmailsPerRequest int `json:"max_emails_per_request" db:"max_emails_per_request"`
	MaxEmailAgeDays     int `json:"max_email_age_days" db:"max_email_age_days"`

	// Settlement identity: 0x-prefixed 40-hex-character address, empty when
	// the owner has not configured payment.
	WalletAddress string `json:"wallet_address,omitempty" db:"wallet_address"`

	Version   int       `json:"version" db:"version"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPolicy returns a conservative policy for a new owner: sharing
// enabled for low-sensitivity categories, bodies and personal info redacted.
func DefaultPolicy(ownerID uuid.UUID) *Policy {
	return &Policy{
		OwnerID:                ownerID,
		GlobalDataSharing:      true,
		AllowSubscriptionProof: true,
		AllowDeliveryProof:     true,
		AllowPurchaseProof:     false,
		AllowFinancialProof:    false,
		Pricing: PricingConfig{
			Subscription: CategorySubscription.DefaultBasePrice(),
			Delivery:     CategoryDelivery.DefaultBasePrice(),
			Purchase:     CategoryPurchase.DefaultBasePrice(),
			Financial:    CategoryFinancial.DefaultBasePrice(),
		},
		RedactEmailBodies:   true,
		RedactPersonalInfo:  true,
		ShowSubjectInfo:     true,
		ShowSenderInfo:      false,
		MaxEmailsPerRequest: 10,
		MaxEmailAgeDays:     30,
		Version:             1,
		UpdatedAt:           time.Now(),
	}
}

// CategoryAllowed returns the per-category allow flag. It does not consult
// the global switch; policy evaluation composes the two.
func (p *Policy) CategoryAllowed(c Category) bool {
	switch c {
	case CategorySubscription:
		return p.AllowSubscriptionProof
	case CategoryDelivery:
		return p.AllowDeliveryProof
	case CategoryPurchase:
		return p.AllowPurchaseProof
	case CategoryFinancial:
		return p.AllowFinancialProof
	}
	return false
}

// BasePrice returns the configured base price for a category. A zero or
// negative value means pricing is unset; negotiation denies rather than
// quoting zero.
func (p *Policy) BasePrice(c Category) float64 {
	return p.Pricing.For(c)
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the stored object to mutation.
func (p *Policy) Clone() *Policy {
	cp := *p
	return &cp
}
