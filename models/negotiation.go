package models

import (
	"time"

	"github.com/google/uuid"
)

// RequesterClass identifies what kind of party is asking for data
type RequesterClass string

const (
	RequesterHuman RequesterClass = "human"
	RequesterAgent RequesterClass = "agent"
	RequesterApp   RequesterClass = "app"
)

// Valid reports whether the requester class is recognized
func (r RequesterClass) Valid() bool {
	switch r {
	case RequesterHuman, RequesterAgent, RequesterApp:
		return true
	}
	return false
}

// NegotiationRequest describes what a requester wants: a category, freshness
// and volume bounds, and detail level. Transient; input to negotiation.
type NegotiationRequest struct {
	ID                  uuid.UUID      `json:"id"`
	Category            Category       `json:"category"`
	Requester           RequesterClass `json:"requester"`
	MaxAgeDays          int            `json:"max_age_days"`
	MaxEmails           int            `json:"max_emails"`
	IncludeBodies       bool           `json:"include_bodies"`
	IncludePersonalInfo bool           `json:"include_personal_info"`
	// SettlementRequired is set when the caller's trust model demands an
	// on-chain payment identity; the policy wallet address is then validated.
	SettlementRequired bool      `json:"settlement_required"`
	Keywords           []string  `json:"keywords,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// Predicate derives the record-matching predicate from the request
func (r *NegotiationRequest) Predicate() Predicate {
	return Predicate{
		Category:   r.Category,
		MaxAgeDays: r.MaxAgeDays,
		Keywords:   r.Keywords,
	}
}

// EffectivePolicy is the adjusted policy subset attached to an accepted
// negotiation. Fields are never looser than the base Policy: they tighten
// toward the requester's wishes but never relax below what Policy mandates.
type EffectivePolicy struct {
	MaxAgeDays         int  `json:"max_age_days"`
	MaxEmails          int  `json:"max_emails"`
	RedactBodies       bool `json:"redact_bodies"`
	RedactPersonalInfo bool `json:"redact_personal_info"`
	ShowSubject        bool `json:"show_subject"`
	ShowSender         bool `json:"show_sender"`
}

// CounterOffer carries the price and conditions under which a denied request
// would be acceptable.
type CounterOffer struct {
	Price      float64  `json:"price"`
	Conditions []string `json:"conditions"`
}

// NegotiationResult is the outcome of a single negotiation pass. Denials are
// terminal for the attempt; the caller must submit a new request to retry.
type NegotiationResult struct {
	RequestID    uuid.UUID        `json:"request_id"`
	Category     Category         `json:"category"`
	Accepted     bool             `json:"accepted"`
	Price        float64          `json:"price"`
	Reason       string           `json:"reason,omitempty"`
	Adjusted     *EffectivePolicy `json:"adjusted,omitempty"`
	CounterOffer *CounterOffer    `json:"counter_offer,omitempty"`
	DecidedAt    time.Time        `json:"decided_at"`
}

// DisclosureResult bundles an accepted negotiation with the redacted view of
// the matching records.
type DisclosureResult struct {
	Negotiation *NegotiationResult `json:"negotiation"`
	Records     []DisclosedRecord  `json:"records"`
}
