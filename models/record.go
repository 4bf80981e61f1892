package models

import "time"

// Record is a raw data item supplied by the mail source. Records are
// immutable once fetched; the engine only reads them.
type Record struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category,omitempty"` // Optional pre-tagged category
}

// DisclosedRecord is the policy-compliant view of a Record after the
// redaction filter has been applied. Fields are redacted independently.
type DisclosedRecord struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
}

// Predicate describes a request for records satisfying a category within
// recency and volume constraints. Short-lived; created per incoming request.
type Predicate struct {
	Category   Category `json:"category"`
	MaxAgeDays int      `json:"max_age_days"`
	MinMatches int      `json:"min_matches,omitempty"`
	Keywords   []string `json:"keywords,omitempty"` // Overrides the built-in keyword list when set
}
