// Package redact produces the minimal policy-compliant view of classified
// records. Redaction is field-level and independent per field; a record can
// have a visible subject with a redacted body. Inputs are never mutated.
package redact

import (
	"regexp"
	"time"

	"github.com/inboxmarket/datagate/internal/classify"
	"github.com/inboxmarket/datagate/models"
)

// Marker is the fixed replacement for redacted field content
const Marker = "[REDACTED]"

// Effective is the disclosure policy actually applied to a filter pass:
// either derived straight from a Policy or from the adjusted policy subset
// of an accepted negotiation.
type Effective struct {
	MaxAgeDays         int
	MaxCount           int
	ShowSubject        bool
	ShowSender         bool
	ShowBodies         bool
	RedactPersonalInfo bool
}

// FromPolicy derives the effective disclosure rules from a base policy
func FromPolicy(p *models.Policy) Effective {
	return Effective{
		MaxAgeDays:         p.MaxEmailAgeDays,
		MaxCount:           p.MaxEmailsPerRequest,
		ShowSubject:        p.ShowSubjectInfo,
		ShowSender:         p.ShowSenderInfo,
		ShowBodies:         !p.RedactEmailBodies,
		RedactPersonalInfo: p.RedactPersonalInfo,
	}
}

// FromAdjusted derives the effective rules from an accepted negotiation's
// adjusted policy subset.
func FromAdjusted(adj *models.EffectivePolicy) Effective {
	return Effective{
		MaxAgeDays:         adj.MaxAgeDays,
		MaxCount:           adj.MaxEmails,
		ShowSubject:        adj.ShowSubject,
		ShowSender:         adj.ShowSender,
		ShowBodies:         !adj.RedactBodies,
		RedactPersonalInfo: adj.RedactPersonalInfo,
	}
}

// Patterns for personal info scrubbing inside fields that remain visible
var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b(\+?1[\s\-.]?)?(\(?[0-9]{3}\)?[\s\-.]?)[0-9]{3}[\s\-.]?[0-9]{4}\b`)
)

// Filter selects the records matching the predicate, truncates to the
// effective max count preserving the input's relative order, and redacts
// subject, sender, and body independently per the effective rules. Returns
// new value objects; calling it twice with identical inputs yields identical
// output.
func Filter(records []models.Record, pred models.Predicate, eff Effective, now time.Time) []models.DisclosedRecord {
	// The effective age ceiling binds even when the predicate carries a
	// looser one or none at all.
	if eff.MaxAgeDays > 0 && (pred.MaxAgeDays <= 0 || eff.MaxAgeDays < pred.MaxAgeDays) {
		pred.MaxAgeDays = eff.MaxAgeDays
	}
	matched := classify.MatchAll(records, pred, now)

	if eff.MaxCount > 0 && len(matched) > eff.MaxCount {
		matched = matched[:eff.MaxCount]
	}

	disclosed := make([]models.DisclosedRecord, 0, len(matched))
	for _, r := range matched {
		disclosed = append(disclosed, Apply(r, pred.Category, eff))
	}
	return disclosed
}

// Apply redacts a single record into its disclosed view
func Apply(r models.Record, category models.Category, eff Effective) models.DisclosedRecord {
	out := models.DisclosedRecord{
		ID:        r.ID,
		Subject:   Marker,
		Sender:    Marker,
		Body:      Marker,
		Timestamp: r.Timestamp,
		Category:  category,
	}

	if eff.ShowSubject {
		out.Subject = scrub(r.Subject, eff.RedactPersonalInfo)
	}
	if eff.ShowSender {
		out.Sender = scrub(r.Sender, eff.RedactPersonalInfo)
	}
	if eff.ShowBodies {
		out.Body = scrub(r.Body, eff.RedactPersonalInfo)
	}
	return out
}

// scrub replaces embedded personal info (email addresses, phone numbers)
// with the marker when personal-info redaction is in effect.
func scrub(s string, redactPersonal bool) string {
	if !redactPersonal {
		return s
	}
	s = emailPattern.ReplaceAllString(s, Marker)
	s = phonePattern.ReplaceAllString(s, Marker)
	return s
}
