// Package classify maps raw records to the predicate categories they
// satisfy, using keyword and sender heuristics plus age filtering. All
// functions are pure and deterministic given identical inputs and "now".
package classify

import (
	"strings"
	"time"

	"github.com/inboxmarket/datagate/models"
)

// categoryKeywords holds subject keywords per category. The financial
// category deliberately has no built-in list: it matches only via a record's
// pre-tagged category or an explicit keyword override on the predicate.
var categoryKeywords = map[models.Category][]string{
	models.CategorySubscription: {
		"subscription", "newsletter", "subscribe", "unsubscribe",
		"weekly digest", "your plan", "membership",
	},
	models.CategoryDelivery: {
		"delivery", "shipped", "shipping", "tracking", "package",
		"out for delivery", "arriving", "dispatched",
	},
	models.CategoryPurchase: {
		"receipt", "order confirmation", "invoice", "purchase",
		"payment received", "your order", "thank you for your order",
	},
}

// categorySenders holds sender substrings per category
var categorySenders = map[models.Category][]string{
	models.CategorySubscription: {
		"newsletter@", "news@", "digest@", "no-reply@", "noreply@",
	},
	models.CategoryDelivery: {
		"amazon", "ups.com", "fedex", "dhl", "usps", "shipping@",
	},
	models.CategoryPurchase: {
		"paypal", "stripe", "billing@", "receipts@", "orders@",
	},
}

// Classify reports whether a record satisfies the predicate. The age filter
// dominates: a record older than the predicate's max age never matches,
// regardless of category. Matching precedence after that: pre-tagged
// category equality, then keyword override, then built-in subject/sender
// heuristics.
func Classify(record models.Record, pred models.Predicate, now time.Time) bool {
	if !withinAge(record.Timestamp, pred.MaxAgeDays, now) {
		return false
	}

	if record.Category != "" && record.Category == pred.Category {
		return true
	}

	subject := strings.ToLower(record.Subject)
	if len(pred.Keywords) > 0 {
		return containsAny(subject, lowered(pred.Keywords))
	}

	if containsAny(subject, categoryKeywords[pred.Category]) {
		return true
	}

	sender := strings.ToLower(record.Sender)
	return containsAny(sender, categorySenders[pred.Category])
}

// MatchAll returns the records satisfying the predicate, preserving the
// input's relative order. Inputs are never mutated.
func MatchAll(records []models.Record, pred models.Predicate, now time.Time) []models.Record {
	matched := make([]models.Record, 0, len(records))
	for _, r := range records {
		if Classify(r, pred, now) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Satisfies reports whether the record set meets the predicate's minimum
// match count. A predicate without MinMatches is satisfied by any match.
func Satisfies(records []models.Record, pred models.Predicate, now time.Time) bool {
	min := pred.MinMatches
	if min <= 0 {
		min = 1
	}
	count := 0
	for _, r := range records {
		if Classify(r, pred, now) {
			count++
			if count >= min {
				return true
			}
		}
	}
	return false
}

// withinAge reports whether ts falls inside the trailing maxAgeDays window
// from now. maxAgeDays <= 0 means no age restriction.
func withinAge(ts time.Time, maxAgeDays int, now time.Time) bool {
	if maxAgeDays <= 0 {
		return true
	}
	cutoff := now.AddDate(0, 0, -maxAgeDays)
	return !ts.Before(cutoff)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowered(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}
