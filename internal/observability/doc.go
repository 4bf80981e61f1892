// Package observability builds the structured zap logger used across the
// negotiation engine. Request IDs are propagated through middleware and
// attached to log entries by the handlers.
package observability
