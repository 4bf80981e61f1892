package middleware

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"

	// OwnerIDKey is the context key for the data owner ID
	OwnerIDKey contextKey = "owner_id"

	// RequesterClassKey is the context key for the requester class
	RequesterClassKey contextKey = "requester_class"
)

// Claims carries the requester identity extracted from the token: which
// owner's mailbox the token grants access to and what kind of party holds it.
type Claims struct {
	OwnerID        string `json:"owner_id"`
	RequesterClass string `json:"requester_class"`
	jwt.RegisteredClaims
}

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves JWT claims from context
func GetClaimsFromContext(ctx context.Context) *Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds JWT claims to the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetOwnerIDFromContext retrieves the data owner ID from context
func GetOwnerIDFromContext(ctx context.Context) uuid.UUID {
	if val := ctx.Value(OwnerIDKey); val != nil {
		if ownerID, ok := val.(uuid.UUID); ok {
			return ownerID
		}
	}
	return uuid.Nil
}

// WithOwnerID adds a data owner ID to the context
func WithOwnerID(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}

// GetRequesterClassFromContext retrieves the requester class from context
func GetRequesterClassFromContext(ctx context.Context) models.RequesterClass {
	if val := ctx.Value(RequesterClassKey); val != nil {
		if class, ok := val.(models.RequesterClass); ok {
			return class
		}
	}
	return ""
}

// WithRequesterClass adds a requester class to the context
func WithRequesterClass(ctx context.Context, class models.RequesterClass) context.Context {
	return context.WithValue(ctx, RequesterClassKey, class)
}
