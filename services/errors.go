package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a domain error
type ErrorType string

const (
	// ErrorTypeDenied marks an expected, recoverable policy denial. It
	// always carries a human-readable reason and is not a fault.
	ErrorTypeDenied ErrorType = "policy_denied"
	// ErrorTypeConfiguration marks invalid wallet or pricing configuration;
	// recoverable by the owner fixing the policy.
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeValidation marks a malformed request, rejected before any
	// policy or ledger state is touched.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeUpstream marks a data-source failure, propagated as a
	// distinguishable failure rather than an empty result.
	ErrorTypeUpstream ErrorType = "upstream"
	ErrorTypeNotFound ErrorType = "not_found"
	ErrorTypeInternal ErrorType = "internal"
)

// DomainError is a structured error with a type and optional detail context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches two domain errors by type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

var (
	// Not found
	ErrPolicyNotFound = NewDomainError(ErrorTypeNotFound, "policy not found", nil)

	// Validation
	ErrInvalidRequest   = NewDomainError(ErrorTypeValidation, "invalid negotiation request", nil)
	ErrUnknownCategory  = NewDomainError(ErrorTypeValidation, "unknown category", nil)
	ErrNegativeAge      = NewDomainError(ErrorTypeValidation, "max age must not be negative", nil)
	ErrNonPositiveCount = NewDomainError(ErrorTypeValidation, "requested record count must be positive", nil)
	ErrInvalidPolicy    = NewDomainError(ErrorTypeValidation, "invalid policy", nil)

	// Configuration
	ErrPricingUnset  = NewDomainError(ErrorTypeConfiguration, "pricing unset for category", nil)
	ErrInvalidWallet = NewDomainError(ErrorTypeConfiguration, "invalid payment configuration", nil)

	// Upstream
	ErrFetchFailed      = NewDomainError(ErrorTypeUpstream, "record fetch failed", nil)
	ErrSettlementFailed = NewDomainError(ErrorTypeUpstream, "settlement call failed", nil)

	// Internal
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal error", nil)
	ErrStorageFailed = NewDomainError(ErrorTypeInternal, "storage operation failed", nil)
)

// IsDeniedError checks if an error is a policy denial
func IsDeniedError(err error) bool {
	return hasType(err, ErrorTypeDenied)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUpstreamError checks if an error is an upstream fetch error
func IsUpstreamError(err error) bool {
	return hasType(err, ErrorTypeUpstream)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapUpstream wraps an error as an upstream failure
func WrapUpstream(message string, err error) error {
	return NewDomainError(ErrorTypeUpstream, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
