package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrorCategory defines the normalized failure taxonomy for registry calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the registry took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the registry returned invalid/malformed data
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorRegistryOutage indicates the registry is unavailable
	ErrorRegistryOutage ErrorCategory = "registry_outage"

	// ErrorContractMismatch indicates the registry API changed shape
	ErrorContractMismatch ErrorCategory = "contract_mismatch"

	// ErrorNotFound indicates the requested record doesn't exist
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// AdapterError wraps registry failures with normalized categorization.
type AdapterError struct {
	Category   ErrorCategory
	AdapterID  string
	Message    string
	Underlying error
	Retryable  bool
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("adapter %s [%s]: %s: %v", e.AdapterID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("adapter %s [%s]: %s", e.AdapterID, e.Category, e.Message)
}

// Unwrap supports error unwrapping.
func (e *AdapterError) Unwrap() error {
	return e.Underlying
}

// NewAdapterError creates a new normalized adapter error.
func NewAdapterError(category ErrorCategory, adapterID, message string, underlying error) *AdapterError {
	retryable := category == ErrorTimeout ||
		category == ErrorRegistryOutage ||
		category == ErrorRateLimited

	return &AdapterError{
		Category:   category,
		AdapterID:  adapterID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ErrorInternal
}

// IsDegradable reports whether a failure is an expected upstream condition
// that an adapter absorbs into a null/empty result with a warning log.
// Only genuinely unexpected conditions (bad credentials, contract drift,
// programming errors) propagate to the orchestrator's error map.
func IsDegradable(err error) bool {
	switch GetCategory(err) {
	case ErrorTimeout, ErrorRegistryOutage, ErrorRateLimited, ErrorBadData, ErrorNotFound:
		return true
	default:
		return false
	}
}

// Degrade absorbs expected upstream failures at the adapter boundary.
// Degradable errors are logged at warn level and swallowed so the caller
// can return a null/empty result; anything else comes back unchanged.
func Degrade(ctx context.Context, logger *slog.Logger, op string, err error) error {
	if err == nil || !IsDegradable(err) {
		return err
	}
	if logger != nil {
		logger.WarnContext(ctx, "registry call degraded",
			"op", op,
			"category", string(GetCategory(err)),
			"error", err)
	}
	return nil
}

// Sentinel errors for common cases
var (
	ErrAdapterNotFound      = errors.New("adapter not found")
	ErrNoAdaptersApplicable = errors.New("no adapters applicable for this company")
)
