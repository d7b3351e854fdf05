// Package apperrors defines the error kinds the engine surfaces to callers.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the sentinel for lookups that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable is the sentinel for entity store failures
	// (timeout, connection loss). The engine performs no retries; callers
	// own retry/backoff policy.
	ErrStoreUnavailable = errors.New("entity store unavailable")
	// ErrTenantRequired is returned when a query reaches the engine without
	// a tenant id. The tenant filter is mandatory, never optional.
	ErrTenantRequired = errors.New("tenant id is required")
	// ErrCrossTenant is returned when an edge would span two tenants.
	ErrCrossTenant = errors.New("relationship endpoints belong to different tenants")
	// ErrInvalidInput is the sentinel for ingestion payloads that fail
	// validation (missing fields, unknown entity or relationship types).
	ErrInvalidInput = errors.New("invalid input")
)

// EntityNotFoundError is the terminal result of an incident analysis whose
// starting entity could not be resolved. It echoes the requested identifier
// and tenant for diagnostics and unwraps to ErrNotFound.
type EntityNotFoundError struct {
	ExternalID string
	TenantID   string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity %q not found for tenant %q", e.ExternalID, e.TenantID)
}

func (e *EntityNotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps an underlying store failure with the operation that hit
// it. The original cause is preserved and the error unwraps to
// ErrStoreUnavailable so callers can branch on the kind.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error { return ErrStoreUnavailable }

// NewStoreError wraps err as a StoreError for the given operation.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Cause: err}
}
