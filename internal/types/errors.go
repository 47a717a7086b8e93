package types

import (
	"errors"
	"fmt"
)

var (
	ErrPlaceNotFound     = errors.New("place not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrProviderTimeout   = errors.New("provider timeout")
	ErrProviderEmpty     = errors.New("provider returned no result")
	ErrAnchorNotRoutable = errors.New("anchor has no coordinates")
)

// ValidationError rejects a malformed request before any tier is consulted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// ProviderError wraps a failed paid-provider call. It is always converted to a miss.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PersistenceError records a failed write-back. It is logged, never returned to callers of Resolve.
type PersistenceError struct {
	Store string
	Key   string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Store, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
