package gotmt

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the addressed translation entry does not exist.
	ErrNotFound = errors.New("gotmt: not found")
	// ErrKeyExists indicates a translation with the same key is already stored.
	ErrKeyExists = errors.New("gotmt: key exists")
	// ErrLanguageExists indicates a language with the same code is already stored.
	ErrLanguageExists = errors.New("gotmt: language exists")
)

// ProviderErrorKind classifies a provider failure.
type ProviderErrorKind string

const (
	// KindUnavailable covers connection refused, DNS failures and timeouts.
	KindUnavailable ProviderErrorKind = "unavailable"
	// KindMalformed covers responses with an unexpected shape.
	KindMalformed ProviderErrorKind = "malformed"
	// KindRejected covers non-2xx responses.
	KindRejected ProviderErrorKind = "rejected"
	// KindUnsupported covers target languages the provider cannot handle.
	KindUnsupported ProviderErrorKind = "unsupported"
)

// ProviderError indicates a translation provider failure (API error, timeout, etc.).
type ProviderError struct {
	Kind       ProviderErrorKind
	Message    string
	Cause      error
	StatusCode int  // HTTP status for KindRejected, zero otherwise
	Retryable  bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// StoreError indicates a persistence failure.
type StoreError struct {
	Op        string
	Cause     error
	Retryable bool
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates rejected input at the service boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a validation or duplicate failure.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr) || errors.Is(err, ErrKeyExists) || errors.Is(err, ErrLanguageExists)
}
