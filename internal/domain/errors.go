package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by storage and cache operations.
//
// Providers classify their failures with these sentinels so that the
// storage manager can decide whether to fall through to the next
// provider or surface immediately:
//
//	if errors.Is(err, domain.ErrNotFound) {
//	    // try the next provider
//	}
var (
	// ErrNotFound is returned when a provider can handle a reference
	// but the content does not exist there.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned on authentication or authorization
	// failures. It is never swallowed by provider fallback.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransient marks rate-limit or temporary network failures that
	// are safe to retry with backoff.
	ErrTransient = errors.New("transient failure")
)

// InvalidReferenceError indicates a malformed reference URI or an
// unsafe path component.
type InvalidReferenceError struct {
	URI    string
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid reference %q: %s", e.URI, e.Reason)
}

// ProviderAttempt records one provider's outcome during a storage fetch.
type ProviderAttempt struct {
	Provider string
	Skipped  bool // CanHandle returned false
	Err      error
}

func (a ProviderAttempt) String() string {
	if a.Skipped {
		return a.Provider + ": cannot handle"
	}
	if a.Err != nil {
		return a.Provider + ": " + a.Err.Error()
	}
	return a.Provider + ": ok"
}

// StorageError indicates that no provider could serve a reference. It
// carries the full attempt trace so the failure is actionable.
type StorageError struct {
	Ref      Reference
	Attempts []ProviderAttempt

	// Remediation suggests a command the user can run to make the
	// content available (set for archive misses).
	Remediation string
}

func (e *StorageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no provider could serve %s", e.Ref.URI())
	for _, a := range e.Attempts {
		b.WriteString("\n  ")
		b.WriteString(a.String())
	}
	if e.Remediation != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Remediation)
	}
	return b.String()
}

func (e *StorageError) Is(target error) bool {
	// A storage error where every attempt declined or missed is itself
	// a not-found condition for callers.
	if target != ErrNotFound {
		return false
	}
	for _, a := range e.Attempts {
		if a.Err != nil && !errors.Is(a.Err, ErrNotFound) {
			return false
		}
	}
	return true
}

// CacheError indicates disk I/O failure or corruption on the cache tier.
type CacheError struct {
	Key string
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// ConfigurationError indicates missing or invalid configuration.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

// RoutingError indicates an unparsable or ambiguous rule-set pattern.
type RoutingError struct {
	Pattern string
	Err     error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing pattern %q: %v", e.Pattern, e.Err)
}

func (e *RoutingError) Unwrap() error { return e.Err }
