// Package storage coordinates the ordered list of providers that can
// serve document content.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"codex/internal/domain"
	"codex/internal/ports"
)

// remediator is implemented by providers that can suggest a recovery
// command for a miss (the archive provider).
type remediator interface {
	Remediation(ref domain.ResolvedReference) string
}

// Manager tries providers in priority order until one can handle and
// successfully serve a reference.
type Manager struct {
	providers []ports.StorageProvider
	logger    *log.Logger
}

// New creates a Manager over the given providers, tried in order.
// If logger is nil, a default logger writing to stderr is used.
func New(providers []ports.StorageProvider, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[storage] ", log.LstdFlags)
	}
	return &Manager{providers: providers, logger: logger}
}

// Providers returns the configured provider order.
func (m *Manager) Providers() []ports.StorageProvider {
	return m.providers
}

// Fetch iterates providers in order. A provider that cannot handle the
// reference is skipped; a not-found failure falls through to the next
// provider; authentication and transient failures surface immediately
// rather than being silently swallowed by fallback. When every provider
// declines or misses, the returned StorageError carries the full
// attempt trace.
func (m *Manager) Fetch(ctx context.Context, ref domain.ResolvedReference) (domain.FetchResult, error) {
	var attempts []domain.ProviderAttempt

	for _, p := range m.providers {
		if !p.CanHandle(ref) {
			attempts = append(attempts, domain.ProviderAttempt{Provider: p.Name(), Skipped: true})
			continue
		}

		result, err := p.Fetch(ctx, ref)
		if err == nil {
			return result, nil
		}

		attempts = append(attempts, domain.ProviderAttempt{Provider: p.Name(), Err: err})

		if errors.Is(err, domain.ErrNotFound) {
			m.logger.Printf("%s: %s not found, trying next provider", p.Name(), ref.URI())
			continue
		}
		// Auth and transient failures (the latter already retried
		// inside the provider) stop the fallback chain.
		return domain.FetchResult{}, err
	}

	return domain.FetchResult{}, m.storageError(ref, attempts)
}

// Exists reports whether any provider that can handle the reference
// has the content.
func (m *Manager) Exists(ctx context.Context, ref domain.ResolvedReference) (bool, error) {
	for _, p := range m.providers {
		if !p.CanHandle(ref) {
			continue
		}
		ok, err := p.Exists(ctx, ref)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Write persists content through the first writable provider that can
// handle the reference.
func (m *Manager) Write(ctx context.Context, ref domain.ResolvedReference, content []byte) error {
	for _, p := range m.providers {
		w, ok := p.(ports.Writer)
		if !ok || !p.CanHandle(ref) {
			continue
		}
		return w.Write(ctx, ref, content)
	}
	return fmt.Errorf("no writable provider for %s", ref.URI())
}

func (m *Manager) storageError(ref domain.ResolvedReference, attempts []domain.ProviderAttempt) error {
	serr := &domain.StorageError{Ref: ref.Reference, Attempts: attempts}

	if ref.Source == domain.SourceArtifact {
		serr.Remediation = fmt.Sprintf(
			"file missing from artifact source %q; restore it under the source directory or re-run `codex-cli sync`",
			ref.ArtifactSource)
		return serr
	}
	for i, a := range attempts {
		if a.Provider != "archive" || a.Err == nil || !errors.Is(a.Err, domain.ErrNotFound) {
			continue
		}
		if r, ok := m.providers[i].(remediator); ok {
			serr.Remediation = r.Remediation(ref)
		}
	}
	return serr
}
