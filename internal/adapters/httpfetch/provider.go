// Package httpfetch serves references from a plain HTTP(S) document
// endpoint laid out as baseURL/org/project/path.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"codex/internal/adapters/localfs"
	"codex/internal/domain"
	"codex/internal/ports"
)

// maxAttempts bounds retries on transient responses.
const maxAttempts = 3

// maxBodySize caps a single fetched document.
const maxBodySize = 32 << 20 // 32 MiB

// Provider fetches documents over HTTP.
type Provider struct {
	baseURL  string
	tokenEnv string
	client   *http.Client
}

var _ ports.StorageProvider = (*Provider)(nil)

// Option configures the Provider.
type Option func(*Provider)

// WithClient overrides the HTTP client (tests).
func WithClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithTokenEnv names the environment variable holding a bearer token.
func WithTokenEnv(name string) Option {
	return func(p *Provider) { p.tokenEnv = name }
}

// New creates an HTTP provider for the given base URL.
func New(baseURL string, opts ...Option) *Provider {
	p := &Provider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements ports.StorageProvider.
func (p *Provider) Name() string { return "http" }

// CanHandle accepts any reference when a base URL is configured; the
// endpoint is the catch-all at the bottom of the provider order.
func (p *Provider) CanHandle(ref domain.ResolvedReference) bool {
	return p.baseURL != ""
}

// Fetch GETs baseURL/org/project/path, retrying transient failures.
func (p *Provider) Fetch(ctx context.Context, ref domain.ResolvedReference) (domain.FetchResult, error) {
	var result domain.FetchResult

	attempt := func() error {
		res, err := p.do(ctx, http.MethodGet, ref)
		if err != nil {
			if errors.Is(err, domain.ErrTransient) {
				return err
			}
			return backoff.Permanent(err)
		}
		defer res.Body.Close()

		switch {
		case res.StatusCode == http.StatusOK:
			body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
			if err != nil {
				return backoff.Permanent(fmt.Errorf("failed to read response body: %w", err))
			}
			ct := res.Header.Get("Content-Type")
			if ct == "" {
				ct = localfs.ContentType(ref.Path)
			}
			result = domain.FetchResult{
				Content:     body,
				ContentType: ct,
				Size:        int64(len(body)),
				Source:      p.Name(),
			}
			return nil

		case res.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("%s: %w", ref.URI(), domain.ErrNotFound))

		case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("HTTP %d for %s: %w", res.StatusCode, ref.URI(), domain.ErrUnauthorized))

		case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
			return fmt.Errorf("HTTP %d for %s: %w", res.StatusCode, ref.URI(), domain.ErrTransient)

		default:
			return backoff.Permanent(fmt.Errorf("unexpected HTTP %d for %s", res.StatusCode, ref.URI()))
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxAttempts-1), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return domain.FetchResult{}, err
	}
	return result, nil
}

// Exists issues a HEAD request.
func (p *Provider) Exists(ctx context.Context, ref domain.ResolvedReference) (bool, error) {
	res, err := p.do(ctx, http.MethodHead, ref)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	return res.StatusCode == http.StatusOK, nil
}

func (p *Provider) do(ctx context.Context, method string, ref domain.ResolvedReference) (*http.Response, error) {
	u, err := url.JoinPath(p.baseURL, ref.Org, ref.Project, ref.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	if p.tokenEnv != "" {
		if token := os.Getenv(p.tokenEnv); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return res, nil
}
