// Package gitremote serves references from the shared knowledge
// repository by keeping a bare mirror fresh and reading blobs out of it
// with git plumbing commands.
package gitremote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"codex/internal/adapters/localfs"
	"codex/internal/domain"
	"codex/internal/ports"
)

// maxFetchAttempts bounds the retry loop on transient fetch failures.
const maxFetchAttempts = 3

// refreshInterval is how long a mirror fetch is considered fresh; a
// second fetch inside the window is skipped.
const refreshInterval = time.Minute

// Provider fetches shared-repository content via git. It is safe for
// concurrent use; mirror refresh is serialized, reads are not.
type Provider struct {
	remote    string // remote URL of the shared repository
	mirrorDir string // bare mirror location under the cache root
	branch    string
	logger    *log.Logger

	mu        sync.Mutex // guards lastFetch and mirror clone/fetch
	lastFetch time.Time
}

var _ ports.StorageProvider = (*Provider)(nil)

// Option configures the Provider.
type Option func(*Provider)

// WithBranch reads from the named branch instead of the remote HEAD.
func WithBranch(branch string) Option {
	return func(p *Provider) { p.branch = branch }
}

// WithLogger sets the logger. Nil means stderr with a [gitremote] prefix.
func WithLogger(logger *log.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// New creates a git remote provider. The mirror lives under
// cacheRoot/.mirrors, keyed by the remote's directory-safe name.
func New(remote, cacheRoot string, opts ...Option) *Provider {
	p := &Provider{
		remote:    remote,
		mirrorDir: filepath.Join(cacheRoot, ".mirrors", mirrorName(remote)),
		branch:    "HEAD",
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(os.Stderr, "[gitremote] ", log.LstdFlags)
	}
	return p
}

// Name implements ports.StorageProvider.
func (p *Provider) Name() string { return "git-remote" }

// CanHandle accepts remote references when a remote is configured.
func (p *Provider) CanHandle(ref domain.ResolvedReference) bool {
	return p.remote != "" && !ref.IsCurrentProject
}

// Fetch refreshes the mirror if stale and reads the blob at
// project/path from the shared repository tree.
func (p *Provider) Fetch(ctx context.Context, ref domain.ResolvedReference) (domain.FetchResult, error) {
	if err := p.ensureMirror(ctx); err != nil {
		return domain.FetchResult{}, err
	}

	treePath := ref.Project + "/" + ref.Path
	content, err := p.show(ctx, treePath)
	if err != nil {
		return domain.FetchResult{}, err
	}

	return domain.FetchResult{
		Content:     content,
		ContentType: localfs.ContentType(ref.Path),
		Size:        int64(len(content)),
		Source:      p.Name(),
	}, nil
}

// Exists implements ports.StorageProvider.
func (p *Provider) Exists(ctx context.Context, ref domain.ResolvedReference) (bool, error) {
	if err := p.ensureMirror(ctx); err != nil {
		return false, err
	}
	cmd := exec.CommandContext(ctx, "git", "-C", p.mirrorDir, "cat-file", "-e",
		p.branch+":"+ref.Project+"/"+ref.Path)
	if err := cmd.Run(); err != nil {
		return false, nil
	}
	return true, nil
}

// ensureMirror clones the bare mirror on first use and fetches it when
// stale. Fetch failures are classified and transient ones retried with
// exponential backoff. Only one caller refreshes the mirror at a time;
// the rest see its result as a fresh lastFetch and return immediately.
func (p *Provider) ensureMirror(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := os.Stat(p.mirrorDir); os.IsNotExist(err) {
		p.logger.Printf("cloning mirror of %s", p.remote)
		if err := os.MkdirAll(filepath.Dir(p.mirrorDir), 0755); err != nil {
			return fmt.Errorf("failed to create mirror directory: %w", err)
		}
		if err := p.git(ctx, "", "clone", "--mirror", p.remote, p.mirrorDir); err != nil {
			return err
		}
		p.lastFetch = time.Now()
		return nil
	}

	if time.Since(p.lastFetch) < refreshInterval {
		return nil
	}

	fetch := func() error {
		err := p.git(ctx, p.mirrorDir, "fetch", "--prune", "origin")
		if err == nil {
			return nil
		}
		// Only transient failures are worth retrying; everything else
		// stops the backoff loop.
		if isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxFetchAttempts-1), ctx)
	if err := backoff.Retry(fetch, policy); err != nil {
		return err
	}
	p.lastFetch = time.Now()
	return nil
}

// show reads a blob from the mirror.
func (p *Provider) show(ctx context.Context, treePath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", p.mirrorDir, "show", p.branch+":"+treePath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if strings.Contains(msg, "does not exist") || strings.Contains(msg, "exists on disk, but not in") {
			return nil, fmt.Errorf("%s: %w", treePath, domain.ErrNotFound)
		}
		return nil, classify(fmt.Errorf("git show %s: %s", treePath, strings.TrimSpace(msg)))
	}
	return stdout.Bytes(), nil
}

// git runs a git command, classifying the failure.
func (p *Provider) git(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return classify(fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String())))
	}
	return nil
}

// classify maps git stderr text onto the domain error classes.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "authentication failed"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "access denied"),
		strings.Contains(msg, "could not read username"):
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	case strings.Contains(msg, "could not resolve host"),
		strings.Contains(msg, "connection timed out"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "early eof"),
		strings.Contains(msg, "rate limit"):
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "does not exist"):
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	default:
		return err
	}
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrTransient)
}

// mirrorName turns a remote URL into a directory-safe name.
func mirrorName(remote string) string {
	r := strings.NewReplacer("://", "_", "/", "_", ":", "_", "@", "_")
	return r.Replace(remote)
}
