package gitremote

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"codex/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want error
	}{
		{"auth failure", "git fetch: Authentication failed for repo", domain.ErrUnauthorized},
		{"permission denied", "git clone: Permission denied (publickey)", domain.ErrUnauthorized},
		{"dns failure", "git fetch: Could not resolve host: example.com", domain.ErrTransient},
		{"timeout", "git fetch: Connection timed out", domain.ErrTransient},
		{"rate limit", "git fetch: rate limit exceeded", domain.ErrTransient},
		{"missing repo", "git clone: repository not found", domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(errors.New(tt.msg))
			if !errors.Is(got, tt.want) {
				t.Errorf("classify(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestClassifyUnknownPassesThrough(t *testing.T) {
	in := errors.New("git fetch: object corrupt")
	got := classify(in)
	if got != in {
		t.Errorf("classify() = %v, want the original error", got)
	}
	if errors.Is(got, domain.ErrTransient) || errors.Is(got, domain.ErrNotFound) {
		t.Error("unknown failure must not gain a sentinel class")
	}
}

func TestMirrorName(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"https://github.com/acme/codex.git", "https_github.com_acme_codex.git"},
		{"git@github.com:acme/codex.git", "git_github.com_acme_codex.git"},
		{"/srv/git/codex", "_srv_git_codex"},
	}
	for _, tt := range tests {
		if got := mirrorName(tt.remote); got != tt.want {
			t.Errorf("mirrorName(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestCanHandle(t *testing.T) {
	p := New("https://github.com/acme/codex.git", t.TempDir())

	if p.CanHandle(domain.ResolvedReference{IsCurrentProject: true}) {
		t.Error("current-project references belong to the local provider")
	}
	remote := domain.ResolvedReference{Reference: domain.Reference{Project: "web"}}
	if !p.CanHandle(remote) {
		t.Error("remote reference should be handled")
	}

	unconfigured := New("", t.TempDir())
	if unconfigured.CanHandle(remote) {
		t.Error("provider without a remote must decline")
	}
}

// runGit runs git in dir, failing the test on any error.
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, stderr.String())
	}
}

// setupUpstream creates a shared-repository checkout with one commit.
func setupUpstream(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init")

	docs := filepath.Join(dir, "web", "docs")
	if err := os.MkdirAll(docs, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "a.md"), []byte("# shared doc"), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "-c", "user.name=test", "-c", "user.email=test@example.com",
		"commit", "-m", "add doc")
	return dir
}

func TestConcurrentFetchSharesOneMirror(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	upstream := setupUpstream(t)
	p := New(upstream, t.TempDir())
	ref := domain.ResolvedReference{Reference: domain.Reference{
		Org: "acme", Project: "web", Path: "docs/a.md",
	}}

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	contents := make([][]byte, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := p.Fetch(context.Background(), ref)
			errs[i] = err
			contents[i] = result.Content
		}()
	}
	wg.Wait()

	for i := range workers {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if string(contents[i]) != "# shared doc" {
			t.Errorf("worker %d content = %q", i, contents[i])
		}
	}
}

func TestNewMirrorLocation(t *testing.T) {
	root := t.TempDir()
	p := New("https://github.com/acme/codex.git", root)

	want := filepath.Join(root, ".mirrors", "https_github.com_acme_codex.git")
	if p.mirrorDir != want {
		t.Errorf("mirrorDir = %q, want %q", p.mirrorDir, want)
	}
	if p.branch != "HEAD" {
		t.Errorf("default branch = %q, want HEAD", p.branch)
	}

	b := New("r", root, WithBranch("main"))
	if b.branch != "main" {
		t.Errorf("WithBranch: branch = %q, want main", b.branch)
	}
}
