package archive

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"codex/internal/domain"
	"codex/internal/ports"
)

// CLITool implements ports.ArchiveTool by shelling out to the
// configured storage-access executable. The handler is independently
// versioned; this adapter only owns the argument contract:
//
//	<handler> read --backend <backend> --bucket <bucket> <remote-path>
type CLITool struct {
	handler string
	bucket  string
}

var _ ports.ArchiveTool = (*CLITool)(nil)

// Option configures the CLITool.
type Option func(*CLITool)

// WithBucket sets the storage bucket passed to the handler.
func WithBucket(bucket string) Option {
	return func(t *CLITool) { t.bucket = bucket }
}

// NewCLITool creates the production archive tool for the named handler
// executable.
func NewCLITool(handler string, opts ...Option) *CLITool {
	t := &CLITool{handler: handler}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ReadRemote invokes the handler and returns its stdout.
func (t *CLITool) ReadRemote(ctx context.Context, remotePath, backend string) ([]byte, error) {
	args := []string{"read", "--backend", backend}
	if t.bucket != "" {
		args = append(args, "--bucket", t.bucket)
	}
	args = append(args, remotePath)

	cmd := exec.CommandContext(ctx, t.handler, args...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			msg := strings.TrimSpace(string(exitErr.Stderr))
			if strings.Contains(strings.ToLower(msg), "not found") ||
				strings.Contains(strings.ToLower(msg), "no such") {
				return nil, fmt.Errorf("%s: %w", remotePath, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("%s error: %s", t.handler, msg)
		}
		return nil, fmt.Errorf("%s error: %w", t.handler, err)
	}
	return output, nil
}

// IsAvailable reports whether the handler executable is on PATH.
func (t *CLITool) IsAvailable() bool {
	_, err := exec.LookPath(t.handler)
	return err == nil
}
