package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codex/internal/application"
	"codex/internal/config"
)

const configTemplate = `organization: %s
project: %s

# Local checkout of the shared knowledge repository, used by sync.
# shared_repository: ~/src/codex-shared

providers:
  - type: local
  # - type: git
  #   remote: git@example.com:org/codex-shared.git
  # - type: http
  #   base_url: https://codex.example.com/
  #   token_env: CODEX_TOKEN

# artifact_sources:
#   specs:
#     path: ./specs

sync:
  from_codex:
    include:
      - "docs/**"
      - "specs/**"
  # to_codex:
  #   include:
  #     - "docs/**"
  # conflict_strategy: newest

# archive:
#   enabled: true
#   handler: codex-archive
#   backend: s3

cache:
  # root: ~/.codex/cache
  # memory_budget: 67108864
`

// ConfigInitResult contains the result of writing a starter config
type ConfigInitResult struct {
	Path    string
	Message string
}

// ConfigInitCommand writes a commented starter config file
type ConfigInitCommand struct {
	Dir     string
	Org     string
	Project string

	// Force overwrites an existing config file.
	Force bool
}

// NewConfigInitCommand creates a new ConfigInitCommand
func NewConfigInitCommand(dir, org, project string) *ConfigInitCommand {
	return &ConfigInitCommand{Dir: dir, Org: org, Project: project}
}

// Validate checks the identity fields
func (c *ConfigInitCommand) Validate() error {
	if c.Org == "" {
		return &application.ValidationError{
			Field:   "organization",
			Message: "organization is required",
		}
	}
	if c.Project == "" {
		return &application.ValidationError{
			Field:   "project",
			Message: "project is required",
		}
	}
	return nil
}

// Execute writes the config file
func (c *ConfigInitCommand) Execute(ctx context.Context) (*ConfigInitResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	path := filepath.Join(c.Dir, config.DefaultConfigName)
	if _, err := os.Stat(path); err == nil && !c.Force {
		return nil, fmt.Errorf("%w at %s (use --force to overwrite)", application.ErrConfigExists, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	content := fmt.Sprintf(configTemplate, c.Org, c.Project)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write config: %w", err)
	}

	return &ConfigInitResult{
		Path:    path,
		Message: fmt.Sprintf("Wrote %s", path),
	}, nil
}
