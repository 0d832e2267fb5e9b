package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"codex/internal/domain"
)

// DefaultConfigName is the config file looked up in the working
// directory's .codex folder.
const DefaultConfigName = ".codex/config.yaml"

// DefaultMemoryBudget bounds the in-memory cache tier.
const DefaultMemoryBudget int64 = 64 << 20 // 64 MiB

// ProviderConfig configures one storage provider. Type discriminates
// which fields apply.
type ProviderConfig struct {
	Type string `yaml:"type"` // local | archive | git | http

	// Root is the directory served by the local provider.
	Root string `yaml:"root,omitempty"`

	// Remote is the VCS remote URL for the git provider.
	Remote string `yaml:"remote,omitempty"`

	// BaseURL is the endpoint prefix for the http provider.
	BaseURL string `yaml:"base_url,omitempty"`

	// TokenEnv names an environment variable holding credentials for
	// the http provider. The value itself never lives in the config file.
	TokenEnv string `yaml:"token_env,omitempty"`
}

// Duration wraps time.Duration so TTLs read naturally in YAML ("24h",
// "7d" is not supported by Go's parser, use "168h").
type Duration time.Duration

// UnmarshalYAML accepts either a Go duration string or a plain number
// of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration: %s", value.Value)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// TypeConfig declares a custom artifact type.
type TypeConfig struct {
	Name             string   `yaml:"name"`
	Patterns         []string `yaml:"patterns"`
	TTL              Duration `yaml:"ttl"`
	ArchiveAfterDays int      `yaml:"archive_after_days,omitempty"`
	Priority         int      `yaml:"priority"`
}

// ArtifactSourceConfig declares a named local directory tree whose
// files are served directly, bypassing the cache.
type ArtifactSourceConfig struct {
	Path     string   `yaml:"path"`
	Patterns []string `yaml:"patterns,omitempty"`
	Remote   string   `yaml:"remote,omitempty"`
}

// SyncConfig holds the directional routing rules plus the org-level
// defaults consulted only when the project declares no rules of its own.
type SyncConfig struct {
	ToCodex   domain.DirectionRules `yaml:"to_codex"`
	FromCodex domain.DirectionRules `yaml:"from_codex"`

	Defaults struct {
		ToCodex   domain.DirectionRules `yaml:"to_codex"`
		FromCodex domain.DirectionRules `yaml:"from_codex"`
	} `yaml:"defaults"`

	// UseFileMetadata enables the legacy per-file sync_include /
	// sync_exclude header patterns. Off by default: reading metadata
	// from every file is costly at repository scale.
	UseFileMetadata bool `yaml:"use_file_metadata"`

	ConflictStrategy domain.ConflictStrategy `yaml:"conflict_strategy,omitempty"`
}

// ArchiveConfig configures the cold-archive provider.
type ArchiveConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Handler  string   `yaml:"handler"` // external storage-access executable
	Backend  string   `yaml:"backend"` // backend discriminator passed to the handler
	Bucket   string   `yaml:"bucket"`
	Prefix   string   `yaml:"prefix"`
	Patterns []string `yaml:"patterns"` // empty = all paths eligible
}

// CacheConfig configures the cache tiers.
type CacheConfig struct {
	Root         string `yaml:"root"`
	MemoryBudget int64  `yaml:"memory_budget,omitempty"`
}

// Config is the on-disk configuration schema.
type Config struct {
	Organization     string `yaml:"organization"`
	Project          string `yaml:"project"`
	SharedRepository string `yaml:"shared_repository"`

	Providers       []ProviderConfig                `yaml:"providers"`
	Types           []TypeConfig                    `yaml:"types,omitempty"`
	ArtifactSources map[string]ArtifactSourceConfig `yaml:"artifact_sources,omitempty"`
	Sync            SyncConfig                      `yaml:"sync"`
	Archive         ArchiveConfig                   `yaml:"archive"`
	Cache           CacheConfig                     `yaml:"cache"`
}

// Path returns the config file path: the CODEX_CONFIG env var when set,
// otherwise DefaultConfigName under dir.
func Path(dir string) string {
	if env := os.Getenv("CODEX_CONFIG"); env != "" {
		return env
	}
	return filepath.Join(dir, DefaultConfigName)
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &domain.ConfigurationError{Field: "file", Message: fmt.Sprintf("%s not found (run `codex-cli config init`)", path)}
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &domain.ConfigurationError{Field: "file", Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the schema invariants.
func (c *Config) Validate() error {
	if c.Organization == "" {
		return &domain.ConfigurationError{Field: "organization", Message: "required"}
	}
	if c.Project == "" {
		return &domain.ConfigurationError{Field: "project", Message: "required"}
	}
	for i, p := range c.Providers {
		switch p.Type {
		case "local", "archive", "git", "http":
		default:
			return &domain.ConfigurationError{
				Field:   fmt.Sprintf("providers[%d].type", i),
				Message: fmt.Sprintf("unknown provider type %q", p.Type),
			}
		}
	}
	for name, src := range c.ArtifactSources {
		if src.Path == "" {
			return &domain.ConfigurationError{
				Field:   "artifact_sources." + name + ".path",
				Message: "required",
			}
		}
	}
	return nil
}

// RuleSet returns the project's own rule set when it declares one, else
// the organization default. Replacement happens per direction, never a
// merge of the two.
func (c *Config) RuleSet() domain.SyncRuleSet {
	rs := domain.SyncRuleSet{
		ToCodex:   c.Sync.ToCodex,
		FromCodex: c.Sync.FromCodex,
	}
	if rs.ToCodex.Empty() {
		rs.ToCodex = c.Sync.Defaults.ToCodex
	}
	if rs.FromCodex.Empty() {
		rs.FromCodex = c.Sync.Defaults.FromCodex
	}
	return rs
}
