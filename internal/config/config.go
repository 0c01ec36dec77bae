package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file `es init` writes at the Git root.
const DefaultFileName = "es.yml"

// projectNameRe enforces DNS-label-safe project names: they become part of
// container names and Redis key prefixes.
var projectNameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// repoSlugRe matches an owner/repo GitHub slug.
var repoSlugRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Config represents the top-level es.yml configuration
type Config struct {
	Version string        `yaml:"version"`
	Project string        `yaml:"project"`
	GitHub  *GitHubConfig `yaml:"github,omitempty"`
	Sync    *SyncConfig   `yaml:"sync,omitempty"`
	Store   *StoreConfig  `yaml:"store,omitempty"`
	Locks   *LockConfig   `yaml:"locks,omitempty"`
}

// GitHubConfig links the project to a GitHub repository
type GitHubConfig struct {
	// Repo is the owner/repo slug. Empty means "infer from the origin
	// remote at sync time".
	Repo string `yaml:"repo,omitempty"`
	// Labels are attached to every issue the sync engine creates on GitHub.
	Labels []string `yaml:"labels,omitempty"`
}

// SyncConfig controls the reconciliation engine
type SyncConfig struct {
	// Conflicts picks a default side for title/body conflicts:
	// "ask" (default), "ours", or "theirs".
	Conflicts string `yaml:"conflicts,omitempty"`
	// CloseComment is posted when sync closes a GitHub issue.
	CloseComment string `yaml:"close_comment,omitempty"`
}

// StoreConfig allows overriding the Redis store container
type StoreConfig struct {
	Image string `yaml:"image,omitempty"` // Default: redis:7-alpine
}

// LockConfig controls work-claim leases
type LockConfig struct {
	// TTL is the lease duration, Go duration syntax. Default: 30m.
	TTL string `yaml:"ttl,omitempty"`
}

// Validate performs strict validation on the configuration and applies
// defaults for omitted sections.
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: project
	if c.Project == "" {
		return fmt.Errorf("project name is required")
	}
	if !projectNameRe.MatchString(c.Project) {
		return fmt.Errorf("invalid project name '%s': must be lowercase alphanumeric with hyphens (DNS label)", c.Project)
	}

	if c.GitHub != nil && c.GitHub.Repo != "" {
		if !repoSlugRe.MatchString(c.GitHub.Repo) {
			return fmt.Errorf("invalid github.repo '%s': expected owner/repo", c.GitHub.Repo)
		}
	}

	if c.Sync == nil {
		c.Sync = &SyncConfig{}
	}
	if c.Sync.Conflicts == "" {
		c.Sync.Conflicts = "ask"
	}
	switch c.Sync.Conflicts {
	case "ask", "ours", "theirs":
	default:
		return fmt.Errorf("invalid sync.conflicts: %s (must be 'ask', 'ours', or 'theirs')", c.Sync.Conflicts)
	}

	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if c.Store.Image == "" {
		c.Store.Image = "redis:7-alpine"
	}

	if c.Locks == nil {
		c.Locks = &LockConfig{}
	}
	if c.Locks.TTL == "" {
		c.Locks.TTL = "30m"
	}
	if _, err := time.ParseDuration(c.Locks.TTL); err != nil {
		return fmt.Errorf("invalid locks.ttl: %s (use Go duration syntax like '30m')", c.Locks.TTL)
	}

	return nil
}

// LockTTL returns the configured lease duration. Only valid after Validate.
func (c *Config) LockTTL() time.Duration {
	d, err := time.ParseDuration(c.Locks.TTL)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// Load reads and validates es.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
