package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
project: edge-cache
github:
  repo: hirefrank/edgestack
  labels: ["es"]
sync:
  conflicts: theirs
  close_comment: "closed by es sync"
locks:
  ttl: 15m
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "edge-cache", config.Project)
	assert.Equal(t, "hirefrank/edgestack", config.GitHub.Repo)
	assert.Equal(t, []string{"es"}, config.GitHub.Labels)
	assert.Equal(t, "theirs", config.Sync.Conflicts)
	assert.Equal(t, "closed by es sync", config.Sync.CloseComment)
	assert.Equal(t, 15*time.Minute, config.LockTTL())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
project: edge-cache
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "ask", config.Sync.Conflicts)
	assert.Equal(t, "redis:7-alpine", config.Store.Image)
	assert.Equal(t, "30m", config.Locks.TTL)
	assert.Equal(t, 30*time.Minute, config.LockTTL())
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/es.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
project:
  - this is invalid
    yaml syntax
`)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Version: "1.0", Project: "edge-cache"}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		errMsg  string
		wantErr bool
	}{
		{
			name:   "valid minimal",
			mutate: func(c *Config) {},
		},
		{
			name:    "wrong version",
			mutate:  func(c *Config) { c.Version = "2.0" },
			wantErr: true,
			errMsg:  "unsupported version",
		},
		{
			name:    "missing project",
			mutate:  func(c *Config) { c.Project = "" },
			wantErr: true,
			errMsg:  "project name is required",
		},
		{
			name:    "project with uppercase",
			mutate:  func(c *Config) { c.Project = "EdgeCache" },
			wantErr: true,
			errMsg:  "invalid project name",
		},
		{
			name:    "project with underscore",
			mutate:  func(c *Config) { c.Project = "edge_cache" },
			wantErr: true,
			errMsg:  "invalid project name",
		},
		{
			name:    "bad repo slug",
			mutate:  func(c *Config) { c.GitHub = &GitHubConfig{Repo: "not-a-slug"} },
			wantErr: true,
			errMsg:  "invalid github.repo",
		},
		{
			name:    "bad conflicts policy",
			mutate:  func(c *Config) { c.Sync = &SyncConfig{Conflicts: "mine"} },
			wantErr: true,
			errMsg:  "invalid sync.conflicts",
		},
		{
			name:    "bad lock ttl",
			mutate:  func(c *Config) { c.Locks = &LockConfig{TTL: "half an hour"} },
			wantErr: true,
			errMsg:  "invalid locks.ttl",
		},
		{
			name:   "single char project",
			mutate: func(c *Config) { c.Project = "x" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
