// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazeproj/haze-mcp/internal/config"
	"github.com/hazeproj/haze-mcp/internal/walk"
)

const validYAML = `
log:
  level: debug
walk:
  sites:
    - label: Gym
      weight: 0.2
    - label: Opera
      weight: 0.4
    - label: Rooftop bar
      weight: 0.6
  steps: 3
  start: 1
backend:
  kind: noisy
  noise: 0.02
  seed: 7
  retry:
    max_attempts: 3
    initial_backoff: 500ms
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "walk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvBackend, config.EnvLogLevel, config.EnvHardwareURL, config.EnvHardwareKey, config.EnvHardwareKeyIonQ} {
		t.Setenv(key, "")
	}
}

func TestLoad_FileOverDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Walk.Sites, 3)
	assert.Equal(t, walk.Site{Label: "Rooftop bar", Weight: 0.6}, cfg.Walk.Sites[2])
	assert.Equal(t, 3, cfg.Walk.Steps)
	assert.Equal(t, 1, cfg.Walk.Start)
	assert.Equal(t, "noisy", cfg.Backend.Kind)
	assert.Equal(t, 0.02, cfg.Backend.Noise)
	assert.Equal(t, uint64(7), cfg.Backend.Seed)

	// Untouched fields keep their defaults.
	assert.Equal(t, 10.0, cfg.Walk.CouplingDenominator)
	assert.True(t, cfg.Walk.ExcludeErrorBucket)
	assert.Equal(t, 1024, cfg.Backend.Shots)
	assert.Equal(t, "simulator", cfg.Backend.Hardware.Target)
	assert.Equal(t, 2*time.Second, cfg.Backend.Hardware.PollIntervalDuration())

	initial, maximum := cfg.Backend.Retry.Backoff()
	assert.Equal(t, 500*time.Millisecond, initial)
	assert.Equal(t, 30*time.Second, maximum)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvBackend, "Hardware")
	t.Setenv(config.EnvLogLevel, "WARN")
	t.Setenv(config.EnvHardwareURL, "https://jobs.example.test/v0.3")
	t.Setenv(config.EnvHardwareKeyIonQ, "fallback-key")

	cfg, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "hardware", cfg.Backend.Kind)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "https://jobs.example.test/v0.3", cfg.Backend.Hardware.Endpoint)
	assert.Equal(t, "fallback-key", cfg.Backend.Hardware.APIKey)

	t.Setenv(config.EnvHardwareKey, "primary-key")
	cfg, err = config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "primary-key", cfg.Backend.Hardware.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "single site",
			content: "walk:\n  sites:\n    - {label: Gym, weight: 1}\n",
		},
		{
			name:    "start outside sites",
			content: "walk:\n  start: 2\n  sites:\n    - {label: Gym, weight: 1}\n    - {label: Pool, weight: 1}\n",
		},
		{
			name:    "empty label",
			content: "walk:\n  sites:\n    - {label: '', weight: 1}\n    - {label: Pool, weight: 1}\n",
		},
		{
			name:    "zero coupling denominator",
			content: "walk:\n  coupling_denominator: 0\n  sites:\n    - {label: Gym, weight: 1}\n    - {label: Pool, weight: 1}\n",
		},
		{
			name:    "unknown backend",
			content: "backend:\n  kind: annealer\nwalk:\n  sites:\n    - {label: Gym, weight: 1}\n    - {label: Pool, weight: 1}\n",
		},
		{
			name:    "noise above one",
			content: "backend:\n  noise: 1.5\nwalk:\n  sites:\n    - {label: Gym, weight: 1}\n    - {label: Pool, weight: 1}\n",
		},
		{
			name:    "unparseable poll interval",
			content: "backend:\n  hardware:\n    poll_interval: soon\nwalk:\n  sites:\n    - {label: Gym, weight: 1}\n    - {label: Pool, weight: 1}\n",
		},
		{
			name:    "negative backoff",
			content: "backend:\n  retry:\n    max_backoff: -1s\nwalk:\n  sites:\n    - {label: Gym, weight: 1}\n    - {label: Pool, weight: 1}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := config.Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestLoad_WithoutFileNeedsSites(t *testing.T) {
	clearEnv(t)
	_, err := config.Load("")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrInvalid)
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(writeConfig(t, "walk: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestConfig_Request(t *testing.T) {
	cfg := config.Default()
	cfg.Walk.Sites = []walk.Site{{Label: "Gym", Weight: 1}, {Label: "Pool", Weight: 2}}
	cfg.Walk.Start = 1
	cfg.Backend.Kind = "noisy"
	require.NoError(t, cfg.Validate())

	req := cfg.Request()
	assert.Equal(t, cfg.Walk.Sites, req.Sites)
	assert.Equal(t, 1, req.Start)
	assert.Equal(t, 1, req.Steps)
	assert.Equal(t, 10.0, req.CouplingDenominator)
	assert.Equal(t, "noisy", req.Backend)
	assert.Equal(t, walk.DefaultOccupancy, req.ExpectedOccupancy)
	assert.True(t, req.ExcludeErrorBucket)
	assert.False(t, req.PostSelect)

	cfg.Walk.PostSelect = true
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Request().PostSelect)

	req.Sites[0].Label = "changed"
	assert.Equal(t, "Gym", cfg.Walk.Sites[0].Label, "request owns its sites")
}
