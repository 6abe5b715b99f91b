// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazeproj/haze-mcp/internal/config"
	"github.com/hazeproj/haze-mcp/internal/report"
	"github.com/hazeproj/haze-mcp/internal/walk"
)

const testConfig = `
walk:
  sites:
    - {label: Gym, weight: 0}
    - {label: A rooftop bar, weight: 0}
  steps: 1
  coupling_denominator: 4
backend:
  seed: 5
  shots: 256
`

func setup(t *testing.T) string {
	t.Helper()
	for _, key := range []string{config.EnvBackend, config.EnvLogLevel, config.EnvHardwareURL, config.EnvHardwareKey, config.EnvHardwareKeyIonQ} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "walk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRunCommand_JSON(t *testing.T) {
	path := setup(t)

	out, err := execute(t, "run", "--config", path)
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 256, r.Result.Shots)
	assert.Equal(t, "ideal-simulator", r.Result.Backend)
	require.Len(t, r.Result.Sites, 2)
	assert.InDelta(t, 1.0, r.Result.Sites[1].Probability, 1e-12)
	assert.Equal(t, "Gym", r.Narrative.StartLabel)
	assert.NotEmpty(t, r.Prompt)
}

func TestRunCommand_BackendFlagAndFile(t *testing.T) {
	path := setup(t)
	outPath := filepath.Join(t.TempDir(), "report.yaml")

	out, err := execute(t, "run", "-c", path, "--backend", "noisy", "--format", "yaml", "--out", outPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: noisy-simulator")
}

func TestRunCommand_Errors(t *testing.T) {
	path := setup(t)

	_, err := execute(t, "run", "-c", path, "--backend", "annealer")
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = execute(t, "run", "-c", path, "--backend", "hardware")
	assert.ErrorIs(t, err, walk.ErrUnknownBackend)

	_, err = execute(t, "run", "-c", path, "--format", "toml")
	assert.Error(t, err)
}

func TestRootCommand_PrintsErrorWithoutUsage(t *testing.T) {
	path := setup(t)
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"run", "-c", path, "--backend", "annealer"})

	require.Error(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "Error: ")
	assert.Contains(t, stderr.String(), "annealer")
	assert.NotContains(t, stderr.String(), "Usage:")
	assert.Empty(t, stdout.String())
}

func TestBuildPipeline(t *testing.T) {
	cfg := config.Default()
	p, err := buildPipeline(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"ideal-simulator", "noisy-simulator"}, p.RegisteredBackends())

	cfg.Backend.Hardware.Endpoint = "https://jobs.example.test"
	cfg.Backend.Hardware.Target = "qpu.aria-1"
	cfg.Backend.Retry.MaxAttempts = 3
	p, err = buildPipeline(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"ideal-simulator", "noisy-simulator", "hardware:qpu.aria-1"}, p.RegisteredBackends())
}

func TestServer_Tools(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Backend.Seed = 9
	pipeline, err := buildPipeline(cfg, zerolog.Nop())
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := newServer(pipeline, cfg).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "haze-test", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	var names []string
	for _, tl := range tools.Tools {
		names = append(names, tl.Name)
	}
	assert.ElementsMatch(t, []string{"run_quantum_walk", "interpret_histogram", "split_storyline"}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "run_quantum_walk",
		Arguments: map[string]any{
			"sites": []map[string]any{{"label": "Gym", "weight": 0}, {"label": "Pool", "weight": 0}},
			"steps": 0,
		},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out struct {
		Sites []walk.SiteOutcome `json:"sites"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Sites, 2)
	assert.Equal(t, 1.0, out.Sites[0].Probability)
}
