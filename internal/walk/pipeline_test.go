// SPDX-License-Identifier: Apache-2.0

package walk_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

type fakeBackend struct {
	kind  walk.BackendKind
	name  string
	hist  walk.Histogram
	err   error
	calls int
	last  walk.CircuitSpec
}

func (f *fakeBackend) Kind() walk.BackendKind { return f.kind }
func (f *fakeBackend) Name() string           { return f.name }

func (f *fakeBackend) Execute(_ context.Context, spec walk.CircuitSpec) (walk.Histogram, error) {
	f.calls++
	f.last = spec
	return f.hist, f.err
}

func scenarioRequest() walk.Request {
	return walk.Request{
		Sites: []walk.Site{
			{Label: "A lighthouse", Weight: 0.4},
			{Label: "the harbour", Weight: 1.2},
			{Label: "an orchard", Weight: 2.1},
			{Label: "a library", Weight: 0.7},
		},
		Steps:               3,
		Start:               0,
		CouplingDenominator: 10,
		Backend:             "ideal",
		ExcludeErrorBucket:  true,
	}
}

var scenarioHistogram = walk.Histogram{"0001": 700, "0010": 200, "0100": 50, "1000": 20, "0000": 30}

func TestPipeline_Run_Scenario(t *testing.T) {
	backend := &fakeBackend{kind: walk.BackendIdeal, name: "fake-ideal", hist: scenarioHistogram}
	p := walk.NewPipeline([]walk.Backend{backend})

	result, err := p.Run(context.Background(), scenarioRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "fake-ideal", result.Backend)
	assert.Equal(t, 1000, result.Shots)
	assert.Equal(t, "A lighthouse", result.StartLabel)
	assert.InDelta(t, 0.03, result.ErrorProbability, 1e-12)

	wantLabels := []string{"A lighthouse", "the harbour", "an orchard", "a library"}
	wantProbs := []float64{0.70, 0.20, 0.05, 0.02}
	wantLikelihood := []walk.Likelihood{walk.Possible, walk.Absent, walk.Absent, walk.Absent}
	require.Len(t, result.Sites, 4)
	for i, s := range result.Sites {
		assert.Equal(t, wantLabels[i], s.Label)
		assert.InDelta(t, wantProbs[i], s.Probability, 1e-12)
		assert.Equal(t, wantLikelihood[i], s.Likelihood)
	}

	assert.InDelta(t, 0.577, result.Entropy.Value, 0.005)
	assert.Equal(t, walk.Regular, result.Entropy.Category)
	assert.True(t, result.Entropy.ExcludesErrorBucket)

	assert.InDeltaSlice(t, []float64{0.70, 0.20, 0.05, 0.02, 0.03}, result.Probabilities(), 1e-12)
	assert.Equal(t, []float64{0, 1.2, 2.1, 0.7}, backend.last.Weights(), "start weight is zeroed")
}

func TestPipeline_RunWithMeta(t *testing.T) {
	backend := &fakeBackend{kind: walk.BackendNoisy, name: "fake-noisy", hist: scenarioHistogram}
	p := walk.NewPipeline([]walk.Backend{backend})

	req := scenarioRequest()
	req.Backend = "noisy"
	req.ExcludeErrorBucket = false

	meta, err := p.RunWithMeta(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, meta.Spec.Sites())
	assert.Equal(t, 3, meta.Spec.Steps)
	assert.Len(t, meta.Distribution.Entries(), 5)
	assert.False(t, meta.Result.Entropy.ExcludesErrorBucket)
}

func TestPipeline_PostSelect(t *testing.T) {
	backend := &fakeBackend{kind: walk.BackendIdeal, name: "fake-ideal", hist: scenarioHistogram}
	p := walk.NewPipeline([]walk.Backend{backend})

	req := scenarioRequest()
	req.PostSelect = true
	req.ExcludeErrorBucket = false

	meta, err := p.RunWithMeta(context.Background(), req)
	require.NoError(t, err)
	result := meta.Result

	assert.True(t, result.PostSelected)
	assert.Equal(t, 1000, result.Shots)
	assert.InDelta(t, 0.03, result.ErrorProbability, 1e-12)
	assert.InDelta(t, 0.03, meta.Distribution.ErrorProbability(), 1e-12, "raw distribution is kept")
	assert.True(t, result.Entropy.ExcludesErrorBucket)

	sum := 0.0
	for _, s := range result.Sites {
		sum += s.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 0.70/0.97, result.Sites[0].Probability, 1e-12)
	assert.Equal(t, walk.Possible, result.Sites[0].Likelihood)
}

func TestPipeline_FirstRegisteredBackendWins(t *testing.T) {
	first := &fakeBackend{kind: walk.BackendIdeal, name: "first", hist: scenarioHistogram}
	second := &fakeBackend{kind: walk.BackendIdeal, name: "second", hist: scenarioHistogram}
	p := walk.NewPipeline([]walk.Backend{first, second})

	_, err := p.Run(context.Background(), scenarioRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
	assert.Equal(t, []string{"first", "second"}, p.RegisteredBackends())
}

func TestPipeline_Errors(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		mutate  func(*walk.Request)
		wantErr error
		calls   int
	}{
		{
			name:    "unknown selector",
			backend: &fakeBackend{kind: walk.BackendIdeal, hist: scenarioHistogram},
			mutate:  func(r *walk.Request) { r.Backend = "annealer" },
			wantErr: walk.ErrUnknownBackend,
		},
		{
			name:    "kind not registered",
			backend: &fakeBackend{kind: walk.BackendIdeal, hist: scenarioHistogram},
			mutate:  func(r *walk.Request) { r.Backend = "hardware" },
			wantErr: walk.ErrUnknownBackend,
		},
		{
			name:    "invalid start",
			backend: &fakeBackend{kind: walk.BackendIdeal, hist: scenarioHistogram},
			mutate:  func(r *walk.Request) { r.Start = 7 },
			wantErr: walk.ErrInvalidSpec,
		},
		{
			name:    "backend unavailable is surfaced",
			backend: &fakeBackend{kind: walk.BackendIdeal, err: fmt.Errorf("%w: status 503", walk.ErrBackendUnavailable)},
			mutate:  func(*walk.Request) {},
			wantErr: walk.ErrBackendUnavailable,
			calls:   1,
		},
		{
			name:    "histogram width mismatch",
			backend: &fakeBackend{kind: walk.BackendIdeal, hist: walk.Histogram{"001": 10}},
			mutate:  func(*walk.Request) {},
			wantErr: walk.ErrDecode,
			calls:   1,
		},
		{
			name:    "malformed histogram",
			backend: &fakeBackend{kind: walk.BackendIdeal, hist: walk.Histogram{"01x1": 10}},
			mutate:  func(*walk.Request) {},
			wantErr: walk.ErrDecode,
			calls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := walk.NewPipeline([]walk.Backend{tt.backend})
			req := scenarioRequest()
			tt.mutate(&req)

			_, err := p.Run(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.calls, tt.backend.calls)
		})
	}
}

func TestPipeline_LogsDecodeErrors(t *testing.T) {
	var buf bytes.Buffer
	backend := &fakeBackend{kind: walk.BackendIdeal, name: "fake", hist: walk.Histogram{"11": 0}}
	p := walk.NewPipeline([]walk.Backend{backend}, walk.WithLogger(zerolog.New(&buf)))

	_, err := p.Run(context.Background(), scenarioRequest())
	require.True(t, errors.Is(err, walk.ErrDecode))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"component":"pipeline"`)
	assert.Contains(t, buf.String(), `"run_id"`)
}

func TestInterpret(t *testing.T) {
	dist, err := walk.Decode(scenarioHistogram, walk.DefaultOccupancy)
	require.NoError(t, err)

	result, err := walk.Interpret(dist, []string{"a", "b", "c", "d"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1000, result.Shots)
	assert.Equal(t, "a", result.Sites[0].Label)
	assert.False(t, result.Entropy.ExcludesErrorBucket)
	assert.Empty(t, result.RunID)

	_, err = walk.Interpret(dist, []string{"a"}, true)
	assert.ErrorIs(t, err, walk.ErrDecode)
}

func TestInterpretPostSelected(t *testing.T) {
	dist, err := walk.Decode(walk.Histogram{"01": 30, "10": 10, "11": 60}, walk.DefaultOccupancy)
	require.NoError(t, err)

	result, err := walk.InterpretPostSelected(dist, []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, result.PostSelected)
	assert.Equal(t, 100, result.Shots)
	assert.InDelta(t, 0.6, result.ErrorProbability, 1e-12)
	assert.InDeltaSlice(t, []float64{0.75, 0.25, 0.6}, result.Probabilities(), 1e-12)
	assert.Equal(t, walk.Likely, result.Sites[0].Likelihood)
	assert.Equal(t, walk.Possible, result.Sites[1].Likelihood)

	invalid, err := walk.Decode(walk.Histogram{"00": 5, "11": 5}, walk.DefaultOccupancy)
	require.NoError(t, err)
	_, err = walk.InterpretPostSelected(invalid, []string{"a", "b"})
	assert.ErrorIs(t, err, walk.ErrDecode)
}
