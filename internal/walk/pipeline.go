// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Pipeline struct {
	backends []Backend
	log      zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for run diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// NewPipeline creates a Pipeline that executes circuits on the provided
// backends. When several backends share a kind the first one registered wins.
func NewPipeline(backends []Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		backends: backends,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Str("component", "pipeline").Logger()
	return p
}

// RunMeta carries the intermediate values of a run alongside its result.
type RunMeta struct {
	Result       Result
	Spec         CircuitSpec
	Distribution Distribution
}

func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	meta, err := p.RunWithMeta(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return meta.Result, nil
}

func (p *Pipeline) RunWithMeta(ctx context.Context, req Request) (RunMeta, error) {
	kind, err := ParseBackendKind(req.Backend)
	if err != nil {
		return RunMeta{}, err
	}
	backend, err := p.selectBackend(kind)
	if err != nil {
		return RunMeta{}, err
	}

	weights := make([]float64, len(req.Sites))
	for i, s := range req.Sites {
		weights[i] = s.Weight
	}
	spec, err := Build(weights, req.Steps, req.CouplingDenominator, req.Start)
	if err != nil {
		return RunMeta{}, err
	}

	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Str("backend", backend.Name()).Logger()
	log.Debug().Int("sites", spec.Sites()).Int("steps", spec.Steps).Int("start", spec.Start).Msg("executing circuit")

	hist, err := backend.Execute(ctx, spec)
	if err != nil {
		return RunMeta{}, fmt.Errorf("backend %q failed: %w", backend.Name(), err)
	}

	occupancy := req.ExpectedOccupancy
	if occupancy == 0 {
		occupancy = DefaultOccupancy
	}
	dist, err := Decode(hist, occupancy)
	if err == nil && dist.Sites() != spec.Sites() {
		err = fmt.Errorf("%w: histogram covers %d sites, circuit has %d", ErrDecode, dist.Sites(), spec.Sites())
	}
	if err != nil {
		if errors.Is(err, ErrDecode) {
			log.Error().Err(err).Int("outcomes", len(hist)).Msg("backend output does not decode")
		}
		return RunMeta{}, err
	}

	labels := make([]string, len(req.Sites))
	for i, site := range req.Sites {
		labels[i] = site.Label
	}
	var result Result
	if req.PostSelect {
		result, err = InterpretPostSelected(dist, labels)
	} else {
		result, err = Interpret(dist, labels, req.ExcludeErrorBucket)
	}
	if err != nil {
		return RunMeta{}, err
	}
	result.RunID = runID
	result.StartLabel = req.Sites[req.Start].Label
	result.Backend = backend.Name()
	result.Histogram = hist

	log.Debug().
		Float64("error_probability", result.ErrorProbability).
		Float64("entropy", result.Entropy.Value).
		Str("entropy_category", string(result.Entropy.Category)).
		Msg("run complete")

	return RunMeta{Result: result, Spec: spec, Distribution: dist}, nil
}

// Interpret attaches labels, likelihood categories and the entropy report
// to a decoded distribution. labels holds one label per site.
func Interpret(dist Distribution, labels []string, excludeErrorBucket bool) (Result, error) {
	if len(labels) != dist.Sites() {
		return Result{}, fmt.Errorf("%w: %d labels for %d sites", ErrDecode, len(labels), dist.Sites())
	}

	sites := make([]SiteOutcome, 0, dist.Sites())
	for i, p := range dist.SiteProbabilities() {
		likelihood, err := CategorizeLikelihood(p)
		if err != nil {
			return Result{}, err
		}
		sites = append(sites, SiteOutcome{Label: labels[i], Probability: p, Likelihood: likelihood})
	}

	entropy, err := dist.NormalizedEntropy(excludeErrorBucket)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Shots:            dist.Shots(),
		Sites:            sites,
		ErrorProbability: dist.ErrorProbability(),
		Entropy:          entropy,
	}, nil
}

// InterpretPostSelected interprets dist conditioned on a valid outcome. Site
// probabilities and the entropy cover valid outcomes only, while the error
// probability and shot count are those measured.
func InterpretPostSelected(dist Distribution, labels []string) (Result, error) {
	post, err := dist.PostSelected()
	if err != nil {
		return Result{}, err
	}
	result, err := Interpret(post, labels, true)
	if err != nil {
		return Result{}, err
	}
	result.Shots = dist.Shots()
	result.ErrorProbability = dist.ErrorProbability()
	result.PostSelected = true
	return result, nil
}

// selectBackend returns the first registered backend of the given kind.
func (p *Pipeline) selectBackend(kind BackendKind) (Backend, error) {
	for _, b := range p.backends {
		if b.Kind() == kind {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: no backend registered for kind %q", ErrUnknownBackend, kind)
}

// RegisteredBackends returns the names of all registered backends.
func (p *Pipeline) RegisteredBackends() []string {
	names := make([]string, len(p.backends))
	for i, b := range p.backends {
		names[i] = b.Name()
	}
	return names
}
