// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

// SimulatorConfig configures the local simulators.
type SimulatorConfig struct {
	Shots int
	// Seed fixes the sampling source. Zero draws a fresh seed per run.
	Seed uint64
	// CacheSize bounds the number of memoized exact distributions.
	CacheSize int
}

func (c SimulatorConfig) withDefaults() SimulatorConfig {
	if c.Shots <= 0 {
		c.Shots = DefaultShots
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 128
	}
	return c
}

// IdealBackend evolves the exact state vector and samples shots from it.
type IdealBackend struct {
	cfg   SimulatorConfig
	cache *lru.Cache[string, []float64]
	log   zerolog.Logger
}

// NewIdealBackend creates a noiseless simulator backend.
func NewIdealBackend(cfg SimulatorConfig, log zerolog.Logger) (*IdealBackend, error) {
	cfg = cfg.withDefaults()
	cache, err := lru.New[string, []float64](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create distribution cache: %w", err)
	}
	return &IdealBackend{
		cfg:   cfg,
		cache: cache,
		log:   log.With().Str("component", "ideal-simulator").Logger(),
	}, nil
}

func (b *IdealBackend) Kind() walk.BackendKind {
	return walk.BackendIdeal
}

func (b *IdealBackend) Name() string {
	return "ideal-simulator"
}

func (b *IdealBackend) Execute(ctx context.Context, spec walk.CircuitSpec) (walk.Histogram, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	probs, err := b.distribution(spec)
	if err != nil {
		return nil, err
	}
	return sampleHistogram(probs, spec.Sites(), b.cfg.Shots, newSource(b.cfg.Seed)), nil
}

// distribution returns the exact outcome distribution of spec, memoized by
// circuit fingerprint. Callers must not modify the returned slice.
func (b *IdealBackend) distribution(spec walk.CircuitSpec) ([]float64, error) {
	if err := checkSimulatable(spec); err != nil {
		return nil, err
	}
	key := spec.Fingerprint()
	if probs, ok := b.cache.Get(key); ok {
		b.log.Debug().Str("circuit", key).Msg("distribution cache hit")
		return probs, nil
	}
	probs, err := evolve(spec)
	if err != nil {
		return nil, err
	}
	b.cache.Add(key, probs)
	return probs, nil
}
