// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

// NoisyBackend simulates a single-qubit depolarizing channel after every
// local rotation. With parameter lambda the channel applies X, Y or Z each
// with probability lambda/4 and leaves the qubit alone otherwise. Shots are
// drawn as independent Pauli trajectories.
type NoisyBackend struct {
	ideal  *IdealBackend
	lambda float64
	log    zerolog.Logger
}

// NewNoisyBackend creates a noisy simulator. A lambda of zero reproduces the
// ideal backend exactly.
func NewNoisyBackend(cfg SimulatorConfig, lambda float64, log zerolog.Logger) (*NoisyBackend, error) {
	if lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("%w: depolarizing parameter %v outside [0, 1]", walk.ErrInvalidSpec, lambda)
	}
	ideal, err := NewIdealBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	return &NoisyBackend{
		ideal:  ideal,
		lambda: lambda,
		log:    log.With().Str("component", "noisy-simulator").Logger(),
	}, nil
}

func (b *NoisyBackend) Kind() walk.BackendKind {
	return walk.BackendNoisy
}

func (b *NoisyBackend) Name() string {
	return "noisy-simulator"
}

// Depolarizing returns the channel parameter.
func (b *NoisyBackend) Depolarizing() float64 {
	return b.lambda
}

// pauliFault is an error operator inserted after gate index at.
type pauliFault struct {
	at    int
	op    pauli
	qubit int
}

func (b *NoisyBackend) Execute(ctx context.Context, spec walk.CircuitSpec) (walk.Histogram, error) {
	if b.lambda == 0 {
		return b.ideal.Execute(ctx, spec)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean, err := b.ideal.distribution(spec)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := newSource(b.ideal.cfg.Seed)
	r := rand.New(src)
	cleanDist := distuv.NewCategorical(clean, src)
	gates := spec.Gates()
	n := spec.Sites()

	hist := make(walk.Histogram)
	faulty := 0
	for shot := 0; shot < b.ideal.cfg.Shots; shot++ {
		faults := b.drawFaults(gates, r)
		if len(faults) == 0 {
			hist[bitstring(int(cleanDist.Rand()), n)]++
			continue
		}
		if err := ctx.Err(); err != nil {
			b.log.Debug().Int("shot", shot).Int("faulty_shots", faulty).Msg("noisy execution canceled")
			return nil, err
		}
		faulty++
		probs, err := trajectory(n, gates, faults)
		if err != nil {
			return nil, err
		}
		hist[bitstring(int(distuv.NewCategorical(probs, src).Rand()), n)]++
	}

	b.log.Debug().Int("shots", b.ideal.cfg.Shots).Int("faulty_shots", faulty).Msg("noisy execution complete")
	return hist, nil
}

// drawFaults samples the error operators of one shot.
func (b *NoisyBackend) drawFaults(gates []walk.Gate, r *rand.Rand) []pauliFault {
	quarter := b.lambda / 4
	var faults []pauliFault
	for i, g := range gates {
		if g.Op != walk.OpRZ {
			continue
		}
		u := r.Float64()
		if u >= 3*quarter {
			continue
		}
		op := pauli(u / quarter)
		if op > pauliZ {
			op = pauliZ
		}
		faults = append(faults, pauliFault{at: i, op: op, qubit: g.Qubits[0]})
	}
	return faults
}

// trajectory evolves the state with faults inserted after their gates.
func trajectory(n int, gates []walk.Gate, faults []pauliFault) ([]float64, error) {
	sv := newStateVector(n)
	next := 0
	for i, g := range gates {
		if err := sv.apply(g); err != nil {
			return nil, err
		}
		for next < len(faults) && faults[next].at == i {
			sv.applyPauli(faults[next].op, faults[next].qubit)
			next++
		}
	}
	return sv.probabilities(), nil
}
