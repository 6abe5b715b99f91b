// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

// MaxSimulatedSites bounds the state-vector size of the local simulators.
const MaxSimulatedSites = 16

// pauli identifies a single-qubit error operator.
type pauli int

const (
	pauliX pauli = iota
	pauliY
	pauliZ
)

// stateVector holds 2^n amplitudes. Bit q of an amplitude index is qubit q.
type stateVector struct {
	n    int
	amps []complex128
}

func newStateVector(n int) *stateVector {
	amps := make([]complex128, 1<<n)
	amps[0] = 1
	return &stateVector{n: n, amps: amps}
}

func (s *stateVector) apply(g walk.Gate) error {
	for _, q := range g.Qubits {
		if q < 0 || q >= s.n {
			return fmt.Errorf("%w: gate %s targets qubit %d of %d", walk.ErrInvalidSpec, g.Op, q, s.n)
		}
	}

	switch g.Op {
	case walk.OpX:
		if len(g.Qubits) != 1 {
			return fmt.Errorf("%w: x takes one qubit", walk.ErrInvalidSpec)
		}
		s.applyPauli(pauliX, g.Qubits[0])
	case walk.OpRZ:
		if len(g.Qubits) != 1 {
			return fmt.Errorf("%w: rz takes one qubit", walk.ErrInvalidSpec)
		}
		s.applyRZ(g.Qubits[0], g.Theta)
	case walk.OpRXX, walk.OpRYY:
		if len(g.Qubits) != 2 || g.Qubits[0] == g.Qubits[1] {
			return fmt.Errorf("%w: %s takes two distinct qubits", walk.ErrInvalidSpec, g.Op)
		}
		s.applyTwoQubitRotation(g.Op == walk.OpRYY, g.Qubits[0], g.Qubits[1], g.Theta)
	default:
		return fmt.Errorf("%w: unsupported gate %q", walk.ErrInvalidSpec, g.Op)
	}
	return nil
}

func (s *stateVector) applyRZ(q int, theta float64) {
	bit := 1 << q
	lo := cmplx.Exp(complex(0, -theta/2))
	hi := cmplx.Exp(complex(0, theta/2))
	for i := range s.amps {
		if i&bit == 0 {
			s.amps[i] *= lo
		} else {
			s.amps[i] *= hi
		}
	}
}

// applyTwoQubitRotation applies exp(-i theta/2 PP) for P = X, or P = Y when
// yy is set. PP flips both qubits; YY additionally picks up -1 when the two
// bits agree.
func (s *stateVector) applyTwoQubitRotation(yy bool, a, b int, theta float64) {
	bitA, bitB := 1<<a, 1<<b
	mask := bitA | bitB
	c := complex(math.Cos(theta/2), 0)
	ms := complex(0, -math.Sin(theta/2))

	for x := range s.amps {
		if x&bitA != 0 {
			continue
		}
		y := x ^ mask
		k := ms
		if yy && (x&bitB == 0) {
			// bit a is clear here, so the bits agree exactly when b is clear.
			k = -ms
		}
		ax, ay := s.amps[x], s.amps[y]
		s.amps[x] = c*ax + k*ay
		s.amps[y] = c*ay + k*ax
	}
}

func (s *stateVector) applyPauli(p pauli, q int) {
	bit := 1 << q
	for x := range s.amps {
		switch p {
		case pauliZ:
			if x&bit != 0 {
				s.amps[x] = -s.amps[x]
			}
		case pauliX, pauliY:
			if x&bit != 0 {
				continue
			}
			y := x | bit
			ax, ay := s.amps[x], s.amps[y]
			if p == pauliX {
				s.amps[x], s.amps[y] = ay, ax
			} else {
				s.amps[x], s.amps[y] = -1i*ay, 1i*ax
			}
		}
	}
}

// probabilities returns the Born-rule distribution over basis states.
func (s *stateVector) probabilities() []float64 {
	probs := make([]float64, len(s.amps))
	for i, a := range s.amps {
		probs[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return probs
}

func checkSimulatable(spec walk.CircuitSpec) error {
	if n := spec.Sites(); n < 1 || n > MaxSimulatedSites {
		return fmt.Errorf("%w: local simulators support 1 to %d sites, got %d", walk.ErrInvalidSpec, MaxSimulatedSites, n)
	}
	return nil
}

// evolve runs the whole gate program from |0...0>.
func evolve(spec walk.CircuitSpec) ([]float64, error) {
	sv := newStateVector(spec.Sites())
	for _, g := range spec.Gates() {
		if err := sv.apply(g); err != nil {
			return nil, err
		}
	}
	return sv.probabilities(), nil
}
