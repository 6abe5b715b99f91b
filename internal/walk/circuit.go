// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GateOp names a gate in the walk's circuit program.
type GateOp string

const (
	OpX   GateOp = "x"
	OpRZ  GateOp = "rz"
	OpRXX GateOp = "rxx"
	OpRYY GateOp = "ryy"
)

// Gate is one operation of the circuit program. Rotations follow the usual
// conventions: RZ(t) = diag(e^{-it/2}, e^{it/2}), RXX(t) = exp(-i t/2 XX),
// RYY(t) = exp(-i t/2 YY).
type Gate struct {
	Op     GateOp
	Qubits []int
	Theta  float64
}

// CircuitSpec is the parametrized description of a walk. It is immutable:
// accessors hand out copies.
type CircuitSpec struct {
	Steps    int
	Coupling float64
	Start    int

	weights []float64
	gates   []Gate
}

// Sites returns the number of sites (qubits) in the walk.
func (s CircuitSpec) Sites() int {
	return len(s.weights)
}

// Weights returns the per-site weights with the start site zeroed.
func (s CircuitSpec) Weights() []float64 {
	return append([]float64(nil), s.weights...)
}

// Gates returns the full gate program: the walker preparation followed by
// one Trotterized unitary per step.
func (s CircuitSpec) Gates() []Gate {
	out := make([]Gate, len(s.gates))
	for i, g := range s.gates {
		out[i] = Gate{Op: g.Op, Qubits: append([]int(nil), g.Qubits...), Theta: g.Theta}
	}
	return out
}

// Fingerprint identifies the circuit by its parameters.
func (s CircuitSpec) Fingerprint() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.Steps))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(s.Coupling, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(s.Start))
	for _, w := range s.weights {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(w, 'g', -1, 64))
	}
	return b.String()
}

// Build turns per-site weights, a step count and a coupling denominator into
// a circuit description. The coupling constant is pi/couplingDenominator.
// The weight at start is zeroed on a private copy.
func Build(weights []float64, steps int, couplingDenominator float64, start int) (CircuitSpec, error) {
	n := len(weights)
	switch {
	case n < 2:
		return CircuitSpec{}, fmt.Errorf("%w: need at least two sites, got %d", ErrInvalidSpec, n)
	case steps < 0:
		return CircuitSpec{}, fmt.Errorf("%w: steps must be non-negative, got %d", ErrInvalidSpec, steps)
	case start < 0 || start >= n:
		return CircuitSpec{}, fmt.Errorf("%w: start %d outside [0, %d)", ErrInvalidSpec, start, n)
	case couplingDenominator == 0 || !isFinite(couplingDenominator):
		return CircuitSpec{}, fmt.Errorf("%w: coupling denominator must be finite and non-zero, got %v", ErrInvalidSpec, couplingDenominator)
	}

	w := make([]float64, n)
	for i, v := range weights {
		if !isFinite(v) {
			return CircuitSpec{}, fmt.Errorf("%w: weight %d is not finite", ErrInvalidSpec, i)
		}
		w[i] = v
	}
	w[start] = 0

	coupling := math.Pi / couplingDenominator
	gates := []Gate{{Op: OpX, Qubits: []int{start}}}
	for i := 0; i < steps; i++ {
		gates = append(gates, trotterStep(w, coupling)...)
	}

	return CircuitSpec{
		Steps:    steps,
		Coupling: coupling,
		Start:    start,
		weights:  w,
		gates:    gates,
	}, nil
}

// trotterStep lays out one step: local rotations, half-strength coupling on
// even ring pairs, full-strength on odd pairs, half-strength on even pairs
// again, local rotations.
func trotterStep(weights []float64, coupling float64) []Gate {
	n := len(weights)
	gates := make([]Gate, 0, 4*n)

	gates = append(gates, localRotations(weights)...)
	gates = append(gates, ringCoupling(n, 0, -coupling/2)...)
	gates = append(gates, ringCoupling(n, 1, -coupling)...)
	gates = append(gates, ringCoupling(n, 0, -coupling/2)...)
	gates = append(gates, localRotations(weights)...)
	return gates
}

func localRotations(weights []float64) []Gate {
	gates := make([]Gate, len(weights))
	for i, w := range weights {
		gates[i] = Gate{Op: OpRZ, Qubits: []int{i}, Theta: w / 2}
	}
	return gates
}

// ringCoupling couples site i to (i+1) mod n for every i with the given parity.
func ringCoupling(n, parity int, theta float64) []Gate {
	var gates []Gate
	for i := parity; i < n; i += 2 {
		pair := []int{i, (i + 1) % n}
		gates = append(gates,
			Gate{Op: OpRXX, Qubits: pair, Theta: theta},
			Gate{Op: OpRYY, Qubits: append([]int(nil), pair...), Theta: theta},
		)
	}
	return gates
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
