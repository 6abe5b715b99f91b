// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

// DefaultShots matches the shot count of common simulator defaults.
const DefaultShots = 1024

// newSource returns a PCG source. A zero seed draws a random one.
func newSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// sampleHistogram draws shots outcomes from a basis-state distribution.
func sampleHistogram(probs []float64, sites, shots int, src rand.Source) walk.Histogram {
	dist := distuv.NewCategorical(probs, src)
	hist := make(walk.Histogram)
	for i := 0; i < shots; i++ {
		hist[bitstring(int(dist.Rand()), sites)]++
	}
	return hist
}

// bitstring renders basis state x as n characters, qubit n-1 first.
func bitstring(x, n int) string {
	return fmt.Sprintf("%0*b", n, x)
}
