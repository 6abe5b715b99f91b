// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

const clampTolerance = 1e-9

// Entropy returns the Shannon entropy sum(-p ln p) with 0 ln 0 taken as 0.
func Entropy(probs []float64) float64 {
	return stat.Entropy(probs)
}

// NormalizedEntropy divides the entropy of probs by ln(n), the entropy of a
// uniform distribution over the n entries considered. probs is ordered with
// the error bucket last, as produced by Decode; excludeErrorBucket drops it.
func NormalizedEntropy(probs []float64, excludeErrorBucket bool) (float64, error) {
	considered := probs
	if excludeErrorBucket && len(considered) > 0 {
		considered = considered[:len(considered)-1]
	}
	if len(considered) <= 1 {
		return 0, fmt.Errorf("%w: entropy needs at least two outcomes, got %d", ErrDegenerateInput, len(considered))
	}
	for i, p := range considered {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return 0, fmt.Errorf("%w: probability %d is %v", ErrOutOfRange, i, p)
		}
	}

	v := Entropy(considered) / math.Log(float64(len(considered)))
	switch {
	case v > 1 && v-1 < clampTolerance:
		v = 1
	case v < 0 && -v < clampTolerance:
		v = 0
	}
	return v, nil
}

// NormalizedEntropy reports the normalized entropy of the distribution and
// its category.
func (d Distribution) NormalizedEntropy(excludeErrorBucket bool) (EntropyReport, error) {
	v, err := NormalizedEntropy(d.Probabilities(), excludeErrorBucket)
	if err != nil {
		return EntropyReport{}, err
	}
	category, err := CategorizeEntropy(v)
	if err != nil {
		return EntropyReport{}, err
	}
	return EntropyReport{Value: v, Category: category, ExcludesErrorBucket: excludeErrorBucket}, nil
}
