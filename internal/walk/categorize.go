// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"fmt"
	"math"
)

// EntropyCategory is the qualitative label of a normalized entropy.
type EntropyCategory string

const (
	Uneventful EntropyCategory = "uneventful"
	Boring     EntropyCategory = "boring"
	Regular    EntropyCategory = "regular"
	Exciting   EntropyCategory = "exciting"
	Chaotic    EntropyCategory = "chaotic"
)

// Likelihood is the qualitative label of a single site probability.
type Likelihood string

const (
	Absent   Likelihood = "absent"
	Possible Likelihood = "possible"
	Likely   Likelihood = "likely"
)

// bandRule assigns a label to values at or above lower.
type bandRule[T any] struct {
	lower float64
	label T
}

// entropyRules and likelihoodRules are ordered by descending lower bound;
// the first rule whose lower bound is not above the value wins, which makes
// every band closed on the left and open on the right. The top band also
// includes 1.
var entropyRules = []bandRule[EntropyCategory]{
	{lower: 0.9, label: Chaotic},
	{lower: 0.6, label: Exciting},
	{lower: 0.4, label: Regular},
	{lower: 0.1, label: Boring},
	{lower: 0, label: Uneventful},
}

var likelihoodRules = []bandRule[Likelihood]{
	{lower: 0.75, label: Likely},
	{lower: 0.25, label: Possible},
	{lower: 0, label: Absent},
}

// CategorizeEntropy labels a normalized entropy in [0, 1].
func CategorizeEntropy(v float64) (EntropyCategory, error) {
	return lookupBand(entropyRules, v, "entropy")
}

// CategorizeLikelihood labels a probability in [0, 1].
func CategorizeLikelihood(p float64) (Likelihood, error) {
	return lookupBand(likelihoodRules, p, "probability")
}

func lookupBand[T any](rules []bandRule[T], v float64, what string) (T, error) {
	var zero T
	if math.IsNaN(v) || v < 0 || v > 1 {
		return zero, fmt.Errorf("%w: %s %v outside [0, 1]", ErrOutOfRange, what, v)
	}
	for _, rule := range rules {
		if v >= rule.lower {
			return rule.label, nil
		}
	}
	return zero, fmt.Errorf("%w: no band for %s %v", ErrOutOfRange, what, v)
}
