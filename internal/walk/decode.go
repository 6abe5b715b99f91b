// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultOccupancy is the number of walkers in a physically valid outcome.
	DefaultOccupancy = 1
	// ErrorSite marks the synthetic bucket holding invalid outcomes.
	ErrorSite = -1

	sumTolerance = 1e-9
)

// Entry is one bucket of a decoded distribution.
type Entry struct {
	Site        int
	Count       float64
	Probability float64
}

// Distribution holds one entry per site in index order followed by the
// error entry. Values are never modified in place.
type Distribution struct {
	entries []Entry
	shots   int
}

// Entries returns a copy of all entries, error entry last.
func (d Distribution) Entries() []Entry {
	return append([]Entry(nil), d.entries...)
}

// Shots returns the total shot count the distribution was derived from.
func (d Distribution) Shots() int {
	return d.shots
}

// Sites returns the number of site entries.
func (d Distribution) Sites() int {
	if len(d.entries) == 0 {
		return 0
	}
	return len(d.entries) - 1
}

// Probabilities returns every probability in entry order, error last.
func (d Distribution) Probabilities() []float64 {
	probs := make([]float64, len(d.entries))
	for i, e := range d.entries {
		probs[i] = e.Probability
	}
	return probs
}

// SiteProbabilities returns the site probabilities without the error entry.
func (d Distribution) SiteProbabilities() []float64 {
	probs := d.Probabilities()
	if len(probs) == 0 {
		return nil
	}
	return probs[:len(probs)-1]
}

// ErrorProbability returns the share of shots that were not valid outcomes.
func (d Distribution) ErrorProbability() float64 {
	if len(d.entries) == 0 {
		return 0
	}
	return d.entries[len(d.entries)-1].Probability
}

// PostSelected returns a new distribution conditioned on a valid outcome:
// the error mass is dropped and site probabilities are renormalized.
func (d Distribution) PostSelected() (Distribution, error) {
	n := d.Sites()
	valid := 0.0
	for _, e := range d.entries[:n] {
		valid += e.Count
	}
	if valid == 0 {
		return Distribution{}, fmt.Errorf("%w: no valid outcomes to post-select", ErrDecode)
	}

	entries := make([]Entry, 0, n+1)
	for _, e := range d.entries[:n] {
		entries = append(entries, Entry{Site: e.Site, Count: e.Count, Probability: e.Count / valid})
	}
	entries = append(entries, Entry{Site: ErrorSite})
	return Distribution{entries: entries, shots: int(math.Round(valid))}, nil
}

// Decode classifies every bitstring of hist as valid (exactly
// expectedOccupancy set bits) or invalid, maps valid outcomes onto sites,
// pads unobserved sites with zero and appends the error bucket.
//
// With more than one walker a valid count is shared equally among its
// occupied sites, so site probabilities are mean walker densities.
func Decode(hist Histogram, expectedOccupancy int) (Distribution, error) {
	if expectedOccupancy < 1 {
		return Distribution{}, fmt.Errorf("%w: expected occupancy must be positive, got %d", ErrDecode, expectedOccupancy)
	}

	width := -1
	shots := 0
	for bits, count := range hist {
		if count < 0 {
			return Distribution{}, fmt.Errorf("%w: negative count %d for %q", ErrDecode, count, bits)
		}
		if err := checkBitstring(bits); err != nil {
			return Distribution{}, err
		}
		if width == -1 {
			width = len(bits)
		} else if len(bits) != width {
			return Distribution{}, fmt.Errorf("%w: mixed bitstring widths %d and %d", ErrDecode, width, len(bits))
		}
		shots += count
	}
	if shots <= 0 {
		return Distribution{}, fmt.Errorf("%w: histogram records no shots", ErrDecode)
	}

	siteCounts := make([]float64, width)
	errorCount := 0.0
	for bits, count := range hist {
		if count == 0 {
			continue
		}
		if Occupancy(bits) != expectedOccupancy {
			errorCount += float64(count)
			continue
		}
		share := float64(count) / float64(expectedOccupancy)
		for i := 0; i < width; i++ {
			if bits[width-1-i] == '1' {
				siteCounts[i] += share
			}
		}
	}

	total := float64(shots)
	entries := make([]Entry, 0, width+1)
	for i, c := range siteCounts {
		entries = append(entries, Entry{Site: i, Count: c, Probability: c / total})
	}
	entries = append(entries, Entry{Site: ErrorSite, Count: errorCount, Probability: errorCount / total})

	d := Distribution{entries: entries, shots: shots}
	if sum := floats.Sum(d.Probabilities()); math.Abs(sum-1) > sumTolerance {
		return Distribution{}, fmt.Errorf("%w: probabilities sum to %v", ErrDecode, sum)
	}
	return d, nil
}

// Occupancy counts the set bits of a bitstring.
func Occupancy(bits string) int {
	return strings.Count(bits, "1")
}

// BitstringToIndex returns the position of the lowest set bit, counted from
// the right: "00010" is site 1 and "10000" is site 4.
func BitstringToIndex(bits string) (int, error) {
	if err := checkBitstring(bits); err != nil {
		return 0, err
	}
	i := strings.LastIndexByte(bits, '1')
	if i < 0 {
		return 0, fmt.Errorf("%w: %q has no set bit", ErrDecode, bits)
	}
	return len(bits) - 1 - i, nil
}

// IndexToBitstring returns the n-bit single-walker bitstring for site index.
func IndexToBitstring(index, n int) (string, error) {
	if n < 1 || index < 0 || index >= n {
		return "", fmt.Errorf("%w: index %d outside [0, %d)", ErrDecode, index, n)
	}
	b := []byte(strings.Repeat("0", n))
	b[n-1-index] = '1'
	return string(b), nil
}

func checkBitstring(bits string) error {
	if bits == "" {
		return fmt.Errorf("%w: empty bitstring", ErrDecode)
	}
	for i := 0; i < len(bits); i++ {
		if bits[i] != '0' && bits[i] != '1' {
			return fmt.Errorf("%w: %q is not a bitstring", ErrDecode, bits)
		}
	}
	return nil
}
