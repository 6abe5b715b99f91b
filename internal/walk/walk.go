// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"context"
	"fmt"
	"strings"
)

// Site is one labeled location the walker can occupy. Its index is its
// position in the input ordering.
type Site struct {
	Label  string  `json:"label" yaml:"label"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// BackendKind selects how a circuit is executed.
type BackendKind string

const (
	BackendIdeal    BackendKind = "ideal"
	BackendNoisy    BackendKind = "noisy"
	BackendHardware BackendKind = "hardware"
)

// ParseBackendKind maps a selector string onto a BackendKind.
func ParseBackendKind(s string) (BackendKind, error) {
	switch kind := BackendKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case BackendIdeal, BackendNoisy, BackendHardware:
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q (want ideal, noisy or hardware)", ErrUnknownBackend, s)
}

// Histogram maps fixed-width measurement bitstrings to observed counts.
// The character at position n-1-q holds qubit q, so the rightmost
// character is site 0.
type Histogram map[string]int

// Shots returns the total number of recorded shots.
func (h Histogram) Shots() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

// Backend executes a circuit description and reports the outcome histogram.
// Execute is the only pipeline call that may block or perform I/O.
type Backend interface {
	Kind() BackendKind
	Name() string
	Execute(ctx context.Context, spec CircuitSpec) (Histogram, error)
}

// Request is the input of a single pipeline run.
type Request struct {
	Sites               []Site
	Steps               int
	Start               int
	CouplingDenominator float64
	Backend             string
	// ExpectedOccupancy is the number of set bits a valid outcome carries.
	// Zero means DefaultOccupancy.
	ExpectedOccupancy  int
	ExcludeErrorBucket bool
	// PostSelect conditions site probabilities on a valid outcome.
	PostSelect bool
}

// SiteOutcome is the interpreted probability of one site.
type SiteOutcome struct {
	Label       string     `json:"label" yaml:"label" msgpack:"label"`
	Probability float64    `json:"probability" yaml:"probability" msgpack:"probability"`
	Likelihood  Likelihood `json:"likelihood" yaml:"likelihood" msgpack:"likelihood"`
}

// EntropyReport is the normalized randomness of a run and its label.
type EntropyReport struct {
	Value               float64         `json:"value" yaml:"value" msgpack:"value"`
	Category            EntropyCategory `json:"category" yaml:"category" msgpack:"category"`
	ExcludesErrorBucket bool            `json:"excludes_error_bucket" yaml:"excludes_error_bucket" msgpack:"excludes_error_bucket"`
}

// Result is the output of a successful pipeline run.
type Result struct {
	RunID            string        `json:"run_id" yaml:"run_id" msgpack:"run_id"`
	Backend          string        `json:"backend" yaml:"backend" msgpack:"backend"`
	Shots            int           `json:"shots" yaml:"shots" msgpack:"shots"`
	Histogram        Histogram     `json:"histogram" yaml:"histogram" msgpack:"histogram"`
	StartLabel       string        `json:"start_label" yaml:"start_label" msgpack:"start_label"`
	Sites            []SiteOutcome `json:"sites" yaml:"sites" msgpack:"sites"`
	ErrorProbability float64       `json:"error_probability" yaml:"error_probability" msgpack:"error_probability"`
	Entropy          EntropyReport `json:"entropy" yaml:"entropy" msgpack:"entropy"`
	// PostSelected reports that site probabilities were renormalized over
	// valid outcomes. ErrorProbability still holds the measured share.
	PostSelected bool `json:"post_selected" yaml:"post_selected" msgpack:"post_selected"`
}

// Probabilities returns the site probabilities in index order followed by
// the error probability. For a post-selected result the values sum to more
// than one.
func (r Result) Probabilities() []float64 {
	probs := make([]float64, 0, len(r.Sites)+1)
	for _, s := range r.Sites {
		probs = append(probs, s.Probability)
	}
	return append(probs, r.ErrorProbability)
}
