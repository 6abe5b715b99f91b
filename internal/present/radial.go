// SPDX-License-Identifier: Apache-2.0

// Package present turns pipeline results into plain data for the radial
// chart and for narrative generation. It never renders images or prose.
package present

import (
	"math"
	"strconv"
	"strings"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

const (
	// ErrorLabel names the spoke holding invalid outcomes.
	ErrorLabel = "Can't Remember"
	// DefaultLineLength is the label wrap width in runes.
	DefaultLineLength = 10

	ellipsis = "..."
)

// RadialOptions controls label layout.
type RadialOptions struct {
	LineLength int
}

// RadialPoint is one vertex of the radial polygon.
type RadialPoint struct {
	Label  string  `json:"label" yaml:"label" msgpack:"label"`
	Angle  float64 `json:"angle" yaml:"angle" msgpack:"angle"`
	Radius float64 `json:"radius" yaml:"radius" msgpack:"radius"`
	Error  bool    `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error,omitempty"`
}

// RadialSeries is a closed polygon: the last point repeats the first.
// Angles are radians measured clockwise from north.
type RadialSeries struct {
	Points            []RadialPoint `json:"points" yaml:"points" msgpack:"points"`
	MaxRadius         float64       `json:"max_radius" yaml:"max_radius" msgpack:"max_radius"`
	HasError          bool          `json:"has_error" yaml:"has_error" msgpack:"has_error"`
	RememberedEntropy float64       `json:"remembered_entropy" yaml:"remembered_entropy" msgpack:"remembered_entropy"`
	ResidualEntropy   float64       `json:"residual_entropy" yaml:"residual_entropy" msgpack:"residual_entropy"`
}

// Spokes returns the points without the closing vertex.
func (s RadialSeries) Spokes() []RadialPoint {
	if len(s.Points) == 0 {
		return nil
	}
	return s.Points[:len(s.Points)-1]
}

// Radial lays out the site probabilities of result as a radial chart. The
// error spoke is added only when some shots were invalid.
func Radial(result walk.Result, opts RadialOptions) RadialSeries {
	lineLength := opts.LineLength
	if lineLength <= 0 {
		lineLength = DefaultLineLength
	}

	type spoke struct {
		label  string
		radius float64
		err    bool
	}
	spokes := make([]spoke, 0, len(result.Sites)+1)
	remembered := make([]float64, 0, len(result.Sites))
	for i, s := range result.Sites {
		label := s.Label
		if strings.TrimSpace(label) == "" {
			label = strconv.Itoa(i)
		}
		spokes = append(spokes, spoke{label: label, radius: s.Probability})
		remembered = append(remembered, s.Probability)
	}
	hasError := result.ErrorProbability > 0
	if hasError {
		spokes = append(spokes, spoke{label: ErrorLabel, radius: result.ErrorProbability, err: true})
	}

	series := RadialSeries{
		HasError:          hasError,
		RememberedEntropy: walk.Entropy(remembered),
	}
	if hasError {
		series.ResidualEntropy = walk.Entropy([]float64{result.ErrorProbability})
	}
	if len(spokes) == 0 {
		return series
	}

	step := 2 * math.Pi / float64(len(spokes))
	series.Points = make([]RadialPoint, 0, len(spokes)+1)
	for i, sp := range spokes {
		series.Points = append(series.Points, RadialPoint{
			Label:  WrapLabel(sp.label, lineLength),
			Angle:  float64(i) * step,
			Radius: sp.radius,
			Error:  sp.err,
		})
		series.MaxRadius = math.Max(series.MaxRadius, sp.radius)
	}
	series.Points = append(series.Points, series.Points[0])
	return series
}

// WrapLabel drops a leading indefinite article and wraps label onto at most
// two lines of lineLength runes. A break inside a word gets a hyphen and an
// overlong second line ends in an ellipsis.
func WrapLabel(label string, lineLength int) string {
	if strings.HasPrefix(label, "A ") || strings.HasPrefix(label, "a ") {
		label = label[2:]
	}
	runes := []rune(label)
	if lineLength <= 0 || len(runes) <= lineLength {
		return label
	}

	head, tail := runes[:lineLength], runes[lineLength:]
	first := strings.TrimRight(string(head), " ")
	second := []rune(strings.TrimLeft(string(tail), " "))
	if len(second) == 0 {
		return first
	}

	var b strings.Builder
	b.WriteString(first)
	if head[len(head)-1] != ' ' && tail[0] != ' ' {
		b.WriteByte('-')
	}
	b.WriteByte('\n')
	if len(second) > lineLength {
		keep := max(lineLength-len(ellipsis), 1)
		second = append(second[:keep:keep], []rune(ellipsis)...)
	}
	b.WriteString(string(second))
	return b.String()
}
