// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

// MetadataInterpretHistogram describes the interpret_histogram tool.
var MetadataInterpretHistogram = &mcp.Tool{
	Name: "interpret_histogram",
	Description: "Interpret measurement counts from a quantum walk that ran elsewhere. " +
		"Bitstrings are read with the rightmost character as site 0. Outcomes with the expected " +
		"number of walkers are assigned to sites; all others count as invalid. Returns per-site " +
		"probabilities with likelihood categories, the invalid share and the normalized entropy.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"counts"},
		"properties": map[string]interface{}{
			"counts": map[string]interface{}{
				"type":                 "object",
				"description":          "Map of fixed-width bitstring to observed count",
				"additionalProperties": map[string]interface{}{"type": "integer", "minimum": 0},
			},
			"labels": map[string]interface{}{
				"type":        "array",
				"description": "Optional site labels in index order. Defaults to the site index.",
				"items":       map[string]interface{}{"type": "string"},
			},
			"expected_occupancy": map[string]interface{}{
				"type":        "integer",
				"description": "Number of walkers in a valid outcome. Defaults to 1.",
				"minimum":     1,
			},
			"exclude_error_bucket": map[string]interface{}{
				"type":        "boolean",
				"description": "Compute the entropy over the sites only. Defaults to true.",
			},
			"post_select": map[string]interface{}{
				"type":        "boolean",
				"description": "Renormalize site probabilities over valid measurements only.",
			},
		},
	},
}

// InputInterpretHistogram is the input for the InterpretHistogram tool.
type InputInterpretHistogram struct {
	Counts             map[string]int `json:"counts"`
	Labels             []string       `json:"labels,omitempty"`
	ExpectedOccupancy  int            `json:"expected_occupancy,omitempty"`
	ExcludeErrorBucket *bool          `json:"exclude_error_bucket,omitempty"`
	PostSelect         bool           `json:"post_select,omitempty"`
}

// OutputInterpretHistogram is the output for the InterpretHistogram tool.
type OutputInterpretHistogram struct {
	Shots            int                `json:"shots"`
	Sites            []walk.SiteOutcome `json:"sites"`
	ErrorProbability float64            `json:"error_probability"`
	Entropy          walk.EntropyReport `json:"entropy"`
	PostSelected     bool               `json:"post_selected"`
}

// InterpretHistogram decodes and categorizes externally measured counts.
func InterpretHistogram(_ context.Context, _ *mcp.CallToolRequest, input InputInterpretHistogram) (*mcp.CallToolResult, OutputInterpretHistogram, error) {
	if len(input.Counts) == 0 {
		return nil, OutputInterpretHistogram{}, fmt.Errorf("counts are required")
	}

	occupancy := input.ExpectedOccupancy
	if occupancy == 0 {
		occupancy = walk.DefaultOccupancy
	}
	dist, err := walk.Decode(walk.Histogram(input.Counts), occupancy)
	if err != nil {
		return nil, OutputInterpretHistogram{}, err
	}

	labels := input.Labels
	if len(labels) == 0 {
		labels = make([]string, dist.Sites())
		for i := range labels {
			labels[i] = strconv.Itoa(i)
		}
	}

	exclude := true
	if input.ExcludeErrorBucket != nil {
		exclude = *input.ExcludeErrorBucket
	}
	var result walk.Result
	if input.PostSelect {
		result, err = walk.InterpretPostSelected(dist, labels)
	} else {
		result, err = walk.Interpret(dist, labels, exclude)
	}
	if err != nil {
		return nil, OutputInterpretHistogram{}, err
	}

	return nil, OutputInterpretHistogram{
		Shots:            result.Shots,
		Sites:            result.Sites,
		ErrorProbability: result.ErrorProbability,
		Entropy:          result.Entropy,
		PostSelected:     result.PostSelected,
	}, nil
}
