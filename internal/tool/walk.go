// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazeproj/haze-mcp/internal/config"
	"github.com/hazeproj/haze-mcp/internal/present"
	"github.com/hazeproj/haze-mcp/internal/report"
	"github.com/hazeproj/haze-mcp/internal/walk"
)

var siteSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"label"},
	"properties": map[string]interface{}{
		"label": map[string]interface{}{
			"type":        "string",
			"description": "Display name of the site",
		},
		"weight": map[string]interface{}{
			"type":        "number",
			"description": "Local phase weight of the site. The start site's weight is ignored.",
		},
	},
}

// MetadataRunQuantumWalk describes the run_quantum_walk tool.
var MetadataRunQuantumWalk = &mcp.Tool{
	Name: "run_quantum_walk",
	Description: "Run a discrete-time quantum walk over a ring of labeled sites and interpret the " +
		"measured distribution. Returns the probability and likelihood category of every site, the " +
		"share of invalid measurements, a normalized entropy with its category, a radial chart " +
		"series and the input for generating a narrative about the walk. " +
		"Backends: ideal (exact simulation), noisy (depolarizing noise), hardware (remote service, " +
		"only when configured).",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"sites"},
		"properties": map[string]interface{}{
			"sites": map[string]interface{}{
				"type":        "array",
				"description": "Sites in ring order. At least two.",
				"minItems":    2,
				"items":       siteSchema,
			},
			"steps": map[string]interface{}{
				"type":        "integer",
				"description": "Number of walk steps. Defaults to the server configuration.",
				"minimum":     0,
			},
			"start": map[string]interface{}{
				"type":        "integer",
				"description": "Index of the site the walker starts at.",
				"minimum":     0,
			},
			"coupling_denominator": map[string]interface{}{
				"type":        "number",
				"description": "The hopping strength is pi divided by this value. Defaults to the server configuration.",
			},
			"backend": map[string]interface{}{
				"type":        "string",
				"description": "Execution backend. Defaults to the server configuration.",
				"enum":        []string{"ideal", "noisy", "hardware"},
			},
			"exclude_error_bucket": map[string]interface{}{
				"type":        "boolean",
				"description": "Compute the entropy over the sites only, leaving out invalid measurements.",
			},
			"post_select": map[string]interface{}{
				"type":        "boolean",
				"description": "Renormalize site probabilities over valid measurements only.",
			},
			"top_n": map[string]interface{}{
				"type":        "integer",
				"description": "Number of sites mentioned in the narrative input. 0 mentions every site that is not absent.",
				"minimum":     0,
			},
		},
	},
}

// InputRunQuantumWalk is the input for the RunQuantumWalk tool. Optional
// fields fall back to the server configuration.
type InputRunQuantumWalk struct {
	Sites               []walk.Site `json:"sites"`
	Steps               *int        `json:"steps,omitempty"`
	Start               int         `json:"start"`
	CouplingDenominator *float64    `json:"coupling_denominator,omitempty"`
	Backend             string      `json:"backend,omitempty"`
	ExcludeErrorBucket  *bool       `json:"exclude_error_bucket,omitempty"`
	PostSelect          *bool       `json:"post_select,omitempty"`
	TopN                *int        `json:"top_n,omitempty"`
}

// OutputRunQuantumWalk is the output for the RunQuantumWalk tool.
type OutputRunQuantumWalk struct {
	RunID   string `json:"run_id"`
	Backend string `json:"backend"`
	Shots   int    `json:"shots"`
	// Sites lists every site in input order with its probability and likelihood.
	Sites []walk.SiteOutcome `json:"sites"`
	// ErrorProbability is the share of shots with no or several walkers.
	ErrorProbability float64                `json:"error_probability"`
	Entropy          walk.EntropyReport     `json:"entropy"`
	PostSelected     bool                   `json:"post_selected"`
	Radial           present.RadialSeries   `json:"radial"`
	Narrative        present.NarrativeInput `json:"narrative"`
	Prompt           string                 `json:"prompt"`
}

// RunQuantumWalk handles run_quantum_walk calls on a shared pipeline.
type RunQuantumWalk struct {
	pipeline *walk.Pipeline
	defaults *config.Config
}

// NewRunQuantumWalk binds the tool to pipeline, filling omitted inputs
// from defaults.
func NewRunQuantumWalk(pipeline *walk.Pipeline, defaults *config.Config) *RunQuantumWalk {
	if defaults == nil {
		defaults = config.Default()
	}
	return &RunQuantumWalk{pipeline: pipeline, defaults: defaults}
}

// Handle runs the walk described by input.
func (t *RunQuantumWalk) Handle(ctx context.Context, _ *mcp.CallToolRequest, input InputRunQuantumWalk) (*mcp.CallToolResult, OutputRunQuantumWalk, error) {
	if len(input.Sites) == 0 {
		return nil, OutputRunQuantumWalk{}, fmt.Errorf("sites are required")
	}

	req := t.request(input)
	result, err := t.pipeline.Run(ctx, req)
	if err != nil {
		return nil, OutputRunQuantumWalk{}, err
	}

	topN := t.defaults.Present.TopN
	if input.TopN != nil {
		topN = *input.TopN
	}
	r := report.New(result, report.Options{LineLength: t.defaults.Present.LineLength, TopN: topN})

	return nil, OutputRunQuantumWalk{
		RunID:            result.RunID,
		Backend:          result.Backend,
		Shots:            result.Shots,
		Sites:            result.Sites,
		ErrorProbability: result.ErrorProbability,
		Entropy:          result.Entropy,
		PostSelected:     result.PostSelected,
		Radial:           r.Radial,
		Narrative:        r.Narrative,
		Prompt:           r.Prompt,
	}, nil
}

func (t *RunQuantumWalk) request(input InputRunQuantumWalk) walk.Request {
	req := t.defaults.Request()
	req.Sites = input.Sites
	req.Start = input.Start
	if input.Steps != nil {
		req.Steps = *input.Steps
	}
	if input.CouplingDenominator != nil {
		req.CouplingDenominator = *input.CouplingDenominator
	}
	if input.Backend != "" {
		req.Backend = input.Backend
	}
	if input.ExcludeErrorBucket != nil {
		req.ExcludeErrorBucket = *input.ExcludeErrorBucket
	}
	if input.PostSelect != nil {
		req.PostSelect = *input.PostSelect
	}
	return req
}
