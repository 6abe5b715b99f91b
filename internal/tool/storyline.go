// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazeproj/haze-mcp/internal/present"
)

// MetadataSplitStoryline describes the split_storyline tool.
var MetadataSplitStoryline = &mcp.Tool{
	Name: "split_storyline",
	Description: "Split a story generated from a run_quantum_walk prompt into image prompts, " +
		"one per line. Blank and short lines are dropped.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"text"},
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Generated story text",
			},
			"min_length": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Lines of this many characters or fewer are dropped. Defaults to %d.", present.DefaultMinLineLength),
				"minimum":     0,
			},
		},
	},
}

// InputSplitStoryline is the input for the SplitStoryline tool.
type InputSplitStoryline struct {
	Text      string `json:"text"`
	MinLength int    `json:"min_length,omitempty"`
}

// OutputSplitStoryline is the output for the SplitStoryline tool.
type OutputSplitStoryline struct {
	Prompts []string `json:"prompts"`
}

// SplitStoryline turns generated prose into per-line image prompts.
func SplitStoryline(_ context.Context, _ *mcp.CallToolRequest, input InputSplitStoryline) (*mcp.CallToolResult, OutputSplitStoryline, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, OutputSplitStoryline{}, fmt.Errorf("text is required")
	}
	prompts := present.SplitStoryline(input.Text, input.MinLength)
	if prompts == nil {
		prompts = []string{}
	}
	return nil, OutputSplitStoryline{Prompts: prompts}, nil
}
