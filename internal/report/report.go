// SPDX-License-Identifier: Apache-2.0

// Package report assembles and encodes the output of a run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hazeproj/haze-mcp/internal/present"
	"github.com/hazeproj/haze-mcp/internal/walk"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat maps a flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatMsgpack:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want json, yaml or msgpack)", s)
}

// Options controls the presentation part of a report.
type Options struct {
	LineLength int
	TopN       int
}

// Report is a run result together with its presentation data.
type Report struct {
	Result    walk.Result            `json:"result" yaml:"result" msgpack:"result"`
	Radial    present.RadialSeries   `json:"radial" yaml:"radial" msgpack:"radial"`
	Narrative present.NarrativeInput `json:"narrative" yaml:"narrative" msgpack:"narrative"`
	Prompt    string                 `json:"prompt" yaml:"prompt" msgpack:"prompt"`
}

// New builds the report for result.
func New(result walk.Result, opts Options) Report {
	narrative := present.Narrative(result, opts.TopN)
	return Report{
		Result:    result,
		Radial:    present.Radial(result, present.RadialOptions{LineLength: opts.LineLength}),
		Narrative: narrative,
		Prompt:    narrative.Prompt(),
	}
}

// Encode writes v to w in format f.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(v)
	}
	return fmt.Errorf("unsupported output format %q", f)
}
