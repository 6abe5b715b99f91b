// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazeproj/haze-mcp/internal/report"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured walk once and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, log, err := root.load(cmd)
			if err != nil {
				return err
			}
			pipeline, err := buildPipeline(cfg, log)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(cmd.Context(), cfg.Request())
			if err != nil {
				return err
			}
			log.Info().
				Str("run_id", result.RunID).
				Str("backend", result.Backend).
				Str("entropy_category", string(result.Entropy.Category)).
				Msg("walk complete")

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer file.Close()
				w = file
			}
			r := report.New(result, report.Options{LineLength: cfg.Present.LineLength, TopN: cfg.Present.TopN})
			return report.Encode(w, f, r)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, yaml or msgpack")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the report to a file instead of stdout")
	return cmd
}
