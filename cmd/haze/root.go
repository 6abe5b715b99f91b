// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hazeproj/haze-mcp/internal/config"
	"github.com/hazeproj/haze-mcp/internal/logger"
	"github.com/hazeproj/haze-mcp/internal/walk"
	"github.com/hazeproj/haze-mcp/internal/walk/backends"
)

var version = "dev"

type rootOptions struct {
	configPath string
	backend    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "haze",
		Short:         "Quantum walks over labeled sites, interpreted",
		Version:       version,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the walk configuration (YAML)")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "backend override: ideal, noisy or hardware")

	cmd.AddCommand(newRunCmd(opts), newServeCmd(opts))
	return cmd
}

// load reads the configuration and builds the logger for a command.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if o.backend != "" {
		cfg.Backend.Kind = o.backend
		if err := cfg.Validate(); err != nil {
			return nil, zerolog.Nop(), err
		}
	}
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, log, nil
}

// buildPipeline registers the simulators and, when an endpoint is
// configured, the hardware backend behind the configured retry policy.
func buildPipeline(cfg *config.Config, log zerolog.Logger) (*walk.Pipeline, error) {
	sim := backends.SimulatorConfig{
		Shots:     cfg.Backend.Shots,
		Seed:      cfg.Backend.Seed,
		CacheSize: cfg.Backend.CacheSize,
	}
	ideal, err := backends.NewIdealBackend(sim, log)
	if err != nil {
		return nil, err
	}
	noisy, err := backends.NewNoisyBackend(sim, cfg.Backend.Noise, log)
	if err != nil {
		return nil, err
	}
	registered := []walk.Backend{ideal, noisy}

	if hw := cfg.Backend.Hardware; hw.Endpoint != "" {
		hardware, err := backends.NewHardwareBackend(backends.HardwareConfig{
			Endpoint:     hw.Endpoint,
			APIKey:       hw.APIKey,
			Target:       hw.Target,
			Shots:        cfg.Backend.Shots,
			PollInterval: hw.PollIntervalDuration(),
		}, log)
		if err != nil {
			return nil, err
		}
		initial, maximum := cfg.Backend.Retry.Backoff()
		registered = append(registered, backends.WithRetry(hardware, backends.RetryPolicy{
			MaxAttempts: cfg.Backend.Retry.MaxAttempts,
			Strategy:    backends.ExponentialBackoff{Initial: initial, Max: maximum},
		}, log))
	}

	return walk.NewPipeline(registered, walk.WithLogger(log)), nil
}
