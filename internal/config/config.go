// SPDX-License-Identifier: Apache-2.0

// Package config loads run configuration from a YAML file, a .env file and
// the environment, and validates it against an embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalid reports a configuration rejected by validation.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables that override file values.
const (
	EnvBackend         = "HAZE_BACKEND"
	EnvLogLevel        = "HAZE_LOG_LEVEL"
	EnvHardwareURL     = "HAZE_HARDWARE_ENDPOINT"
	EnvHardwareKey     = "HAZE_HARDWARE_API_KEY"
	EnvHardwareKeyIonQ = "IONQ_API_KEY"
)

type Config struct {
	Log     LogConfig     `yaml:"log" json:"log"`
	Walk    WalkConfig    `yaml:"walk" json:"walk"`
	Backend BackendConfig `yaml:"backend" json:"backend"`
	Present PresentConfig `yaml:"present" json:"present"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
}

// WalkConfig describes the walk to run.
type WalkConfig struct {
	Sites               []walk.Site `yaml:"sites" json:"sites"`
	Steps               int         `yaml:"steps" json:"steps"`
	Start               int         `yaml:"start" json:"start"`
	CouplingDenominator float64     `yaml:"coupling_denominator" json:"coupling_denominator"`
	ExpectedOccupancy   int         `yaml:"expected_occupancy" json:"expected_occupancy"`
	ExcludeErrorBucket  bool        `yaml:"exclude_error_bucket" json:"exclude_error_bucket"`
	PostSelect          bool        `yaml:"post_select" json:"post_select"`
}

type BackendConfig struct {
	Kind      string         `yaml:"kind" json:"kind"`
	Shots     int            `yaml:"shots" json:"shots"`
	Seed      uint64         `yaml:"seed" json:"seed"`
	CacheSize int            `yaml:"cache_size" json:"cache_size"`
	Noise     float64        `yaml:"noise" json:"noise"`
	Hardware  HardwareConfig `yaml:"hardware" json:"hardware"`
	Retry     RetryConfig    `yaml:"retry" json:"retry"`
}

// HardwareConfig points at the remote job service. An empty endpoint leaves
// the hardware backend unregistered.
type HardwareConfig struct {
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	APIKey       string `yaml:"api_key" json:"api_key"`
	Target       string `yaml:"target" json:"target"`
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
}

// RetryConfig bounds retries of the hardware backend. One attempt disables
// retrying.
type RetryConfig struct {
	MaxAttempts    int    `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff string `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff" json:"max_backoff"`
}

type PresentConfig struct {
	LineLength int `yaml:"line_length" json:"line_length"`
	TopN       int `yaml:"top_n" json:"top_n"`
}

// Default returns the configuration used for fields a file leaves out.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Walk: WalkConfig{
			Steps:               1,
			CouplingDenominator: 10,
			ExpectedOccupancy:   walk.DefaultOccupancy,
			ExcludeErrorBucket:  true,
		},
		Backend: BackendConfig{
			Kind:      string(walk.BackendIdeal),
			Shots:     1024,
			CacheSize: 128,
			Noise:     0.001,
			Hardware: HardwareConfig{
				Target:       "simulator",
				PollInterval: "2s",
			},
			Retry: RetryConfig{
				MaxAttempts:    1,
				InitialBackoff: "1s",
				MaxBackoff:     "30s",
			},
		},
		Present: PresentConfig{LineLength: 10},
	}
}

// Load reads path (optional), applies environment overrides and validates
// the result.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Fields missing from data keep their values.
func Parse(data []byte, cfg *Config) error {
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) applyEnv() {
	if v := getEnv(EnvBackend, ""); v != "" {
		c.Backend.Kind = strings.ToLower(v)
	}
	if v := getEnv(EnvLogLevel, ""); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getEnv(EnvHardwareURL, ""); v != "" {
		c.Backend.Hardware.Endpoint = v
	}
	if v := getEnv(EnvHardwareKey, getEnv(EnvHardwareKeyIonQ, "")); v != "" {
		c.Backend.Hardware.APIKey = v
	}
}

// Validate checks the configuration against the schema and parses the
// duration fields.
func (c *Config) Validate() error {
	cctx := cuecontext.New()
	schema := cctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(cctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.TrimSpace(cueerrors.Details(err, nil)))
	}

	for name, d := range map[string]string{
		"backend.hardware.poll_interval": c.Backend.Hardware.PollInterval,
		"backend.retry.initial_backoff":  c.Backend.Retry.InitialBackoff,
		"backend.retry.max_backoff":      c.Backend.Retry.MaxBackoff,
	} {
		if _, err := parsePositiveDuration(d); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
		}
	}
	return nil
}

// Request converts the walk section into a pipeline request.
func (c *Config) Request() walk.Request {
	return walk.Request{
		Sites:               append([]walk.Site(nil), c.Walk.Sites...),
		Steps:               c.Walk.Steps,
		Start:               c.Walk.Start,
		CouplingDenominator: c.Walk.CouplingDenominator,
		Backend:             c.Backend.Kind,
		ExpectedOccupancy:   c.Walk.ExpectedOccupancy,
		ExcludeErrorBucket:  c.Walk.ExcludeErrorBucket,
		PostSelect:          c.Walk.PostSelect,
	}
}

// PollIntervalDuration returns the parsed hardware poll interval.
func (h HardwareConfig) PollIntervalDuration() time.Duration {
	d, _ := parsePositiveDuration(h.PollInterval)
	return d
}

// Backoff returns the parsed initial and maximum retry delays.
func (r RetryConfig) Backoff() (initial, maximum time.Duration) {
	initial, _ = parsePositiveDuration(r.InitialBackoff)
	maximum, _ = parsePositiveDuration(r.MaxBackoff)
	return initial, maximum
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
