// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

const (
	circuitFormat       = "ionq.circuit.v0"
	defaultPollInterval = 2 * time.Second
	defaultHTTPTimeout  = 30 * time.Second
)

// HardwareConfig configures the remote execution service.
type HardwareConfig struct {
	Endpoint     string
	APIKey       string
	Target       string
	Shots        int
	PollInterval time.Duration
}

// HardwareBackend submits circuits to a remote job service and waits for
// the measured histogram. Failures are reported as walk.ErrBackendUnavailable
// and never retried here.
type HardwareBackend struct {
	cfg        HardwareConfig
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHardwareBackend creates a backend for the job service at cfg.Endpoint.
func NewHardwareBackend(cfg HardwareConfig, log zerolog.Logger) (*HardwareBackend, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("hardware endpoint is required")
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Target == "" {
		cfg.Target = "simulator"
	}
	if cfg.Shots <= 0 {
		cfg.Shots = DefaultShots
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &HardwareBackend{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		log:        log.With().Str("component", "hardware").Str("target", cfg.Target).Logger(),
	}, nil
}

func (b *HardwareBackend) Kind() walk.BackendKind {
	return walk.BackendHardware
}

func (b *HardwareBackend) Name() string {
	return "hardware:" + b.cfg.Target
}

type gatePayload struct {
	Gate     string   `json:"gate"`
	Targets  []int    `json:"targets"`
	Rotation *float64 `json:"rotation,omitempty"`
}

type circuitPayload struct {
	Format  string        `json:"format"`
	Qubits  int           `json:"qubits"`
	Circuit []gatePayload `json:"circuit"`
}

type jobRequest struct {
	Target string         `json:"target"`
	Shots  int            `json:"shots"`
	Input  circuitPayload `json:"input"`
}

type jobFailure struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type jobStatus struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"`
	Shots   int         `json:"shots"`
	Failure *jobFailure `json:"failure,omitempty"`
}

var serviceGateNames = map[walk.GateOp]string{
	walk.OpX:   "x",
	walk.OpRZ:  "rz",
	walk.OpRXX: "xx",
	walk.OpRYY: "yy",
}

// serializeCircuit converts the gate program into the service's JSON form.
func serializeCircuit(spec walk.CircuitSpec) (circuitPayload, error) {
	gates := spec.Gates()
	out := make([]gatePayload, 0, len(gates))
	for _, g := range gates {
		name, ok := serviceGateNames[g.Op]
		if !ok {
			return circuitPayload{}, fmt.Errorf("%w: gate %q has no remote equivalent", walk.ErrInvalidSpec, g.Op)
		}
		p := gatePayload{Gate: name, Targets: g.Qubits}
		if g.Op != walk.OpX {
			theta := g.Theta
			p.Rotation = &theta
		}
		out = append(out, p)
	}
	return circuitPayload{Format: circuitFormat, Qubits: spec.Sites(), Circuit: out}, nil
}

func (b *HardwareBackend) Execute(ctx context.Context, spec walk.CircuitSpec) (walk.Histogram, error) {
	circuit, err := serializeCircuit(spec)
	if err != nil {
		return nil, err
	}

	var submitted jobStatus
	req := jobRequest{Target: b.cfg.Target, Shots: b.cfg.Shots, Input: circuit}
	if err := b.doJSON(ctx, http.MethodPost, "/jobs", req, &submitted); err != nil {
		return nil, err
	}
	if submitted.ID == "" {
		return nil, fmt.Errorf("%w: job submission returned no id", walk.ErrBackendUnavailable)
	}
	log := b.log.With().Str("job_id", submitted.ID).Logger()
	log.Info().Int("qubits", circuit.Qubits).Int("gates", len(circuit.Circuit)).Msg("job submitted")

	for {
		var st jobStatus
		if err := b.doJSON(ctx, http.MethodGet, "/jobs/"+submitted.ID, nil, &st); err != nil {
			return nil, err
		}
		switch st.Status {
		case "completed":
			shots := st.Shots
			if shots <= 0 {
				shots = b.cfg.Shots
			}
			hist, err := b.results(ctx, submitted.ID, spec.Sites(), shots)
			if err != nil {
				return nil, err
			}
			log.Info().Int("outcomes", len(hist)).Msg("job completed")
			return hist, nil
		case "failed", "canceled":
			reason := st.Status
			if st.Failure != nil && st.Failure.Error != "" {
				reason = st.Failure.Error
			}
			return nil, fmt.Errorf("%w: job %s %s: %s", walk.ErrBackendUnavailable, submitted.ID, st.Status, reason)
		}

		log.Debug().Str("status", st.Status).Msg("waiting for job")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for job %s: %w", submitted.ID, ctx.Err())
		case <-time.After(b.cfg.PollInterval):
		}
	}
}

// results fetches the job output. The service may report bitstring counts
// under "counts", or probabilities keyed by decimal basis-state index which
// are scaled by the shots it ran.
func (b *HardwareBackend) results(ctx context.Context, id string, sites, shots int) (walk.Histogram, error) {
	var raw map[string]json.RawMessage
	if err := b.doJSON(ctx, http.MethodGet, "/jobs/"+id+"/results", nil, &raw); err != nil {
		return nil, err
	}

	if countsRaw, ok := raw["counts"]; ok {
		var counts map[string]int
		if err := json.Unmarshal(countsRaw, &counts); err != nil {
			return nil, fmt.Errorf("%w: malformed counts: %w", walk.ErrBackendUnavailable, err)
		}
		return walk.Histogram(counts), nil
	}

	hist := make(walk.Histogram)
	for key, value := range raw {
		state, err := strconv.Atoi(key)
		if err != nil || state < 0 || state >= 1<<sites {
			return nil, fmt.Errorf("%w: unexpected result state %q", walk.ErrBackendUnavailable, key)
		}
		var p float64
		if err := json.Unmarshal(value, &p); err != nil {
			return nil, fmt.Errorf("%w: malformed probability for state %q: %w", walk.ErrBackendUnavailable, key, err)
		}
		if c := int(math.Round(p * float64(shots))); c > 0 {
			hist[bitstring(state, sites)] += c
		}
	}
	if len(hist) == 0 {
		return nil, fmt.Errorf("%w: job %s returned no outcomes", walk.ErrBackendUnavailable, id)
	}
	return hist, nil
}

// doJSON performs one request against the service. It never retries.
func (b *HardwareBackend) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.cfg.Endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "apiKey "+b.cfg.APIKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", walk.ErrBackendUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %s: status %d: %s", walk.ErrBackendUnavailable, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", walk.ErrBackendUnavailable, err)
	}
	return nil
}
