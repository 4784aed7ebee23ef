// Package config loads and validates kernel configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/construct"
)

// Config holds kernel-wide configuration: logging, telemetry, the optional
// audit persistence layer, the agent transport subprocess, and the system
// resource limits construction validates node specs against.
type Config struct {
	// Operational settings.
	LogLevel string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool // Use HTTP instead of HTTPS for the OTEL exporter.
	ServiceName  string

	// Audit persistence. AuditDBPath empty disables the append log.
	AuditDBPath string

	// Agent transport: the subprocess this kernel speaks the agent protocol
	// to over stdio. AgentCommand empty means no transport is wired; callers
	// fall back to an in-process or test transport.
	AgentCommand    string
	AgentArgs       []string
	AgentRunTimeout time.Duration

	// System limits construction validates against. See construct.SystemLimits.
	MaxAutonomyCeiling string // parsed via capability level names: L0..L5
	MaxCPUMillis       uint64
	MaxMemoryBytes     uint64
	MaxTokenLimit      uint64
	MaxIterationCap    uint64
	MaxNodes           int
	MaxEdges           int

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if any environment variable contains an unparseable value.
// Missing variables use sensible defaults; only malformed values are rejected.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		LogLevel:           envStr("KERNEL_LOG_LEVEL", "info"),
		OTELEndpoint:       envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:        envStr("OTEL_SERVICE_NAME", "kernel"),
		AuditDBPath:        envStr("KERNEL_AUDIT_DB_PATH", ""),
		AgentCommand:       envStr("KERNEL_AGENT_COMMAND", ""),
		AgentArgs:          envStrSlice("KERNEL_AGENT_ARGS", nil),
		MaxAutonomyCeiling: envStr("KERNEL_MAX_AUTONOMY_CEILING", "L5"),
	}

	// Integer fields.
	var maxCPU, maxMem, maxTokens, maxIter int
	maxCPU, errs = collectInt(errs, "KERNEL_MAX_CPU_MILLIS", 600_000)
	maxMem, errs = collectInt(errs, "KERNEL_MAX_MEMORY_BYTES", 4<<30)
	maxTokens, errs = collectInt(errs, "KERNEL_MAX_TOKEN_LIMIT", 2_000_000)
	maxIter, errs = collectInt(errs, "KERNEL_MAX_ITERATION_CAP", 100_000)
	cfg.MaxCPUMillis = uint64(maxCPU)
	cfg.MaxMemoryBytes = uint64(maxMem)
	cfg.MaxTokenLimit = uint64(maxTokens)
	cfg.MaxIterationCap = uint64(maxIter)

	cfg.MaxNodes, errs = collectInt(errs, "KERNEL_MAX_NODES", 10_000)
	cfg.MaxEdges, errs = collectInt(errs, "KERNEL_MAX_EDGES", 100_000)

	// Boolean fields.
	cfg.OTELInsecure, errs = collectBool(errs, "OTEL_EXPORTER_OTLP_INSECURE", false)

	// Duration fields.
	cfg.AgentRunTimeout, errs = collectDuration(errs, "KERNEL_AGENT_RUN_TIMEOUT", 2*time.Minute)
	cfg.ShutdownTimeout, errs = collectDuration(errs, "KERNEL_SHUTDOWN_TIMEOUT", 10*time.Second)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid environment variables:\n  %s", strings.Join(msgs, "\n  "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// collectInt parses an int env var, appending any error to the accumulator.
func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectBool parses a bool env var, appending any error to the accumulator.
func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v, err := envBool(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectDuration parses a duration env var, appending any error to the accumulator.
func collectDuration(errs []error, key string, fallback time.Duration) (time.Duration, []error) {
	v, err := envDuration(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// Validate checks that configuration is internally sane.
func (c Config) Validate() error {
	var errs []error

	if c.MaxCPUMillis == 0 {
		errs = append(errs, errors.New("config: KERNEL_MAX_CPU_MILLIS must be positive"))
	}
	if c.MaxMemoryBytes == 0 {
		errs = append(errs, errors.New("config: KERNEL_MAX_MEMORY_BYTES must be positive"))
	}
	if c.MaxNodes <= 0 {
		errs = append(errs, errors.New("config: KERNEL_MAX_NODES must be positive"))
	}
	if c.MaxEdges <= 0 {
		errs = append(errs, errors.New("config: KERNEL_MAX_EDGES must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("config: KERNEL_SHUTDOWN_TIMEOUT must be positive"))
	}
	if _, err := c.autonomyLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.AgentCommand == "" && len(c.AgentArgs) > 0 {
		errs = append(errs, errors.New("config: KERNEL_AGENT_ARGS set without KERNEL_AGENT_COMMAND"))
	}

	return errors.Join(errs...)
}

// SystemLimits translates the configured bounds into the limits construction
// validates node specs against.
func (c Config) SystemLimits() (construct.SystemLimits, error) {
	level, err := c.autonomyLevel()
	if err != nil {
		return construct.SystemLimits{}, err
	}
	return construct.SystemLimits{
		MaxAutonomy: level,
		MaxResources: capability.ResourceCaps{
			CPUMillis:    c.MaxCPUMillis,
			MemoryBytes:  c.MaxMemoryBytes,
			TokenLimit:   c.MaxTokenLimit,
			IterationCap: c.MaxIterationCap,
		},
		MaxNodes: c.MaxNodes,
		MaxEdges: c.MaxEdges,
	}, nil
}

var autonomyLevelNames = map[string]capability.AutonomyLevel{
	"L0": capability.L0,
	"L1": capability.L1,
	"L2": capability.L2,
	"L3": capability.L3,
	"L4": capability.L4,
	"L5": capability.L5,
}

func (c Config) autonomyLevel() (capability.AutonomyLevel, error) {
	level, ok := autonomyLevelNames[strings.ToUpper(c.MaxAutonomyCeiling)]
	if !ok {
		return 0, fmt.Errorf("config: KERNEL_MAX_AUTONOMY_CEILING %q is not one of L0..L5", c.MaxAutonomyCeiling)
	}
	return level, nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

// envStrSlice reads a comma-separated env var into a string slice.
// Returns fallback if the env var is empty or unset.
func envStrSlice(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
