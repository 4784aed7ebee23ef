package config

import (
	"testing"
	"time"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	// TEST_INT_MISSING is not set.
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
	if got := err.Error(); got != `TEST_INT_BAD="abc" is not a valid integer` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvBoolValid(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	v, err := envBool("TEST_BOOL", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v {
		t.Fatal("expected true")
	}
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err := envBool("TEST_BOOL_BAD", false)
	if err == nil {
		t.Fatal("expected error for non-boolean value, got nil")
	}
	if got := err.Error(); got != `TEST_BOOL_BAD="maybe" is not a valid boolean` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DURATION", "5s")
	v, err := envDuration("TEST_DURATION", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5*time.Second {
		t.Fatalf("expected 5s, got %s", v)
	}
}

func TestEnvStrSliceSplitsAndTrims(t *testing.T) {
	t.Setenv("TEST_SLICE", "a, b ,c")
	got := envStrSlice("TEST_SLICE", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default LogLevel info, got %q", cfg.LogLevel)
	}
	if cfg.MaxAutonomyCeiling != "L5" {
		t.Fatalf("expected default MaxAutonomyCeiling L5, got %q", cfg.MaxAutonomyCeiling)
	}
	if cfg.MaxNodes != 10_000 {
		t.Fatalf("expected default MaxNodes 10000, got %d", cfg.MaxNodes)
	}
	limits, err := cfg.SystemLimits()
	if err != nil {
		t.Fatalf("unexpected SystemLimits error: %v", err)
	}
	if limits.MaxNodes != cfg.MaxNodes {
		t.Fatalf("SystemLimits did not carry MaxNodes through")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KERNEL_LOG_LEVEL", "debug")
	t.Setenv("OTEL_SERVICE_NAME", "kernel-test")
	t.Setenv("KERNEL_AUDIT_DB_PATH", "/tmp/kernel-audit.db")
	t.Setenv("KERNEL_AGENT_COMMAND", "agent-runner")
	t.Setenv("KERNEL_AGENT_ARGS", "--stdio, --verbose")
	t.Setenv("KERNEL_MAX_AUTONOMY_CEILING", "l3")
	t.Setenv("KERNEL_MAX_NODES", "50")
	t.Setenv("KERNEL_SHUTDOWN_TIMEOUT", "15s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected LogLevel debug, got %q", cfg.LogLevel)
	}
	if cfg.ServiceName != "kernel-test" {
		t.Fatalf("expected ServiceName kernel-test, got %q", cfg.ServiceName)
	}
	if cfg.AuditDBPath != "/tmp/kernel-audit.db" {
		t.Fatalf("expected AuditDBPath override, got %q", cfg.AuditDBPath)
	}
	if len(cfg.AgentArgs) != 2 || cfg.AgentArgs[0] != "--stdio" || cfg.AgentArgs[1] != "--verbose" {
		t.Fatalf("expected 2 trimmed agent args, got %v", cfg.AgentArgs)
	}
	if cfg.MaxNodes != 50 {
		t.Fatalf("expected MaxNodes 50, got %d", cfg.MaxNodes)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Fatalf("expected ShutdownTimeout 15s, got %s", cfg.ShutdownTimeout)
	}

	limits, err := cfg.SystemLimits()
	if err != nil {
		t.Fatalf("unexpected SystemLimits error: %v", err)
	}
	if limits.MaxAutonomy != 3 { // capability.L3
		t.Fatalf("expected MaxAutonomy L3, got %v", limits.MaxAutonomy)
	}
}

func TestLoadRejectsUnknownAutonomyCeiling(t *testing.T) {
	t.Setenv("KERNEL_MAX_AUTONOMY_CEILING", "L9")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid autonomy ceiling, got nil")
	}
}

func TestLoadRejectsAgentArgsWithoutCommand(t *testing.T) {
	t.Setenv("KERNEL_AGENT_ARGS", "--stdio")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for agent args without a command, got nil")
	}
}
