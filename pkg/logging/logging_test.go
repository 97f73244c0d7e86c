package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo}, // Default for unknown
	}

	for _, test := range tests {
		result := test.level.SlogLevel()
		if result != test.expected {
			t.Errorf("LogLevel(%d).SlogLevel() = %v, expected %v", test.level, result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"  error  ", LevelError},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}

	for _, test := range tests {
		result := ParseLevel(test.input)
		if result != test.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", test.input, result, test.expected)
		}
	}
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	if defaultLogger == nil {
		t.Error("Expected defaultLogger to be set after InitForCLI")
	}

	Info("test-subsystem", "test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("Expected log message to appear in CLI output")
	}

	if !strings.Contains(output, "test-subsystem") {
		t.Error("Expected subsystem to appear in CLI output")
	}
}

func TestInitForDaemonEmitsJSON(t *testing.T) {
	var buf bytes.Buffer

	InitForDaemon(LevelInfo, &buf)
	Info("gateway", "listening on %s", ":8090")

	output := buf.String()
	if !strings.Contains(output, `"subsystem":"gateway"`) {
		t.Errorf("Expected JSON subsystem attribute, got: %s", output)
	}
	if !strings.Contains(output, "listening on :8090") {
		t.Errorf("Expected formatted message in output, got: %s", output)
	}
}

func TestCLILevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)

	// Debug should be filtered out
	Debug("test", "debug message")

	// Info should appear
	Info("test", "info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out at INFO level")
	}

	if !strings.Contains(output, "info message") {
		t.Error("Info message should appear at INFO level")
	}
}

func TestErrorIncludesErrAttribute(t *testing.T) {
	var buf bytes.Buffer

	InitForCLI(LevelInfo, &buf)
	Error("deployer", errors.New("build exploded"), "deploy failed for %s", "demo-plugin")

	output := buf.String()
	if !strings.Contains(output, "build exploded") {
		t.Error("Expected error detail in output")
	}
	if !strings.Contains(output, "deploy failed for demo-plugin") {
		t.Error("Expected formatted message in output")
	}
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer

	InitForDaemon(LevelInfo, &buf)
	Audit(AuditEvent{
		Action:  "deploy",
		Outcome: "succeeded",
		Actor:   "3f6c9a",
		Target:  "weather-tools",
	})

	output := buf.String()
	if !strings.Contains(output, "[AUDIT] deploy") {
		t.Errorf("Expected [AUDIT] prefix, got: %s", output)
	}
	if !strings.Contains(output, `"actor":"3f6c9a"`) {
		t.Errorf("Expected actor fingerprint attribute, got: %s", output)
	}
	if !strings.Contains(output, `"target":"weather-tools"`) {
		t.Errorf("Expected target attribute, got: %s", output)
	}
}
