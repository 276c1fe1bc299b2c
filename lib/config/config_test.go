// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearBridgeEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvVar, "SERIAL_DEV", "BAUD", "WS_HOST", "WS_PORT", "POLL_HZ", "AUDIT_PATH"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Serial.Device != "/dev/ttyUSB0" {
		t.Errorf("expected serial.device=/dev/ttyUSB0, got %s", cfg.Serial.Device)
	}
	if cfg.Serial.Baud != 115200 {
		t.Errorf("expected serial.baud=115200, got %d", cfg.Serial.Baud)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected server.host=127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("expected server.port=8787, got %d", cfg.Server.Port)
	}
	if cfg.Telemetry.PollHz != 2.0 {
		t.Errorf("expected telemetry.poll_hz=2.0, got %v", cfg.Telemetry.PollHz)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_WithoutFileUsesDefaults(t *testing.T) {
	clearBridgeEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serial.Device != "/dev/ttyUSB0" {
		t.Errorf("expected default serial device, got %s", cfg.Serial.Device)
	}
}

func TestLoadFile(t *testing.T) {
	clearBridgeEnv(t)

	configPath := filepath.Join(t.TempDir(), "laserbridge.yaml")
	content := `
serial:
  device: /dev/ttyS1
  baud: 9600
server:
  host: 0.0.0.0
  port: 9999
telemetry:
  poll_hz: 3.5
audit:
  path: /tmp/audit.jsonl
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Serial.Device != "/dev/ttyS1" {
		t.Errorf("serial.device = %s, want /dev/ttyS1", cfg.Serial.Device)
	}
	if cfg.Serial.Baud != 9600 {
		t.Errorf("serial.baud = %d, want 9600", cfg.Serial.Baud)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Telemetry.PollHz != 3.5 {
		t.Errorf("telemetry.poll_hz = %v, want 3.5", cfg.Telemetry.PollHz)
	}
	if cfg.Audit.Path != "/tmp/audit.jsonl" {
		t.Errorf("audit.path = %s, want /tmp/audit.jsonl", cfg.Audit.Path)
	}
}

func TestLoadFile_PartialFileKeepsDefaults(t *testing.T) {
	clearBridgeEnv(t)

	configPath := filepath.Join(t.TempDir(), "laserbridge.yaml")
	if err := os.WriteFile(configPath, []byte("serial:\n  device: /dev/ttyACM0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Serial.Device != "/dev/ttyACM0" {
		t.Errorf("serial.device = %s, want /dev/ttyACM0", cfg.Serial.Device)
	}
	if cfg.Serial.Baud != 115200 {
		t.Errorf("serial.baud = %d, want default 115200", cfg.Serial.Baud)
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("server.port = %d, want default 8787", cfg.Server.Port)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearBridgeEnv(t)
	t.Setenv("SERIAL_DEV", "/dev/ttyS1")
	t.Setenv("BAUD", "9600")
	t.Setenv("WS_HOST", "0.0.0.0")
	t.Setenv("WS_PORT", "9999")
	t.Setenv("POLL_HZ", "3.5")
	t.Setenv("AUDIT_PATH", "/tmp/audit.jsonl")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serial.Device != "/dev/ttyS1" {
		t.Errorf("serial.device = %s, want /dev/ttyS1", cfg.Serial.Device)
	}
	if cfg.Serial.Baud != 9600 {
		t.Errorf("serial.baud = %d, want 9600", cfg.Serial.Baud)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Telemetry.PollHz != 3.5 {
		t.Errorf("telemetry.poll_hz = %v, want 3.5", cfg.Telemetry.PollHz)
	}
	if cfg.Audit.Path != "/tmp/audit.jsonl" {
		t.Errorf("audit.path = %s, want /tmp/audit.jsonl", cfg.Audit.Path)
	}
}

func TestPollHzClampsLow(t *testing.T) {
	clearBridgeEnv(t)
	t.Setenv("POLL_HZ", "0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telemetry.PollHz != MinPollHz {
		t.Errorf("telemetry.poll_hz = %v, want clamped to %v", cfg.Telemetry.PollHz, MinPollHz)
	}
}

func TestPollHzClampsHigh(t *testing.T) {
	clearBridgeEnv(t)
	t.Setenv("POLL_HZ", "10.0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telemetry.PollHz != MaxPollHz {
		t.Errorf("telemetry.poll_hz = %v, want clamped to %v", cfg.Telemetry.PollHz, MaxPollHz)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Serial.Device = ""
	cfg.Server.Port = 0
	cfg.Audit.Path = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"serial.device", "server.port", "audit.path"} {
		if !strings.Contains(msg, want) {
			t.Errorf("validation error %q does not mention %s", msg, want)
		}
	}
}
