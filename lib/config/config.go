// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that points at the YAML
// config file.
const EnvVar = "LASERBRIDGE_CONFIG"

// Poll rate bounds. The controller's shell gets unreliable above 5 Hz
// and the UI goes stale below 0.5 Hz.
const (
	MinPollHz = 0.5
	MaxPollHz = 5.0
)

// Config is the master configuration for the bridge.
type Config struct {
	// Serial configures the controller link.
	Serial SerialConfig `yaml:"serial"`

	// Server configures the WebSocket listener.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures the polling loops.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Audit configures the audit log.
	Audit AuditConfig `yaml:"audit"`
}

// SerialConfig configures the serial link to the controller.
type SerialConfig struct {
	// Device is the serial device path.
	// Default: /dev/ttyUSB0
	Device string `yaml:"device"`

	// Baud is the line rate. The controller ships at 115200.
	Baud int `yaml:"baud"`
}

// ServerConfig configures the WebSocket listener.
type ServerConfig struct {
	// Host is the bind address. Default 127.0.0.1; the bridge is not
	// meant to face the open network.
	Host string `yaml:"host"`

	// Port is the listen port.
	// Default: 8787
	Port int `yaml:"port"`
}

// TelemetryConfig configures the polling loops.
type TelemetryConfig struct {
	// PollHz is the status poll rate, clamped to [MinPollHz,
	// MaxPollHz]. Process and getall polls run at a quarter of this
	// rate. Default: 2.0
	PollHz float64 `yaml:"poll_hz"`
}

// AuditConfig configures the audit log.
type AuditConfig struct {
	// Path is the JSONL audit file. Parent directories are created on
	// startup. Default: /var/lib/laserbridge/audit.jsonl
	Path string `yaml:"path"`
}

// Default returns the shipping configuration.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Device: "/dev/ttyUSB0",
			Baud:   115200,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Telemetry: TelemetryConfig{
			PollHz: 2.0,
		},
		Audit: AuditConfig{
			Path: "/var/lib/laserbridge/audit.jsonl",
		},
	}
}

// Load builds the configuration from defaults, the optional file
// named by LASERBRIDGE_CONFIG, and the environment.
func Load() (*Config, error) {
	if path := os.Getenv(EnvVar); path != "" {
		return LoadFile(path)
	}
	cfg := Default()
	cfg.applyEnvironment()
	cfg.normalize()
	return cfg, nil
}

// LoadFile builds the configuration from defaults, the given YAML
// file, and the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnvironment()
	cfg.normalize()
	return cfg, nil
}

// applyEnvironment applies the per-setting environment variables. A
// variable that is set but unparsable is ignored; Validate catches a
// config left broken.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("SERIAL_DEV"); v != "" {
		c.Serial.Device = v
	}
	if v := os.Getenv("BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Serial.Baud = n
		}
	}
	if v := os.Getenv("WS_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("WS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("POLL_HZ"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Telemetry.PollHz = f
		}
	}
	if v := os.Getenv("AUDIT_PATH"); v != "" {
		c.Audit.Path = v
	}
}

// normalize clamps values that have a safe operating range instead of
// rejecting them.
func (c *Config) normalize() {
	if c.Telemetry.PollHz < MinPollHz {
		c.Telemetry.PollHz = MinPollHz
	}
	if c.Telemetry.PollHz > MaxPollHz {
		c.Telemetry.PollHz = MaxPollHz
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Serial.Device == "" {
		errs = append(errs, fmt.Errorf("serial.device is required"))
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}
	if c.Server.Host == "" {
		errs = append(errs, fmt.Errorf("server.host is required"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Audit.Path == "" {
		errs = append(errs, fmt.Errorf("audit.path is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
