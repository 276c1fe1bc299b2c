// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the bridge.
//
// Configuration starts from built-in defaults, optionally merges a
// single YAML file named by either the LASERBRIDGE_CONFIG environment
// variable (via [Load]) or a --config flag (via [LoadFile]), and
// finally applies the per-setting environment variables the
// deployment scripts already export: SERIAL_DEV, BAUD, WS_HOST,
// WS_PORT, POLL_HZ, and AUDIT_PATH. Later sources win. There is no
// ~/.config discovery and no automatic file search.
//
// Values with a safe operating range (the poll rate) are clamped
// rather than rejected, so a misconfigured deployment degrades to a
// conservative rate instead of refusing to start.
//
// Key exports:
//
//   - [Config] -- master struct with Serial, Server, Telemetry, Audit
//   - [Default] -- returns a Config with shipping defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other bridge packages.
package config
