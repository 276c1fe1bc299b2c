// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package codec wraps the CBOR library with the bridge's standard
// encoder and decoder configuration. The wire protocol and the
// telemetry fingerprints both go through this package, so consumers
// never import the CBOR library directly.
package codec
