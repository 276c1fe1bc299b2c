// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package telemetry polls the controller through the arbiter and
// turns the answers into a stream of events. Three loops run
// side by side: status at the configured rate, process parameters and
// getall each at a quarter of it. Every successful status cycle emits
// a heartbeat; data events are emitted only when the parsed snapshot
// actually changed, detected by a BLAKE3 fingerprint over its
// deterministic binary encoding. A failed cycle emits the matching
// *_error event and leaves the stored fingerprint alone, so the next
// good poll is diffed against the last good one.
package telemetry
