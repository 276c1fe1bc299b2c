// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package arbiter owns the serial session. Every command, whether a
// telemetry poll or a client exec, passes through one FIFO queue and
// one worker goroutine, so the shell only ever sees strictly
// serialized transactions. The worker gates each command through the
// policy engine before it can touch hardware, routes successful output
// through the matching firmware parser, and writes exactly one audit
// record per command regardless of outcome.
//
// The session arrives through a dial function. When the link fails the
// worker drops the session and redials with exponential backoff;
// commands dequeued during an outage fail fast instead of queueing
// behind a dead port.
package arbiter
