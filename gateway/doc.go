// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the WebSocket face of the bridge. Every frame in
// both directions is a binary CBOR map routed by its "type" field.
// Each connection becomes a subscriber with a bounded outbound queue
// and its own writer goroutine; telemetry events fan out to every
// subscriber, exec results go back to the requester only, and a
// subscriber that cannot keep up is disconnected rather than allowed
// to stall the rest.
package gateway
