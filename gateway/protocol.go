// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"github.com/lydia-systems/laserbridge/lib/codec"
	"github.com/lydia-systems/laserbridge/telemetry"
)

// clientMessage is any inbound frame. Type routes it; the other
// fields are populated per type. The id is kept raw so whatever the
// client sent (string, integer) is echoed back verbatim.
type clientMessage struct {
	Type string           `cbor:"type"`
	ID   codec.RawMessage `cbor:"id,omitempty"`
	Cmd  string           `cbor:"cmd,omitempty"`
}

// ackMessage answers a subscribe.
type ackMessage struct {
	Type string `cbor:"type"`
	Op   string `cbor:"op"`
}

// errorMessage reports a protocol-level problem to one connection.
type errorMessage struct {
	Type  string `cbor:"type"`
	Error string `cbor:"error"`
}

// resultMessage is the terminal answer to one exec.
type resultMessage struct {
	Type      string           `cbor:"type"`
	ID        codec.RawMessage `cbor:"id,omitempty"`
	OK        bool             `cbor:"ok"`
	Stdout    string           `cbor:"stdout,omitempty"`
	Parsed    any              `cbor:"parsed,omitempty"`
	LatencyMS int64            `cbor:"latency_ms,omitempty"`
	TSMS      int64            `cbor:"ts_ms,omitempty"`
	Error     string           `cbor:"error,omitempty"`
	Reason    string           `cbor:"reason,omitempty"`
}

// eventMessage wraps a telemetry event for the wire.
type eventMessage struct {
	Type      string `cbor:"type"`
	Name      string `cbor:"name"`
	TSMS      int64  `cbor:"ts_ms"`
	LatencyMS int64  `cbor:"latency_ms,omitempty"`
	Parsed    any    `cbor:"parsed,omitempty"`
	Error     string `cbor:"error,omitempty"`
}

func eventToWire(e telemetry.Event) eventMessage {
	return eventMessage{
		Type:      "event",
		Name:      e.Name,
		TSMS:      e.TSMS,
		LatencyMS: e.LatencyMS,
		Parsed:    e.Parsed,
		Error:     e.Error,
	}
}
