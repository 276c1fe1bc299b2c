// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package policy is the authorization gate between remote clients and
// the laser controller. Every command line, whether it comes from a
// WebSocket client or the telemetry poller, passes through Evaluate
// before it may reach the serial link.
//
// The verb tables are static and exhaustively enumerable: a verb is
// blocked, a read-only getter, a validated setter, or unknown (and
// unknown means denied). There is no dynamic dispatch and no way to
// reach the hardware around these tables.
package policy
