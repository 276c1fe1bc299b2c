// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package arbiter

// Source identifies who submitted a command. It shows up in audit
// records and nowhere else.
type Source string

const (
	// SourcePoller marks telemetry polls.
	SourcePoller Source = "poller"
	// SourceClient marks WebSocket exec requests.
	SourceClient Source = "client"
)

// Command is one unit of work for the worker: a raw shell line plus
// its origin.
type Command struct {
	Line   string
	Source Source
}

// Result is the terminal outcome of one Command. Exactly one Result
// is produced per submitted Command.
type Result struct {
	// OK is true when the command reached the shell, completed before
	// the deadline, and (for verbs with a parser) parsed cleanly.
	OK bool

	// Stdout is the raw shell output, echo and prompt included. Set
	// whenever a transaction completed, even if parsing then failed.
	Stdout string

	// Parsed is the structured decoding for verbs that have one:
	// *firmware.StatusSnapshot, *firmware.ProcessParams, or
	// firmware.GetAllSnapshot. Nil for other verbs.
	Parsed any

	// Error is the user-visible failure text when OK is false.
	Error string

	// Reason carries the policy reason for denied commands.
	Reason string

	// LatencyMS is wall-clock dequeue-to-response time.
	LatencyMS int64

	// TSMS is when the worker started on the command, in Unix
	// milliseconds.
	TSMS int64
}
