// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package audit appends one JSON record per line to a local audit
// file. Logging is non-blocking: records pass through a bounded queue
// to a single writer goroutine, and when the queue is full new records
// are counted and dropped instead of stalling the command path. Lines
// are plain JSON rather than the wire's binary encoding so operators
// can grep the file directly.
package audit
