// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel helpers for tests that coordinate
// goroutines: receive/send with a timeout safety valve, and an
// assertion that a channel stays silent.
package testutil
