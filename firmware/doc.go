// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package firmware decodes the free-text output of the controller's
// MSH shell into structured snapshots. The firmware prints
// semi-structured key:value dumps whose exact layout varies between
// versions, so every parser here is total and best-effort: each field
// is extracted independently, absence of one field never fails the
// whole parse, and unrecognized data is preserved rather than dropped.
// A parser returns an error only when the input contains nothing of
// the expected shape at all.
package firmware
