// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source with real and fake
// implementations. The fake advances only under test control, which
// makes timeout and poll-cycle behavior deterministic to test.
package clock
