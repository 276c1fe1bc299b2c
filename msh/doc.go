// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

// Package msh speaks the controller's MSH serial shell. A Session owns
// the serial stream and serializes command exchanges against it: every
// transaction resynchronizes to a fresh "msh >" prompt, sends one
// line, and collects output until the next prompt. The command echo
// and the terminating prompt are stripped before the output is handed
// to the firmware parsers.
package msh
