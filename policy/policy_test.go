// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"strings"
	"testing"
)

func TestBlockedVerbsAlwaysDeny(t *testing.T) {
	for _, verb := range BlockedVerbs() {
		for _, line := range []string{verb, verb + " 1", strings.ToUpper(verb), "  " + verb + "  "} {
			d := Evaluate(line)
			if d.Allowed() {
				t.Errorf("Evaluate(%q) allowed, want deny", line)
			}
			if !strings.Contains(strings.ToLower(d.Reason), "blocked") {
				t.Errorf("Evaluate(%q) reason %q, want blocked-verb reason", line, d.Reason)
			}
		}
	}
}

func TestDenyReasonNamesVerb(t *testing.T) {
	d := Evaluate("reboot")
	if d.Allowed() {
		t.Fatal("reboot allowed")
	}
	if !strings.Contains(d.Reason, "reboot") {
		t.Fatalf("reason %q does not name the blocked verb", d.Reason)
	}
}

func TestLineGuards(t *testing.T) {
	tests := []struct {
		line   string
		reason string
	}{
		{"", "empty"},
		{"   \t ", "empty"},
		{"status\nreboot", "multiline"},
		{"status\rreboot", "multiline"},
		{"status; reboot", "semicolon"},
	}
	for _, tc := range tests {
		d := Evaluate(tc.line)
		if d.Allowed() {
			t.Errorf("Evaluate(%q) allowed, want deny", tc.line)
			continue
		}
		if !strings.Contains(strings.ToLower(d.Reason), tc.reason) {
			t.Errorf("Evaluate(%q) reason %q, want mention of %q", tc.line, d.Reason, tc.reason)
		}
	}
}

func TestGettersAllow(t *testing.T) {
	for _, line := range []string{
		"status", "getall", "cur_pro", "feeder_pro", "version",
		"  STATUS  ", "temp", "pressure", "worktime", "list_device",
	} {
		if d := Evaluate(line); !d.Allowed() {
			t.Errorf("Evaluate(%q) denied: %s", line, d.Reason)
		}
	}
}

func TestSettersRequireParams(t *testing.T) {
	d := Evaluate("fan")
	if d.Allowed() {
		t.Fatal("bare fan allowed, want deny")
	}
	if !strings.Contains(strings.ToLower(d.Reason), "param") {
		t.Fatalf("reason %q, want missing-parameter reason", d.Reason)
	}
}

func TestSetterValidation(t *testing.T) {
	tests := []struct {
		line  string
		allow bool
	}{
		{"fan 1", true},
		{"FAN\t1", true},
		{"fan 2", false},
		{"fan on", false},
		{"fanduty 55", true},
		{"fanduty 101", false},
		{"maxpower 80", true},
		{"maxpower 80.5", true},
		{"maxpower 120", false},
		{"risetk 500", true},
		{"risetk -1", false},
		{"intertimeout 3600", true},
	}
	for _, tc := range tests {
		d := Evaluate(tc.line)
		if d.Allowed() != tc.allow {
			t.Errorf("Evaluate(%q) = %v (%s), want allow=%v", tc.line, d.Allowed(), d.Reason, tc.allow)
		}
	}
}

func TestDualUseVerbs(t *testing.T) {
	// Bare form reads, argument form writes subject to validation.
	for _, line := range []string{"wave", "headfre", "headwide", "feederoutspeed", "maxpower"} {
		if d := Evaluate(line); !d.Allowed() {
			t.Errorf("bare %q denied: %s", line, d.Reason)
		}
	}
	for _, line := range []string{"headfre 800", "headwide 80", "feederoutspeed 10", "wave 3"} {
		if d := Evaluate(line); !d.Allowed() {
			t.Errorf("%q denied: %s", line, d.Reason)
		}
	}
	for _, line := range []string{"headfre 99999", "feederoutspeed -5", "wave x"} {
		if d := Evaluate(line); d.Allowed() {
			t.Errorf("%q allowed, want deny", line)
		}
	}
}

func TestPowerSplitByDirection(t *testing.T) {
	if d := Evaluate("power"); !d.Allowed() {
		t.Fatalf("bare power denied: %s", d.Reason)
	}
	d := Evaluate("power 50")
	if d.Allowed() {
		t.Fatal("power with value allowed, want deny")
	}
	if !strings.Contains(d.Reason, "power") {
		t.Fatalf("reason %q does not name power", d.Reason)
	}
}

func TestUnknownVerbDenies(t *testing.T) {
	d := Evaluate("frobnicate 3")
	if d.Allowed() {
		t.Fatal("unknown verb allowed")
	}
	if !strings.Contains(strings.ToLower(d.Reason), "unknown") {
		t.Fatalf("reason %q, want unknown-command reason", d.Reason)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	first := Evaluate("fan 1")
	for i := 0; i < 100; i++ {
		if Evaluate("fan 1") != first {
			t.Fatal("Evaluate is not deterministic")
		}
	}
}

func TestVerbAndArg(t *testing.T) {
	if v := Verb("  STATUS  "); v != "status" {
		t.Fatalf("Verb = %q, want status", v)
	}
	if v := Verb(""); v != "" {
		t.Fatalf("Verb(\"\") = %q, want empty", v)
	}
	if a := Arg("fan 1"); a != "1" {
		t.Fatalf("Arg = %q, want 1", a)
	}
	if a := Arg("status"); a != "" {
		t.Fatalf("Arg(status) = %q, want empty", a)
	}
}
