// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lydia-systems/laserbridge/lib/clock"
)

var auditEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func readLines(t *testing.T, path string) []Record {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	var out []Record
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %q is not valid JSON: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestLoggerWritesAndDrains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	clk := clock.Fake(auditEpoch)

	l, err := New(path, Options{FlushEvery: 100}, clk, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(Record{Kind: "one"})
	l.Log(Record{Kind: "two"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	recs := readLines(t, path)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Kind != "one" || recs[1].Kind != "two" {
		t.Errorf("kinds = %s, %s, want one, two", recs[0].Kind, recs[1].Kind)
	}
	if recs[0].TSMS != auditEpoch.UnixMilli() {
		t.Errorf("ts_ms = %d, want %d", recs[0].TSMS, auditEpoch.UnixMilli())
	}
	if recs[0].PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", recs[0].PID, os.Getpid())
	}
}

func TestLoggerExecRecordShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := New(path, Options{}, clock.Fake(auditEpoch), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(Record{Kind: "exec", Cmd: "laser_en 1", Allowed: Bool(false), Reason: "Blocked verb: laser_en"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	recs := readLines(t, path)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Allowed == nil || *rec.Allowed {
		t.Errorf("allowed = %v, want false", rec.Allowed)
	}
	if rec.Reason != "Blocked verb: laser_en" {
		t.Errorf("reason = %q", rec.Reason)
	}
}

func TestLoggerAppendsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	for _, kind := range []string{"first", "second"} {
		l, err := New(path, Options{}, clock.Fake(auditEpoch), slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		l.Log(Record{Kind: kind})
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	recs := readLines(t, path)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Kind != "first" || recs[1].Kind != "second" {
		t.Errorf("kinds = %s, %s, want first, second", recs[0].Kind, recs[1].Kind)
	}
}

func TestLoggerDropsWhenQueueFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	// Writer deliberately not started so the queue cannot drain.
	l, err := newLogger(path, Options{MaxQueue: 2}, clock.Fake(auditEpoch), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}

	l.Log(Record{Kind: "one"})
	l.Log(Record{Kind: "two"})
	l.Log(Record{Kind: "three"})

	if got := l.Dropped(); got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}

	go l.run()
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	recs := readLines(t, path)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want the 2 that fit", len(recs))
	}
	if recs[0].Kind != "one" || recs[1].Kind != "two" {
		t.Errorf("kinds = %s, %s, want one, two", recs[0].Kind, recs[1].Kind)
	}
}

func TestLoggerCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "audit.jsonl")
	l, err := New(path, Options{}, clock.Fake(auditEpoch), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(Record{Kind: "connect"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if recs := readLines(t, path); len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
}
