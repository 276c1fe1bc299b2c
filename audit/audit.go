// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/lydia-systems/laserbridge/lib/clock"
)

// Record is one audit line. Kind is always set; the remaining fields
// depend on the kind (exec records carry the command and the policy
// outcome, connect/disconnect records carry nothing extra).
type Record struct {
	Kind         string `json:"kind"`
	Cmd          string `json:"cmd,omitempty"`
	Verb         string `json:"verb,omitempty"`
	Arg          string `json:"arg,omitempty"`
	Source       string `json:"source,omitempty"`
	Allowed      *bool  `json:"allowed,omitempty"`
	Reason       string `json:"reason,omitempty"`
	OK           *bool  `json:"ok,omitempty"`
	Error        string `json:"error,omitempty"`
	DroppedTotal int64  `json:"dropped_total,omitempty"`
	TSMS         int64  `json:"ts_ms,omitempty"`
	PID          int    `json:"pid,omitempty"`
}

// Bool is a convenience for Record.Allowed, which distinguishes
// "denied" from "not an exec record".
func Bool(b bool) *bool { return &b }

// Options tunes the logger. Zero values pick the defaults.
type Options struct {
	// MaxQueue bounds the number of records waiting for the writer.
	// Default 2000.
	MaxQueue int

	// FlushEvery syncs the file after this many records. Default 1,
	// which fsyncs every line; raise it if throughput matters more
	// than durability.
	FlushEvery int
}

func (o Options) withDefaults() Options {
	if o.MaxQueue <= 0 {
		o.MaxQueue = 2000
	}
	if o.FlushEvery <= 0 {
		o.FlushEvery = 1
	}
	return o
}

// Logger is the append-only audit sink. Log never blocks; Close
// drains the queue and syncs the file.
type Logger struct {
	opts Options
	clk  clock.Clock
	log  *slog.Logger
	file *os.File
	pid  int

	queue   chan Record
	stop    chan struct{}
	done    chan struct{}
	closing sync.Once
	dropped atomic.Int64
}

// New opens (creating directories as needed) the audit file for append
// and starts the writer.
func New(path string, opts Options, clk clock.Clock, log *slog.Logger) (*Logger, error) {
	l, err := newLogger(path, opts, clk, log)
	if err != nil {
		return nil, err
	}
	go l.run()
	return l, nil
}

func newLogger(path string, opts Options, clk clock.Clock, log *slog.Logger) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("audit: create directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	opts = opts.withDefaults()
	return &Logger{
		opts:  opts,
		clk:   clk,
		log:   log,
		file:  file,
		pid:   os.Getpid(),
		queue: make(chan Record, opts.MaxQueue),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}, nil
}

// Log enqueues a record, stamping ts_ms and pid if the caller left
// them unset. When the queue is full the record is dropped, the drop
// counter advances, and a best-effort audit_drop record is enqueued in
// its place.
func (l *Logger) Log(rec Record) {
	if rec.TSMS == 0 {
		rec.TSMS = l.clk.Now().UnixMilli()
	}
	if rec.PID == 0 {
		rec.PID = l.pid
	}
	select {
	case l.queue <- rec:
		return
	default:
	}

	total := l.dropped.Add(1)
	l.log.Warn("audit queue full, dropping record", "kind", rec.Kind, "dropped_total", total)
	select {
	case l.queue <- Record{
		Kind:         "audit_drop",
		DroppedTotal: total,
		TSMS:         l.clk.Now().UnixMilli(),
		PID:          l.pid,
	}:
	default:
		// Totally jammed; accept the drop silently.
	}
}

// Dropped reports how many records have been discarded so far.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Close stops the writer, drains whatever is queued, syncs, and
// closes the file. Log calls racing Close may be lost; that matches
// the best-effort contract.
func (l *Logger) Close() error {
	l.closing.Do(func() { close(l.stop) })
	<-l.done
	return l.file.Close()
}

func (l *Logger) run() {
	defer close(l.done)

	pending := 0
	for {
		select {
		case rec := <-l.queue:
			l.write(rec)
			pending++
			if pending >= l.opts.FlushEvery {
				l.sync()
				pending = 0
			}
		case <-l.stop:
			for {
				select {
				case rec := <-l.queue:
					l.write(rec)
				default:
					l.sync()
					return
				}
			}
		}
	}
}

func (l *Logger) write(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		l.log.Error("audit record not serializable", "kind", rec.Kind, "error", err)
		return
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		l.log.Error("audit write failed", "error", err)
	}
}

func (l *Logger) sync() {
	if err := l.file.Sync(); err != nil {
		l.log.Error("audit sync failed", "error", err)
	}
}
