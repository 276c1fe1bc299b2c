// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/lydia-systems/laserbridge/arbiter"
	"github.com/lydia-systems/laserbridge/firmware"
	"github.com/lydia-systems/laserbridge/lib/clock"
	"github.com/lydia-systems/laserbridge/lib/codec"
)

// Event is one telemetry emission. Data events carry Parsed; error
// events carry Error instead.
type Event struct {
	Name      string `cbor:"name"`
	TSMS      int64  `cbor:"ts_ms"`
	LatencyMS int64  `cbor:"latency_ms"`
	Parsed    any    `cbor:"parsed,omitempty"`
	Error     string `cbor:"error,omitempty"`
}

// Event names.
const (
	EventHeartbeat    = "heartbeat"
	EventStatus       = "status"
	EventStatusError  = "status_error"
	EventProcess      = "process_params"
	EventProcessError = "process_error"
	EventGetAll       = "getall"
	EventGetAllError  = "getall_error"
)

// Submitter is the slice of the arbiter the poller needs.
type Submitter interface {
	Submit(ctx context.Context, cmd arbiter.Command) (arbiter.Result, error)
}

// Sink receives every emitted event. Called from multiple loops; the
// implementation must be safe for concurrent use.
type Sink func(Event)

// Poller drives the periodic status, process-parameter, and getall
// queries.
type Poller struct {
	sub  Submitter
	sink Sink
	clk  clock.Clock
	log  *slog.Logger

	statusPeriod time.Duration
	slowPeriod   time.Duration

	// Fingerprints are each owned by a single loop goroutine.
	statusFP  *[32]byte
	processFP *[32]byte
	getallFP  *[32]byte

	mu         sync.Mutex
	lastGetAll *Event
}

// New builds a Poller. hz is the status rate; callers are expected to
// hand in a value already clamped by the config layer. Process and
// getall loops run at a quarter of the status rate.
func New(sub Submitter, hz float64, sink Sink, clk clock.Clock, log *slog.Logger) *Poller {
	period := time.Duration(float64(time.Second) / hz)
	return &Poller{
		sub:          sub,
		sink:         sink,
		clk:          clk,
		log:          log,
		statusPeriod: period,
		slowPeriod:   4 * period,
	}
}

// Run polls until ctx is canceled. Each loop fires once immediately
// so a fresh getall snapshot is cached before the first subscriber
// shows up.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, loop := range []struct {
		period time.Duration
		poll   func(context.Context)
	}{
		{p.statusPeriod, p.pollStatus},
		{p.slowPeriod, p.pollProcess},
		{p.slowPeriod, p.pollGetAll},
	} {
		loop := loop
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.loop(ctx, loop.period, loop.poll)
		}()
	}
	wg.Wait()
}

// LastGetAll returns the most recent successful getall event, or nil
// before the first one. The gateway replays it to new subscribers.
func (p *Poller) LastGetAll() *Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastGetAll
}

func (p *Poller) loop(ctx context.Context, period time.Duration, poll func(context.Context)) {
	ticker := p.clk.NewTicker(period)
	defer ticker.Stop()

	poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll(ctx)
		}
	}
}

func (p *Poller) pollStatus(ctx context.Context) {
	ts := p.clk.Now().UnixMilli()
	res, err := p.sub.Submit(ctx, arbiter.Command{Line: "status", Source: arbiter.SourcePoller})
	if err != nil {
		return // shutting down
	}
	if !res.OK {
		p.sink(Event{Name: EventStatusError, TSMS: ts, LatencyMS: res.LatencyMS, Error: res.Error})
		return
	}

	// Heartbeat on every good cycle, status only on change.
	p.sink(Event{Name: EventHeartbeat, TSMS: ts, LatencyMS: res.LatencyMS})
	if p.changed(&p.statusFP, res.Parsed) {
		p.sink(Event{Name: EventStatus, TSMS: ts, LatencyMS: res.LatencyMS, Parsed: res.Parsed})
	}
}

func (p *Poller) pollProcess(ctx context.Context) {
	start := p.clk.Now()
	ts := start.UnixMilli()

	snap := &firmware.ProcessSnapshot{}
	for _, q := range []struct {
		line string
		into **firmware.ProcessParams
	}{
		{"cur_pro", &snap.CurPro},
		{"feeder_pro", &snap.FeederPro},
	} {
		res, err := p.sub.Submit(ctx, arbiter.Command{Line: q.line, Source: arbiter.SourcePoller})
		if err != nil {
			return
		}
		if !res.OK {
			latency := p.clk.Now().Sub(start).Milliseconds()
			p.sink(Event{Name: EventProcessError, TSMS: ts, LatencyMS: latency, Error: res.Error})
			return
		}
		params, ok := res.Parsed.(*firmware.ProcessParams)
		if !ok {
			latency := p.clk.Now().Sub(start).Milliseconds()
			p.sink(Event{Name: EventProcessError, TSMS: ts, LatencyMS: latency, Error: "unexpected parse result for " + q.line})
			return
		}
		*q.into = params
	}

	latency := p.clk.Now().Sub(start).Milliseconds()
	if p.changed(&p.processFP, snap) {
		p.sink(Event{Name: EventProcess, TSMS: ts, LatencyMS: latency, Parsed: snap})
	}
}

func (p *Poller) pollGetAll(ctx context.Context) {
	ts := p.clk.Now().UnixMilli()
	res, err := p.sub.Submit(ctx, arbiter.Command{Line: "getall", Source: arbiter.SourcePoller})
	if err != nil {
		return
	}
	if !res.OK {
		p.sink(Event{Name: EventGetAllError, TSMS: ts, LatencyMS: res.LatencyMS, Error: res.Error})
		return
	}

	event := Event{Name: EventGetAll, TSMS: ts, LatencyMS: res.LatencyMS, Parsed: res.Parsed}
	p.mu.Lock()
	p.lastGetAll = &event
	p.mu.Unlock()

	if p.changed(&p.getallFP, res.Parsed) {
		p.sink(event)
	}
}

// changed fingerprints the snapshot and reports whether it differs
// from the stored one, updating it when it does. Snapshots that fail
// to encode are treated as changed; the wire encoder will surface the
// real problem.
func (p *Poller) changed(stored **[32]byte, parsed any) bool {
	data, err := codec.Marshal(parsed)
	if err != nil {
		p.log.Error("snapshot not encodable", "error", err)
		return true
	}
	fp := blake3.Sum256(data)
	if *stored != nil && **stored == fp {
		return false
	}
	*stored = &fp
	return true
}
