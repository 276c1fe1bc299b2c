// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lydia-systems/laserbridge/audit"
	"github.com/lydia-systems/laserbridge/firmware"
	"github.com/lydia-systems/laserbridge/lib/clock"
	"github.com/lydia-systems/laserbridge/msh"
	"github.com/lydia-systems/laserbridge/policy"
)

// deniedError is the user-visible text for policy denials. Frontends
// match on it.
const deniedError = "Command not allowed by policy"

// Session is the slice of msh.Session the worker needs. Tests
// substitute a fake.
type Session interface {
	Transact(ctx context.Context, line string, timeout time.Duration) (string, error)
	Close() error
}

// DialFunc opens a fresh session. Called at startup and again after
// the link drops.
type DialFunc func() (Session, error)

// Options tunes the arbiter. Zero values pick the defaults.
type Options struct {
	// ExecTimeout bounds each serial transaction. Default 5s.
	ExecTimeout time.Duration

	// QueueDepth bounds the submission queue. Default 64.
	QueueDepth int

	// RedialMin and RedialMax bound the reconnect backoff.
	// Defaults 500ms and 5s.
	RedialMin time.Duration
	RedialMax time.Duration
}

func (o Options) withDefaults() Options {
	if o.ExecTimeout <= 0 {
		o.ExecTimeout = 5 * time.Second
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = 64
	}
	if o.RedialMin <= 0 {
		o.RedialMin = 500 * time.Millisecond
	}
	if o.RedialMax <= 0 {
		o.RedialMax = 5 * time.Second
	}
	return o
}

type request struct {
	cmd   Command
	reply chan Result
}

// Arbiter serializes all access to the serial session. Submit is safe
// for concurrent use; the worker services commands strictly in
// submission order.
type Arbiter struct {
	dial DialFunc
	opts Options
	aud  *audit.Logger
	clk  clock.Clock
	log  *slog.Logger

	requests chan request

	// Worker-goroutine state. Never touched outside Run.
	session  Session
	backoff  time.Duration
	nextDial time.Time
}

// New builds an Arbiter. Run must be started before Submit will make
// progress.
func New(dial DialFunc, opts Options, aud *audit.Logger, clk clock.Clock, log *slog.Logger) *Arbiter {
	opts = opts.withDefaults()
	return &Arbiter{
		dial:     dial,
		opts:     opts,
		aud:      aud,
		clk:      clk,
		log:      log,
		requests: make(chan request, opts.QueueDepth),
	}
}

// Submit enqueues one command and waits for its result. Every
// accepted command produces exactly one Result; the error return is
// only for context cancellation.
func (a *Arbiter) Submit(ctx context.Context, cmd Command) (Result, error) {
	req := request{cmd: cmd, reply: make(chan Result, 1)}
	select {
	case a.requests <- req:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Run is the worker loop. It returns when ctx is canceled, closing
// the session if one is open.
func (a *Arbiter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.dropSession()
			return
		case req := <-a.requests:
			req.reply <- a.handle(ctx, req.cmd)
		}
	}
}

// handle services one command start to finish: policy gate, serial
// transaction, parsing, and the unconditional audit record.
func (a *Arbiter) handle(ctx context.Context, cmd Command) Result {
	start := a.clk.Now()
	res := Result{TSMS: start.UnixMilli()}
	dec := policy.Evaluate(cmd.Line)

	defer func() {
		a.aud.Log(audit.Record{
			Kind:    "exec",
			Cmd:     cmd.Line,
			Verb:    policy.Verb(cmd.Line),
			Arg:     policy.Arg(cmd.Line),
			Source:  string(cmd.Source),
			Allowed: audit.Bool(dec.Allowed()),
			Reason:  dec.Reason,
			OK:      audit.Bool(res.OK),
			Error:   res.Error,
		})
	}()

	if !dec.Allowed() {
		res.Error = deniedError
		res.Reason = dec.Reason
		a.log.Info("command denied", "verb", policy.Verb(cmd.Line), "reason", dec.Reason, "source", cmd.Source)
		return res
	}

	sess, err := a.acquireSession()
	if err != nil {
		res.Error = err.Error()
		return res
	}

	stdout, err := sess.Transact(ctx, cmd.Line, a.opts.ExecTimeout)
	res.LatencyMS = a.clk.Now().Sub(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		// A prompt timeout leaves the session usable: the next
		// transaction resyncs past the stale bytes. Anything else
		// means the link itself failed.
		if !errors.Is(err, msh.ErrPromptTimeout) && !errors.Is(err, context.Canceled) {
			a.log.Warn("serial session lost", "error", err)
			a.dropSession()
		}
		return res
	}

	res.OK = true
	res.Stdout = stdout
	if parsed, perr := parseByVerb(policy.Verb(cmd.Line), stdout); perr != nil {
		res.OK = false
		res.Error = perr.Error()
	} else if parsed != nil {
		res.Parsed = parsed
	}
	return res
}

// parseByVerb routes raw output to the verb's parser. Verbs without a
// parser return (nil, nil) and the caller keeps raw stdout only.
func parseByVerb(verb, stdout string) (any, error) {
	switch verb {
	case "status":
		return firmware.ParseStatus(stdout)
	case "cur_pro", "feeder_pro":
		return firmware.ParseProcess(stdout)
	case "getall":
		return firmware.ParseGetAll(stdout)
	default:
		return nil, nil
	}
}

// acquireSession returns the live session, dialing if necessary.
// While the backoff window from a failed dial is open, commands fail
// fast instead of waiting.
func (a *Arbiter) acquireSession() (Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	now := a.clk.Now()
	if now.Before(a.nextDial) {
		return nil, fmt.Errorf("serial link down, next retry in %s", a.nextDial.Sub(now).Round(time.Millisecond))
	}

	sess, err := a.dial()
	if err != nil {
		if a.backoff == 0 {
			a.backoff = a.opts.RedialMin
		} else {
			a.backoff *= 2
			if a.backoff > a.opts.RedialMax {
				a.backoff = a.opts.RedialMax
			}
		}
		a.nextDial = now.Add(a.backoff)
		a.log.Warn("serial dial failed", "error", err, "retry_in", a.backoff)
		return nil, fmt.Errorf("serial dial: %w", err)
	}

	a.session = sess
	a.backoff = 0
	a.nextDial = time.Time{}
	a.log.Info("serial session established")
	return sess, nil
}

// dropSession closes and forgets the session. The next command
// triggers an immediate redial attempt.
func (a *Arbiter) dropSession() {
	if a.session == nil {
		return
	}
	if err := a.session.Close(); err != nil {
		a.log.Warn("serial session close failed", "error", err)
	}
	a.session = nil
}
