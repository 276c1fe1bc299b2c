// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/lydia-systems/laserbridge/arbiter"
	"github.com/lydia-systems/laserbridge/audit"
	"github.com/lydia-systems/laserbridge/lib/clock"
	"github.com/lydia-systems/laserbridge/lib/codec"
	"github.com/lydia-systems/laserbridge/telemetry"
)

// Submitter is the slice of the arbiter the gateway needs.
type Submitter interface {
	Submit(ctx context.Context, cmd arbiter.Command) (arbiter.Result, error)
}

// GetAllCache hands out the last getall snapshot for replay to new
// subscribers. Implemented by the telemetry poller.
type GetAllCache interface {
	LastGetAll() *telemetry.Event
}

// Options tunes the server. Zero values pick the defaults.
type Options struct {
	// SendQueue bounds each subscriber's outbound queue. A subscriber
	// whose queue overflows is disconnected. Default 64.
	SendQueue int
}

func (o Options) withDefaults() Options {
	if o.SendQueue <= 0 {
		o.SendQueue = 64
	}
	return o
}

// Server accepts WebSocket connections and bridges them to the
// arbiter and the telemetry stream. It implements http.Handler.
type Server struct {
	sub   Submitter
	cache GetAllCache
	aud   *audit.Logger
	opts  Options
	clk   clock.Clock
	log   *slog.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// New builds a Server. cache may be nil, in which case every new
// connection triggers a fresh getall through the arbiter.
func New(sub Submitter, cache GetAllCache, aud *audit.Logger, opts Options, clk clock.Clock, log *slog.Logger) *Server {
	return &Server{
		sub:   sub,
		cache: cache,
		aud:   aud,
		opts:  opts.withDefaults(),
		clk:   clk,
		log:   log,
		subs:  make(map[*subscriber]struct{}),
	}
}

// subscriber is one connected client: its socket, its bounded
// outbound queue, and the stop signal shared by its goroutines.
type subscriber struct {
	conn *websocket.Conn
	out  chan []byte
	stop chan struct{}
	once sync.Once
}

func (c *subscriber) close(status websocket.StatusCode, reason string) {
	c.once.Do(func() {
		close(c.stop)
		_ = c.conn.Close(status, reason)
	})
}

// Broadcast pushes a telemetry event to every subscriber. It never
// blocks: a subscriber with a full queue is dropped on the spot. The
// signature matches telemetry.Sink.
func (s *Server) Broadcast(e telemetry.Event) {
	frame, err := codec.Marshal(eventToWire(e))
	if err != nil {
		s.log.Error("event not encodable", "name", e.Name, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.subs {
		select {
		case c.out <- frame:
		default:
			s.log.Warn("subscriber queue overflow, disconnecting")
			delete(s.subs, c)
			c.close(websocket.StatusPolicyViolation, "slow consumer")
		}
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	c := &subscriber{
		conn: conn,
		out:  make(chan []byte, s.opts.SendQueue),
		stop: make(chan struct{}),
	}
	s.mu.Lock()
	s.subs[c] = struct{}{}
	s.mu.Unlock()

	s.aud.Log(audit.Record{Kind: "connect"})
	s.log.Info("subscriber connected", "remote", r.RemoteAddr)
	defer func() {
		s.mu.Lock()
		delete(s.subs, c)
		s.mu.Unlock()
		c.close(websocket.StatusNormalClosure, "bye")
		s.aud.Log(audit.Record{Kind: "disconnect"})
		s.log.Info("subscriber disconnected", "remote", r.RemoteAddr)
	}()

	ctx := r.Context()
	go s.writeLoop(ctx, c)

	s.sendInitialGetAll(ctx, c)
	s.readLoop(ctx, c)
}

// sendInitialGetAll gives a fresh subscriber the current controller
// configuration without waiting for the next poll: the cached getall
// event when one exists, otherwise a fresh query.
func (s *Server) sendInitialGetAll(ctx context.Context, c *subscriber) {
	if s.cache != nil {
		if e := s.cache.LastGetAll(); e != nil {
			s.send(c, eventToWire(*e))
			return
		}
	}

	ts := s.clk.Now().UnixMilli()
	res, err := s.sub.Submit(ctx, arbiter.Command{Line: "getall", Source: arbiter.SourcePoller})
	if err != nil {
		return
	}
	if !res.OK {
		s.send(c, eventMessage{Type: "event", Name: telemetry.EventGetAllError, TSMS: ts, Error: res.Error})
		return
	}
	s.send(c, eventMessage{
		Type:      "event",
		Name:      telemetry.EventGetAll,
		TSMS:      ts,
		LatencyMS: res.LatencyMS,
		Parsed:    res.Parsed,
	})
}

// readLoop services one connection's inbound frames until it closes.
// Exec commands are handled synchronously, preserving per-connection
// request/response order.
func (s *Server) readLoop(ctx context.Context, c *subscriber) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var msg clientMessage
		if err := codec.Unmarshal(data, &msg); err != nil {
			s.send(c, errorMessage{Type: "error", Error: fmt.Sprintf("Undecodable frame: %v", err)})
			c.close(websocket.StatusUnsupportedData, "binary map frames required")
			return
		}

		switch msg.Type {
		case "subscribe":
			s.send(c, ackMessage{Type: "ack", Op: "subscribe"})

		case "exec":
			res, err := s.sub.Submit(ctx, arbiter.Command{Line: msg.Cmd, Source: arbiter.SourceClient})
			if err != nil {
				return // connection context canceled
			}
			s.send(c, resultMessage{
				Type:      "result",
				ID:        msg.ID,
				OK:        res.OK,
				Stdout:    res.Stdout,
				Parsed:    res.Parsed,
				LatencyMS: res.LatencyMS,
				TSMS:      res.TSMS,
				Error:     res.Error,
				Reason:    res.Reason,
			})

		default:
			s.send(c, errorMessage{Type: "error", Error: fmt.Sprintf("Unknown message type: %s", msg.Type)})
		}
	}
}

// send encodes and enqueues one frame for a single subscriber,
// dropping the subscriber on overflow just like Broadcast.
func (s *Server) send(c *subscriber, v any) {
	frame, err := codec.Marshal(v)
	if err != nil {
		s.log.Error("frame not encodable", "error", err)
		return
	}
	select {
	case c.out <- frame:
	case <-c.stop:
	default:
		s.log.Warn("subscriber queue overflow, disconnecting")
		s.mu.Lock()
		delete(s.subs, c)
		s.mu.Unlock()
		c.close(websocket.StatusPolicyViolation, "slow consumer")
	}
}

func (s *Server) writeLoop(ctx context.Context, c *subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case frame := <-c.out:
			if err := c.conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
				c.close(websocket.StatusNormalClosure, "write failed")
				return
			}
		}
	}
}
