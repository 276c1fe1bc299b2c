// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package msh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lydia-systems/laserbridge/lib/clock"
)

// scriptConn is an in-memory stand-in for the serial port. Reads pop
// queued chunks and block when the queue is empty; writes are
// recorded.
type scriptConn struct {
	reads chan string
	done  chan struct{}
	once  sync.Once

	mu      sync.Mutex
	writes  []string
	pending []byte
}

func newScriptConn(chunks ...string) *scriptConn {
	c := &scriptConn{
		reads: make(chan string, 32),
		done:  make(chan struct{}),
	}
	for _, chunk := range chunks {
		c.reads <- chunk
	}
	return c
}

func (c *scriptConn) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		select {
		case chunk := <-c.reads:
			c.pending = []byte(chunk)
		case <-c.done:
			return 0, io.EOF
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *scriptConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, string(p))
	return len(p), nil
}

func (c *scriptConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *scriptConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

func testSession(conn io.ReadWriteCloser) *Session {
	//nolint:realclock // prompt arrival drives these tests, not timers.
	return NewSession(conn, clock.Real(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTransactClearsBufferBetweenCalls(t *testing.T) {
	conn := newScriptConn(
		"boot\nmsh >", // bootstrap
		"msh >",       // resync before first
		"out1\nmsh >", // first output
		"msh >",       // resync before second
		"out2\nmsh >", // second output
	)
	s := testSession(conn)
	defer s.Close()

	ctx := context.Background()
	first, err := s.Transact(ctx, "first", time.Second)
	if err != nil {
		t.Fatalf("first transact: %v", err)
	}
	second, err := s.Transact(ctx, "second", time.Second)
	if err != nil {
		t.Fatalf("second transact: %v", err)
	}

	if !strings.Contains(first, "out1") {
		t.Errorf("first output %q does not contain out1", first)
	}
	if !strings.Contains(second, "out2") {
		t.Errorf("second output %q does not contain out2", second)
	}
	if strings.Contains(second, "out1") {
		t.Errorf("stale output leaked into second transact: %q", second)
	}

	want := []string{"\n", "\n", "first\n", "\n", "second\n"}
	got := conn.written()
	if len(got) != len(want) {
		t.Fatalf("writes = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTransactStripsEchoAndPrompt(t *testing.T) {
	conn := newScriptConn(
		"msh >", // bootstrap
		"msh >", // resync
		"status\r\nWork State: IDLE\nmsh >\n",
	)
	s := testSession(conn)
	defer s.Close()

	out, err := s.Transact(context.Background(), "status", time.Second)
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	if out != "Work State: IDLE\n" {
		t.Errorf("output = %q, want echo and prompt removed", out)
	}
}

func TestTransactPromptSplitAcrossChunks(t *testing.T) {
	conn := newScriptConn(
		"ms", "h >\n", // bootstrap prompt in two pieces
		"msh >\n",
		"ok\nms", "h >\n",
	)
	s := testSession(conn)
	defer s.Close()

	out, err := s.Transact(context.Background(), "version", time.Second)
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	if !strings.Contains(out, "ok") {
		t.Errorf("output %q does not contain ok", out)
	}
}

func TestTransactPromptTimeout(t *testing.T) {
	conn := newScriptConn(
		"msh >", // bootstrap
		"msh >", // resync
		// command output never arrives
	)
	s := testSession(conn)
	defer s.Close()

	_, err := s.Transact(context.Background(), "status", 50*time.Millisecond)
	if !errors.Is(err, ErrPromptTimeout) {
		t.Fatalf("error = %v, want ErrPromptTimeout", err)
	}
	if got := err.Error(); got != "Timed out waiting for msh prompt" {
		t.Errorf("timeout text = %q", got)
	}
}

func TestTransactStreamClosed(t *testing.T) {
	conn := newScriptConn()
	s := testSession(conn)
	conn.Close()

	_, err := s.Transact(context.Background(), "status", time.Second)
	if err == nil {
		t.Fatalf("expected error after stream close")
	}
	if errors.Is(err, ErrPromptTimeout) {
		t.Errorf("stream close misreported as prompt timeout: %v", err)
	}
}

func TestTransactContextCanceled(t *testing.T) {
	conn := newScriptConn()
	s := testSession(conn)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Transact(ctx, "status", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
