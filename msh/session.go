// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package msh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/lydia-systems/laserbridge/lib/clock"
)

// promptRE matches the MSH prompt on a line of its own. The firmware
// pads it inconsistently between versions.
var promptRE = regexp.MustCompile(`(?m)^\s*msh\s*>\s*$`)

const promptLine = "msh >"

// bootstrapTimeout bounds the initial prompt handshake after the port
// opens. The controller can take a few seconds to finish booting.
const bootstrapTimeout = 5 * time.Second

// ErrPromptTimeout is returned when the shell does not produce a
// prompt within the transaction deadline. The text is part of the
// client protocol; frontends match on it.
var ErrPromptTimeout = errors.New("Timed out waiting for msh prompt")

// readChunkSize matches the largest burst the controller emits between
// scheduler ticks.
const readChunkSize = 512

// Session is one exclusive conversation with the MSH shell. All
// methods are safe for concurrent use; transactions are serialized
// internally so at most one command is on the wire at a time.
type Session struct {
	conn io.ReadWriteCloser
	clk  clock.Clock
	log  *slog.Logger

	chunks  chan string
	readErr error // set before chunks is closed

	mu           sync.Mutex
	buf          string
	bootstrapped bool
}

// Open opens the serial device and wraps it in a Session.
func Open(device string, baud int, clk clock.Clock, log *slog.Logger) (*Session, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("msh: open %s: %w", device, err)
	}
	return NewSession(port, clk, log), nil
}

// NewSession wraps an already-open stream. Tests hand in an in-memory
// pipe here instead of a serial port.
func NewSession(conn io.ReadWriteCloser, clk clock.Clock, log *slog.Logger) *Session {
	s := &Session{
		conn:   conn,
		clk:    clk,
		log:    log,
		chunks: make(chan string, 16),
	}
	go s.readLoop()
	return s
}

// readLoop pumps the serial stream into the chunk channel until the
// stream errors out. Non-UTF-8 noise from a half-open port is dropped
// rather than poisoning the line buffer.
func (s *Session) readLoop() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.chunks <- strings.ToValidUTF8(string(buf[:n]), "")
		}
		if err != nil {
			s.readErr = err
			close(s.chunks)
			return
		}
	}
}

// Transact resynchronizes to a prompt boundary, sends line, and
// returns everything the shell printed before the next prompt, with
// the echoed command line stripped.
func (s *Session) Transact(ctx context.Context, line string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bootstrapLocked(ctx); err != nil {
		return "", err
	}

	// Resync: a bare newline forces a fresh prompt, and anything the
	// shell printed since the last transaction is discarded with it.
	if err := s.writeLine(""); err != nil {
		return "", err
	}
	if _, err := s.readUntilPrompt(ctx, timeout); err != nil {
		return "", err
	}
	s.buf = ""

	cmd := strings.TrimSpace(line)
	if err := s.writeLine(cmd); err != nil {
		return "", err
	}
	text, err := s.readUntilPrompt(ctx, timeout)
	if err != nil {
		return "", err
	}
	s.buf = ""
	return stripEcho(text, cmd), nil
}

// stripEcho drops the terminating prompt and, when the firmware echoes
// the command back, the echoed line. The buffer was cleared at the
// resync boundary, so the first prompt in text is the terminator.
func stripEcho(text, cmd string) string {
	if loc := promptRE.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	body := strings.TrimLeft(text, "\r\n")
	if cmd != "" {
		if rest, ok := strings.CutPrefix(body, cmd); ok {
			if rest == "" || rest[0] == '\n' || rest[0] == '\r' {
				return strings.TrimLeft(rest, "\r\n")
			}
		}
	}
	return text
}

// Close tears down the serial stream. In-flight transactions fail with
// the stream's read error.
func (s *Session) Close() error {
	return s.conn.Close()
}

// bootstrapLocked performs the one-time prompt handshake: poke the
// shell with a newline and wait for it to answer. Output printed
// before the last prompt is stale boot noise and is dropped.
func (s *Session) bootstrapLocked(ctx context.Context) error {
	if s.bootstrapped {
		return nil
	}
	if err := s.writeLine(""); err != nil {
		return err
	}
	data, err := s.readUntilPrompt(ctx, bootstrapTimeout)
	if err != nil {
		return err
	}
	if i := strings.LastIndex(data, promptLine); i >= 0 {
		s.buf = data[i+len(promptLine):]
	}
	s.bootstrapped = true
	s.log.Debug("msh session bootstrapped")
	return nil
}

// readUntilPrompt accumulates serial output until the buffer contains
// a prompt line, then returns the whole buffer. The caller decides
// what to do with it; the buffer is not cleared here.
func (s *Session) readUntilPrompt(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := s.clk.Now().Add(timeout)
	for {
		if promptRE.MatchString(s.buf) {
			return s.buf, nil
		}
		remaining := deadline.Sub(s.clk.Now())
		if remaining <= 0 {
			return "", ErrPromptTimeout
		}
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				if s.readErr != nil && s.readErr != io.EOF {
					return "", fmt.Errorf("msh: serial read: %w", s.readErr)
				}
				return "", fmt.Errorf("msh: serial stream closed: %w", io.ErrClosedPipe)
			}
			s.buf += chunk
		case <-s.clk.After(remaining):
			return "", ErrPromptTimeout
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (s *Session) writeLine(line string) error {
	if _, err := io.WriteString(s.conn, line+"\n"); err != nil {
		return fmt.Errorf("msh: serial write: %w", err)
	}
	return nil
}
