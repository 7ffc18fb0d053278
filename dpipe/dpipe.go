// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package dpipe provides an in-memory pipe that keeps write boundaries.
//
// It behaves like a message mode named pipe: every write on one end is
// delivered as one read on the other end, unless the read buffer is too
// small, in which case the rest of the message is returned by the
// following reads. That makes it a deterministic stand-in for a named pipe
// when testing framing over chunked transports.
package dpipe

import (
	"context"
	"sync"

	"github.com/simonz130/dbgpipe"
	"github.com/simonz130/dbgpipe/packetio"
)

// Conn is one end of a pipe created by Pipe.
type Conn struct {
	inbox     *packetio.Buffer
	outbox    *packetio.Buffer
	closeOnce sync.Once

	readMu  sync.Mutex
	scratch []byte
	// rest of a message that did not fit the last read buffer
	pending []byte
}

var _ dbgpipe.Transport = (*Conn)(nil)

// Pipe creates a connected pair of in-memory ends.
func Pipe() (*Conn, *Conn) {
	a, b := packetio.NewBuffer(), packetio.NewBuffer()

	return &Conn{inbox: a, outbox: b}, &Conn{inbox: b, outbox: a}
}

// Read reads the next message written by the peer.
func (c *Conn) Read(b []byte) (int, error) {
	return c.ReadContext(context.Background(), b)
}

// ReadContext reads the next message written by the peer, giving up when
// ctx is done.
func (c *Conn) ReadContext(ctx context.Context, b []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.pending) > 0 {
		n := copy(b, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}

	if len(b) >= packetio.MaxChunk {
		return c.inbox.ReadContext(ctx, b)
	}

	if c.scratch == nil {
		c.scratch = make([]byte, packetio.MaxChunk)
	}
	n, err := c.inbox.ReadContext(ctx, c.scratch)
	if err != nil {
		return 0, err
	}
	copied := copy(b, c.scratch[:n])
	c.pending = c.scratch[copied:n]
	return copied, nil
}

// Write sends b to the peer as a single message.
func (c *Conn) Write(b []byte) (int, error) {
	return c.WriteContext(context.Background(), b)
}

// WriteContext sends b to the peer as a single message. Writes never
// block, so ctx is only checked before the write. Messages longer than
// packetio.MaxChunk are split.
func (c *Conn) WriteContext(ctx context.Context, b []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	written := 0
	for {
		chunk := b[written:]
		if len(chunk) > packetio.MaxChunk {
			chunk = chunk[:packetio.MaxChunk]
		}
		n, err := c.outbox.Write(chunk)
		written += n
		if err != nil || written == len(b) {
			return written, err
		}
	}
}

// Close closes both directions. Messages already written can still be
// read by either end, after which reads return io.EOF.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.inbox.Close()
		_ = c.outbox.Close()
	})
	return nil
}
