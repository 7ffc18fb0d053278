// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package netctx wraps net.Conn with context controlled reads and writes,
// giving a net.Conn backed named pipe the dbgpipe.Transport shape.
package netctx

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/simonz130/dbgpipe"
)

// ErrClosing is returned on Write to closed connection.
var ErrClosing = errors.New("use of closed network connection")

// veryOld is a deadline in the past, used to abort a blocked call.
var veryOld = time.Unix(0, 1) //nolint:gochecknoglobals

// Conn is a wrapper of net.Conn using context.Context.
type Conn interface {
	dbgpipe.Transport
	io.Closer
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Conn() net.Conn
}

type conn struct {
	nextConn  net.Conn
	closed    chan struct{}
	closeOnce sync.Once
	readMu    sync.Mutex
	writeMu   sync.Mutex
}

// NewConn creates a new Conn wrapping the given net.Conn.
func NewConn(netConn net.Conn) Conn {
	return &conn{
		nextConn: netConn,
		closed:   make(chan struct{}),
	}
}

// ReadContext reads data from the connection. Unlike net.Conn.Read(),
// the provided context is used to control timeout.
func (c *conn) ReadContext(ctx context.Context, b []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}

	return withContext(ctx, c.nextConn.SetReadDeadline, func() (int, error) {
		return c.nextConn.Read(b)
	})
}

// WriteContext writes data to the connection. Unlike net.Conn.Write(),
// the provided context is used to control timeout.
func (c *conn) WriteContext(ctx context.Context, b []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return 0, ErrClosing
	default:
	}

	return withContext(ctx, c.nextConn.SetWriteDeadline, func() (int, error) {
		return c.nextConn.Write(b)
	})
}

// withContext runs op and aborts it by moving the deadline to the past
// when ctx is done first. The deadline is cleared again before returning,
// so the connection stays usable after a cancelled call.
func withContext(ctx context.Context, setDeadline func(time.Time) error, op func() (int, error)) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	var errSetDeadline atomic.Value
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			// context canceled
			if err := setDeadline(veryOld); err != nil {
				errSetDeadline.Store(err)
				return
			}
			<-done
			if err := setDeadline(time.Time{}); err != nil {
				errSetDeadline.Store(err)
			}
		case <-done:
		}
	}()

	n, err := op()

	close(done)
	wg.Wait()
	if e := ctx.Err(); e != nil && n == 0 {
		err = e
	}
	if err2, ok := errSetDeadline.Load().(error); ok && err == nil && err2 != nil {
		err = err2
	}
	return n, err
}

// Close closes the connection.
// Any blocked ReadContext or WriteContext operations will be unblocked and
// return errors.
func (c *conn) Close() error {
	err := c.nextConn.Close()
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.readMu.Lock()
		close(c.closed)
		c.readMu.Unlock()
		c.writeMu.Unlock()
	})
	return err
}

// LocalAddr returns the local network address, if known.
func (c *conn) LocalAddr() net.Addr {
	return c.nextConn.LocalAddr()
}

// RemoteAddr returns the remote network address, if known.
func (c *conn) RemoteAddr() net.Addr {
	return c.nextConn.RemoteAddr()
}

// Conn returns the underlying net.Conn.
func (c *conn) Conn() net.Conn {
	return c.nextConn
}
