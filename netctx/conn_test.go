// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package netctx

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReadContext(t *testing.T) {
	ca, cb := net.Pipe()
	defer func() {
		_ = ca.Close()
	}()

	data := []byte{0x01, 0x02, 0xFF}
	chErr := make(chan error)

	go func() {
		_, err := cb.Write(data)
		chErr <- err
	}()

	c := NewConn(ca)
	b := make([]byte, 100)
	n, err := c.ReadContext(context.Background(), b)
	assert.NoError(t, err)
	assert.Equal(t, data, b[:n])

	assert.NoError(t, <-chErr)
}

func TestReadContextDone(t *testing.T) {
	for name, newCtx := range map[string]func() (context.Context, context.CancelFunc){
		"Timeout": func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 10*time.Millisecond)
		},
		"Cancel": func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(10*time.Millisecond, cancel)
			return ctx, cancel
		},
		"AlreadyCancelled": func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		},
	} {
		newCtx := newCtx
		t.Run(name, func(t *testing.T) {
			ca, _ := net.Pipe()
			defer func() {
				_ = ca.Close()
			}()

			ctx, cancel := newCtx()
			defer cancel()

			c := NewConn(ca)
			n, err := c.ReadContext(ctx, make([]byte, 100))
			assert.Error(t, err)
			assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
			assert.Empty(t, n)
		})
	}
}

func TestReadContextUsableAfterCancel(t *testing.T) {
	ca, cb := net.Pipe()
	defer func() {
		_ = ca.Close()
	}()

	c := NewConn(ca)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.ReadContext(ctx, make([]byte, 8))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		_, _ = cb.Write([]byte("again"))
	}()

	b := make([]byte, 8)
	n, err := c.ReadContext(context.Background(), b)
	assert.NoError(t, err)
	assert.Equal(t, "again", string(b[:n]))
}

func TestReadContextClosed(t *testing.T) {
	ca, _ := net.Pipe()

	c := NewConn(ca)
	_ = c.Close()

	n, err := c.ReadContext(context.Background(), make([]byte, 100))
	assert.ErrorIs(t, err, net.ErrClosed)
	assert.Empty(t, n)
}

func TestReadContextPeerClosed(t *testing.T) {
	ca, cb := net.Pipe()
	_ = cb.Close()

	c := NewConn(ca)
	defer func() {
		_ = c.Close()
	}()

	_, err := c.ReadContext(context.Background(), make([]byte, 100))
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteContext(t *testing.T) {
	ca, cb := net.Pipe()
	defer func() {
		_ = ca.Close()
	}()

	chRead := make(chan []byte)

	go func() {
		b := make([]byte, 100)
		n, _ := cb.Read(b)
		chRead <- b[:n]
	}()

	c := NewConn(ca)
	data := []byte{0x01, 0x02, 0xFF}
	n, err := c.WriteContext(context.Background(), data)
	assert.NoError(t, err)
	assert.Len(t, data, n)

	assert.Equal(t, data, <-chRead)
}

func TestWriteContextCancel(t *testing.T) {
	ca, _ := net.Pipe()
	defer func() {
		_ = ca.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	// nobody reads the other end, so the write blocks until cancelled
	c := NewConn(ca)
	n, err := c.WriteContext(ctx, make([]byte, 100))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, n)
}

func TestWriteContextClosed(t *testing.T) {
	ca, _ := net.Pipe()

	c := NewConn(ca)
	_ = c.Close()

	n, err := c.WriteContext(context.Background(), make([]byte, 100))
	assert.ErrorIs(t, err, ErrClosing)
	assert.Empty(t, n)
}

func TestPipe(t *testing.T) {
	ca, cb := Pipe()
	defer func() {
		_ = ca.Close()
		_ = cb.Close()
	}()

	go func() {
		_, _ = ca.WriteContext(context.Background(), []byte("ping"))
	}()

	b := make([]byte, 8)
	n, err := cb.ReadContext(context.Background(), b)
	assert.NoError(t, err)
	assert.Equal(t, "ping", string(b[:n]))
}

type stringAddr struct {
	network string
	addr    string
}

func (a stringAddr) Network() string { return a.network }
func (a stringAddr) String() string  { return a.addr }

type connAddrMock struct {
	net.Conn
}

func (*connAddrMock) RemoteAddr() net.Addr { return stringAddr{"unix", "remote_addr"} }
func (*connAddrMock) LocalAddr() net.Addr  { return stringAddr{"unix", "local_addr"} }

func TestLocalAddrAndRemoteAddr(t *testing.T) {
	mock := &connAddrMock{}
	c := NewConn(mock)

	assert.Equal(t, "local_addr", c.LocalAddr().String())
	assert.Equal(t, "remote_addr", c.RemoteAddr().String())
	assert.Same(t, mock, c.Conn())
}

func BenchmarkReadContext(b *testing.B) {
	ca, cb := net.Pipe()
	defer func() {
		_ = ca.Close()
	}()

	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	buf := make([]byte, len(data))

	b.SetBytes(int64(len(data)))
	b.ResetTimer()

	go func(n int) {
		for i := 0; i < n; i++ {
			_, _ = cb.Write(data)
		}
		_ = cb.Close()
	}(b.N)

	c := NewConn(ca)
	count := 0
	for {
		n, err := c.ReadContext(context.Background(), buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				b.Fatal(err)
			}

			break
		}
		if n != len(data) {
			b.Errorf("Expected %v, got %v", len(data), n)
		}
		count++
	}
	if count != b.N {
		b.Errorf("Expected %v, got %v", b.N, count)
	}
}
