// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package namedpipe serves and dials the named pipe shared by the debugging
// agent and the debugger.
//
// A pipe called name lives at PipePath(name), the same path the .NET
// runtime uses for its named pipes on unix, so either side may be written
// against System.IO.Pipes. The pipe is a unix domain socket restricted to
// the user that created it.
package namedpipe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
	"github.com/simonz130/dbgpipe/netctx"
)

const pipePrefix = "CoreFxPipe_"

var (
	// ErrPipeBusy is returned by Listen when another process already serves
	// the pipe.
	ErrPipeBusy = errors.New("namedpipe: pipe is already served")

	errEmptyName = errors.New("namedpipe: empty pipe name")
	errPeerUser  = errors.New("namedpipe: peer runs as a different user")
)

// veryOld is a deadline in the past, used to abort a blocked accept.
var veryOld = time.Unix(0, 1) //nolint:gochecknoglobals

// PipePath returns the socket path of the pipe called name.
func PipePath(name string) string {
	return filepath.Join(os.TempDir(), pipePrefix+name)
}

// Config configures Listen.
type Config struct {
	// AllowAnyUser accepts peers running as any user. By default only
	// peers with the uid of this process are accepted, where the platform
	// can tell.
	AllowAnyUser bool

	LoggerFactory logging.LoggerFactory
}

// Listener accepts connections on a named pipe.
type Listener struct {
	ln           *net.UnixListener
	path         string
	allowAnyUser bool
	acceptMu     sync.Mutex
	log          logging.LeveledLogger
}

// Listen serves the pipe called name. A socket left behind by a process
// that is gone is replaced.
func Listen(name string, config *Config) (*Listener, error) {
	if name == "" {
		return nil, errEmptyName
	}
	if config == nil {
		config = &Config{}
	}
	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	log := loggerFactory.NewLogger("namedpipe")

	path := PipePath(name)
	if _, err := os.Stat(path); err == nil {
		if c, err := net.Dial("unix", path); err == nil {
			_ = c.Close()
			return nil, fmt.Errorf("%w: %s", ErrPipeBusy, path)
		}
		log.Debugf("removing stale pipe %s", path)
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, err
	}
	log.Infof("listening on %s", path)

	return &Listener{
		ln:           ln,
		path:         path,
		allowAnyUser: config.AllowAnyUser,
		log:          log,
	}, nil
}

// Accept waits for the next peer. It implements net.Listener.
func (l *Listener) Accept() (net.Conn, error) {
	c, err := l.AcceptContext(context.Background())
	if err != nil {
		return nil, err
	}
	return c.Conn(), nil
}

// AcceptContext waits for the next peer until ctx is done. Peers failing
// the user check are dropped and the wait goes on.
func (l *Listener) AcceptContext(ctx context.Context) (netctx.Conn, error) {
	l.acceptMu.Lock()
	defer l.acceptMu.Unlock()

	for {
		c, err := l.acceptContext(ctx)
		if err != nil {
			return nil, err
		}
		if !l.allowAnyUser {
			if err := checkPeer(c); err != nil {
				l.log.Warnf("rejected peer on %s: %v", l.path, err)
				_ = c.Close()
				continue
			}
		}
		l.log.Debugf("accepted peer on %s", l.path)
		return netctx.NewConn(c), nil
	}
}

func (l *Listener) acceptContext(ctx context.Context) (*net.UnixConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	var errSetDeadline atomic.Value
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			if err := l.ln.SetDeadline(veryOld); err != nil {
				errSetDeadline.Store(err)
				return
			}
			<-done
			if err := l.ln.SetDeadline(time.Time{}); err != nil {
				errSetDeadline.Store(err)
			}
		case <-done:
		}
	}()

	c, err := l.ln.AcceptUnix()

	close(done)
	wg.Wait()
	if e := ctx.Err(); e != nil {
		if c != nil {
			_ = c.Close()
		}
		return nil, e
	}
	if err2, ok := errSetDeadline.Load().(error); ok && err == nil {
		_ = c.Close()
		return nil, err2
	}
	return c, err
}

// Close stops listening and removes the socket.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Addr returns the socket address. It implements net.Listener.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Path returns the socket path.
func (l *Listener) Path() string {
	return l.path
}

// Dial connects to the pipe called name.
func Dial(ctx context.Context, name string) (netctx.Conn, error) {
	if name == "" {
		return nil, errEmptyName
	}

	var d net.Dialer
	c, err := d.DialContext(ctx, "unix", PipePath(name))
	if err != nil {
		return nil, err
	}
	return netctx.NewConn(c), nil
}
