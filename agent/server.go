// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package agent is the debugging agent side of the breakpoint channel. It
// serves the named pipe, pushes the breakpoints of a Source to the
// debugger and reports what the debugger sends back.
package agent

import (
	"context"

	"github.com/pion/logging"
	"github.com/simonz130/dbgpipe/channel"
	"github.com/simonz130/dbgpipe/namedpipe"
	"github.com/simonz130/dbgpipe/netctx"
)

// ServerConfig configures NewServer.
type ServerConfig struct {
	// PipeName names the pipe. Defaults to DefaultPipeName.
	PipeName string

	// AllowAnyUser accepts debuggers running as another user.
	AllowAnyUser bool

	LoggerFactory logging.LoggerFactory
}

// Server serves the breakpoint channel on a named pipe.
type Server struct {
	ln            *namedpipe.Listener
	loggerFactory logging.LoggerFactory
	log           logging.LeveledLogger
}

// NewServer starts listening on the pipe.
func NewServer(config ServerConfig) (*Server, error) {
	name := config.PipeName
	if name == "" {
		name = DefaultPipeName
	}
	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	ln, err := namedpipe.Listen(name, &namedpipe.Config{
		AllowAnyUser:  config.AllowAnyUser,
		LoggerFactory: loggerFactory,
	})
	if err != nil {
		return nil, err
	}

	return &Server{
		ln:            ln,
		loggerFactory: loggerFactory,
		log:           loggerFactory.NewLogger("agent"),
	}, nil
}

// Session is the breakpoint channel to one connected debugger.
type Session struct {
	*channel.Synchronized
	conn netctx.Conn
}

// Close disconnects the debugger.
func (s *Session) Close() error {
	return s.conn.Close()
}

// Accept waits for a debugger to connect until ctx is done.
func (s *Server) Accept(ctx context.Context) (*Session, error) {
	conn, err := s.ln.AcceptContext(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := channel.New(channel.Config{
		Transport:     conn,
		LoggerFactory: s.loggerFactory,
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	s.log.Infof("debugger connected on %s", s.ln.Path())

	return &Session{Synchronized: channel.NewSynchronized(ch), conn: conn}, nil
}

// Path returns the socket path of the pipe.
func (s *Server) Path() string {
	return s.ln.Path()
}

// Close stops listening. Sessions already accepted stay open.
func (s *Server) Close() error {
	return s.ln.Close()
}

// Connect dials the pipe called name from the debugger side and returns
// the breakpoint channel over it.
func Connect(ctx context.Context, name string, loggerFactory logging.LoggerFactory) (*Session, error) {
	conn, err := namedpipe.Dial(ctx, name)
	if err != nil {
		return nil, err
	}
	ch, err := channel.New(channel.Config{
		Transport:     conn,
		LoggerFactory: loggerFactory,
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Session{Synchronized: channel.NewSynchronized(ch), conn: conn}, nil
}
