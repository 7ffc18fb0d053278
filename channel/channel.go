// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package channel reads and writes breakpoints over a chunked transport.
//
// Every breakpoint travels as one frame, the codec encoding of the
// breakpoint enclosed between a start and an end marker. There is no
// length prefix, so frames are recovered by scanning for the markers.
package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/pion/logging"
	"github.com/simonz130/dbgpipe"
	"github.com/simonz130/dbgpipe/breakpoint"
	"github.com/simonz130/dbgpipe/frame"
)

var (
	// ErrCancelled is returned when the context of a call is done while
	// waiting on the transport. The context error is wrapped as well.
	ErrCancelled = errors.New("channel: operation cancelled")

	// ErrPayloadContainsMarker is returned by WriteBreakpoint when the
	// encoded breakpoint holds the end marker and could not be read back.
	ErrPayloadContainsMarker = errors.New("channel: payload contains the end marker")

	errNoTransport = errors.New("channel: no transport")
)

// Reader reads breakpoints.
type Reader interface {
	ReadBreakpoint(ctx context.Context) (*breakpoint.Breakpoint, error)
}

// Writer writes breakpoints.
type Writer interface {
	WriteBreakpoint(ctx context.Context, bp *breakpoint.Breakpoint) error
}

// ReadWriter groups Reader and Writer. Both Channel and Synchronized
// implement it.
type ReadWriter interface {
	Reader
	Writer
}

var (
	_ ReadWriter = (*Channel)(nil)
	_ ReadWriter = (*Synchronized)(nil)
)

// DefaultReadSize is the largest chunk requested from the transport per read.
const DefaultReadSize = 4096

// Config collects the arguments to New.
type Config struct {
	// Transport moves the raw bytes. Required.
	Transport dbgpipe.Transport

	// Markers delimit frames. Defaults to frame.DefaultMarkers().
	Markers frame.Markers

	// Codec encodes breakpoints. Defaults to breakpoint.DefaultCodec().
	Codec breakpoint.Codec

	// ReadSize bounds the chunk size requested per transport read.
	// Defaults to DefaultReadSize.
	ReadSize int

	LoggerFactory logging.LoggerFactory
}

// Channel reads and writes breakpoints over a transport.
//
// A Channel supports one ReadBreakpoint and one WriteBreakpoint in flight
// at a time; it does no locking of its own. Use Synchronized when several
// goroutines share a channel.
type Channel struct {
	transport dbgpipe.Transport
	markers   frame.Markers
	codec     breakpoint.Codec
	buf       *frame.Buffer
	readSize  int

	// broken is the framing violation that ended the read side.
	broken error

	log logging.LeveledLogger
}

// New creates a Channel over config.Transport.
func New(config Config) (*Channel, error) {
	if config.Transport == nil {
		return nil, errNoTransport
	}

	markers := config.Markers
	if markers.IsZero() {
		markers = frame.DefaultMarkers()
	}

	var codec breakpoint.Codec = breakpoint.DefaultCodec()
	if config.Codec != nil {
		codec = config.Codec
	}

	readSize := config.ReadSize
	if readSize <= 0 {
		readSize = DefaultReadSize
	}

	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	return &Channel{
		transport: config.Transport,
		markers:   markers,
		codec:     codec,
		buf:       frame.NewBuffer(markers),
		readSize:  readSize,
		log:       loggerFactory.NewLogger("channel"),
	}, nil
}

// ReadBreakpoint returns the next breakpoint from the transport. It only
// reads from the transport when no complete frame is buffered.
//
// If ctx is done while waiting for the transport, the returned error wraps
// ErrCancelled and buffered bytes are kept, so a later call resumes where
// this one stopped. A framing violation is final: this and every later
// call return an error wrapping frame.ErrFramingViolation. Transport errors
// are returned unchanged.
func (c *Channel) ReadBreakpoint(ctx context.Context) (*breakpoint.Breakpoint, error) {
	if c.broken != nil {
		return nil, c.broken
	}

	for {
		payload, err := c.buf.Next()
		if err != nil {
			c.broken = err
			return nil, err
		}
		if payload != nil {
			bp, err := c.codec.Decode(payload)
			if err != nil {
				c.broken = fmt.Errorf("%w: %v", frame.ErrFramingViolation, err)
				return nil, c.broken
			}
			c.log.Tracef("read %s (%d payload bytes, %d buffered)", bp, len(payload), c.buf.Len())
			return bp, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}

		n, err := c.buf.ReadFrom(ctx, c.transport, c.readSize)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, cancelled(ctxErr)
			}
			return nil, err
		}
		c.log.Tracef("received chunk of %d bytes", n)
	}
}

// WriteBreakpoint encodes bp and sends it as one frame with a single
// transport write. If ctx is done before the write completes, the returned
// error wraps ErrCancelled. Transport errors are returned unchanged.
func (c *Channel) WriteBreakpoint(ctx context.Context, bp *breakpoint.Breakpoint) error {
	payload, err := c.codec.Encode(bp)
	if err != nil {
		return err
	}
	if c.markers.ContainsEnd(payload) {
		return fmt.Errorf("%w: %s", ErrPayloadContainsMarker, bp)
	}

	msg := c.markers.Wrap(payload)
	if _, err := c.transport.WriteContext(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(ctxErr)
		}
		return err
	}
	c.log.Tracef("wrote %s (%d bytes)", bp, len(msg))

	return nil
}

// Buffered returns the number of received bytes not yet consumed.
func (c *Channel) Buffered() int {
	return c.buf.Len()
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}
