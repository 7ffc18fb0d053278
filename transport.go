// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package dbgpipe carries breakpoint messages between a debugging agent and
// an attached debugger over a local byte channel.
//
// The transport only moves opaque chunks of bytes. Chunk sizes and
// boundaries are decided by the transport, never by the caller, so message
// boundaries are recovered by package frame and breakpoints are read and
// written by package channel.
package dbgpipe

import (
	"context"
)

// ReaderContext is an interface for a context controlled chunk reader.
// ReadContext blocks until at least one byte is available, the context is
// done or the underlying channel fails. It returns the number of bytes
// copied into b.
type ReaderContext interface {
	ReadContext(ctx context.Context, b []byte) (int, error)
}

// WriterContext is an interface for a context controlled chunk writer.
// Each WriteContext call is a single atomic write of b.
type WriterContext interface {
	WriteContext(ctx context.Context, b []byte) (int, error)
}

// Transport is the capability a breakpoint channel needs from the
// underlying interprocess byte channel.
type Transport interface {
	ReaderContext
	WriterContext
}
