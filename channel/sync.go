// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package channel

import (
	"context"
	"sync"

	"github.com/simonz130/dbgpipe/breakpoint"
)

// Synchronized serializes access to a Channel. Readers wait for each other
// and writers wait for each other, but a read never blocks a write.
type Synchronized struct {
	ch      *Channel
	readMu  sync.Mutex
	writeMu sync.Mutex
}

// NewSynchronized wraps ch. ch must not be used directly afterwards.
func NewSynchronized(ch *Channel) *Synchronized {
	return &Synchronized{ch: ch}
}

// ReadBreakpoint is Channel.ReadBreakpoint under the read lock.
func (s *Synchronized) ReadBreakpoint(ctx context.Context) (*breakpoint.Breakpoint, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	return s.ch.ReadBreakpoint(ctx)
}

// WriteBreakpoint is Channel.WriteBreakpoint under the write lock.
func (s *Synchronized) WriteBreakpoint(ctx context.Context, bp *breakpoint.Breakpoint) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.ch.WriteBreakpoint(ctx, bp)
}
