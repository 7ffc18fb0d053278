// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/simonz130/dbgpipe/breakpoint"
	"github.com/simonz130/dbgpipe/channel"
)

var (
	errNoChannel = errors.New("agent: no channel")
	errNoSource  = errors.New("agent: no source")
)

// DebugletConfig configures NewDebuglet.
type DebugletConfig struct {
	// Channel connects to the debugger. Required.
	Channel channel.ReadWriter

	// Source provides the breakpoints. Required.
	Source Source

	// WaitTime is the pause between two polls of Source. Zero polls
	// back to back.
	WaitTime time.Duration

	LoggerFactory logging.LoggerFactory
}

// Debuglet keeps the breakpoints set in the debugger in line with a Source.
//
// Breakpoints new in the Source are sent activated, breakpoints gone from
// it are sent deactivated, and everything the debugger sends back is
// reported to the Source.
type Debuglet struct {
	ch       channel.ReadWriter
	source   Source
	waitTime time.Duration
	log      logging.LeveledLogger

	// breakpoints set in the debugger, by id
	set map[string]*breakpoint.Breakpoint
}

// NewDebuglet creates a Debuglet.
func NewDebuglet(config DebugletConfig) (*Debuglet, error) {
	if config.Channel == nil {
		return nil, errNoChannel
	}
	if config.Source == nil {
		return nil, errNoSource
	}
	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	return &Debuglet{
		ch:       config.Channel,
		source:   config.Source,
		waitTime: config.WaitTime,
		log:      loggerFactory.NewLogger("agent"),
		set:      map[string]*breakpoint.Breakpoint{},
	}, nil
}

// Run polls the Source and forwards breakpoints until ctx is done or the
// channel fails. Failed polls are retried on the next tick. It returns
// ctx.Err() once ctx is done, or the channel error.
func (d *Debuglet) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- d.readLoop(runCtx)
		cancel()
	}()
	go func() {
		defer wg.Done()
		errCh <- d.pollLoop(runCtx)
		cancel()
	}()
	wg.Wait()
	close(errCh)

	if err := ctx.Err(); err != nil {
		return err
	}
	// the first error is the cause, the other loop only saw the cancel
	return <-errCh
}

func (d *Debuglet) readLoop(ctx context.Context) error {
	for {
		bp, err := d.ch.ReadBreakpoint(ctx)
		if err != nil {
			return err
		}
		d.log.Debugf("debugger sent %s (final: %t)", bp, bp.IsFinalState)
		if err := d.source.Report(ctx, bp); err != nil {
			d.log.Warnf("failed to report %s: %v", bp, err)
		}
	}
}

func (d *Debuglet) pollLoop(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if err := d.sync(ctx); err != nil {
			return err
		}
		timer.Reset(d.waitTime)
	}
}

// sync makes one poll. Source errors are logged and skipped, channel
// errors are returned.
func (d *Debuglet) sync(ctx context.Context) error {
	active, err := d.source.ListActive(ctx)
	if err != nil {
		d.log.Warnf("failed to list breakpoints: %v", err)
		return nil
	}

	wanted := make(map[string]bool, len(active))
	for _, bp := range active {
		wanted[bp.ID] = true
		if _, ok := d.set[bp.ID]; ok {
			continue
		}
		bp.Activated = true
		if err := d.ch.WriteBreakpoint(ctx, bp); err != nil {
			if errors.Is(err, channel.ErrPayloadContainsMarker) {
				d.log.Warnf("skipping %s: %v", bp, err)
				continue
			}
			return err
		}
		d.set[bp.ID] = bp
		d.log.Infof("set %s", bp)
	}

	for id, bp := range d.set {
		if wanted[id] {
			continue
		}
		removed := bp.Clone()
		removed.Activated = false
		if err := d.ch.WriteBreakpoint(ctx, removed); err != nil {
			return err
		}
		delete(d.set, id)
		d.log.Infof("removed %s", bp)
	}
	return nil
}
