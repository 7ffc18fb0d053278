package test

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/simonz130/dbgpipe/breakpoint"
)

// BreakpointReader is the read side of a breakpoint channel.
type BreakpointReader interface {
	ReadBreakpoint(ctx context.Context) (*breakpoint.Breakpoint, error)
}

// BreakpointWriter is the write side of a breakpoint channel.
type BreakpointWriter interface {
	WriteBreakpoint(ctx context.Context, bp *breakpoint.Breakpoint) error
}

// BreakpointReadWriter is both sides of a breakpoint channel.
type BreakpointReadWriter interface {
	BreakpointReader
	BreakpointWriter
}

// Options represents the configuration of the stress test
type Options struct {
	MsgCount int

	// Timeout bounds the whole run. Defaults to 10 seconds.
	Timeout time.Duration
}

// Stress writes random breakpoints to w and reads them back from r.
// It checks that breakpoints are received intact and in order.
func Stress(w BreakpointWriter, r BreakpointReader, opt Options) error {
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sent := make(chan *breakpoint.Breakpoint, opt.MsgCount)
	errCh := make(chan error)
	// Write
	go func() {
		err := write(ctx, w, sent, opt)
		if err != nil {
			errCh <- err
		}
		close(sent)
	}()

	// Read
	go func() {
		for original := range sent {
			if err := read(ctx, r, original); err != nil {
				errCh <- err
				// the rest can't line up anymore
				cancel()
				break
			}
		}
		for range sent { //nolint:revive // drain until the writer stops
		}

		close(errCh)
	}()

	return FlattenErrs(GatherErrs(errCh))
}

func read(ctx context.Context, r BreakpointReader, original *breakpoint.Breakpoint) error {
	got, err := r.ReadBreakpoint(ctx)
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(original, got) {
		return fmt.Errorf("breakpoint changed %s != %s", original, got) //nolint:goerr113
	}

	return nil
}

// StressDuplex runs Stress in both directions at once.
func StressDuplex(ca, cb BreakpointReadWriter, opt Options) error {
	errCh := make(chan error)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		errCh <- Stress(ca, cb, opt)
	}()

	go func() {
		defer wg.Done()
		errCh <- Stress(cb, ca, opt)
	}()

	go func() {
		wg.Wait()
		close(errCh)
	}()

	return FlattenErrs(GatherErrs(errCh))
}

func write(ctx context.Context, w BreakpointWriter, sent chan *breakpoint.Breakpoint, opt Options) error {
	for i := 0; i < opt.MsgCount; i++ {
		bp := RandBreakpoint()
		sent <- bp.Clone()
		if err := w.WriteBreakpoint(ctx, bp); err != nil {
			return err
		}
	}
	return nil
}
