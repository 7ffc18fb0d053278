// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pion/logging"
	"github.com/simonz130/dbgpipe/agent"
	"github.com/simonz130/dbgpipe/breakpoint"
	"github.com/simonz130/dbgpipe/channel"
	"github.com/spf13/cobra"
)

func newDebuggerCmd(loggerFactory logging.LoggerFactory) *cobra.Command {
	pipeName := agent.DefaultPipeName

	cmd := &cobra.Command{
		Use:   "debugger",
		Short: "Run a stand-in debugger",
		Long: `Connect to an agent over the named pipe and report every breakpoint
it sets as hit straight away, with a single captured stack frame.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session, err := agent.Connect(ctx, pipeName, loggerFactory)
			if err != nil {
				return err
			}
			defer func() {
				_ = session.Close()
			}()

			err = echo(ctx, session, cmd.OutOrStdout())
			if errors.Is(err, io.EOF) || errors.Is(err, channel.ErrCancelled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&pipeName, "pipe-name", pipeName, "name of the pipe to connect to")

	return cmd
}

// echo answers every activated breakpoint read from ch with its final
// state until reading fails.
func echo(ctx context.Context, ch channel.ReadWriter, out io.Writer) error {
	for {
		bp, err := ch.ReadBreakpoint(ctx)
		if err != nil {
			return err
		}
		printBreakpoint(out, bp)
		if !bp.Activated {
			continue
		}

		if err := ch.WriteBreakpoint(ctx, hit(bp)); err != nil {
			return err
		}
	}
}

// hit returns bp as the debugger reports it once hit.
func hit(bp *breakpoint.Breakpoint) *breakpoint.Breakpoint {
	h := bp.Clone()
	h.IsFinalState = true
	h.StackFrames = []breakpoint.StackFrame{{
		MethodName: "Main",
		Location:   bp.Location,
	}}
	for _, expr := range bp.Expressions {
		h.EvaluatedExpressions = append(h.EvaluatedExpressions, breakpoint.Variable{
			Name:   expr,
			Status: &breakpoint.StatusMessage{Message: "not evaluated"},
		})
	}
	return h
}
