// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/pion/logging"
	"github.com/simonz130/dbgpipe/agent"
	"github.com/spf13/cobra"
)

var errDebuggerExited = errors.New("debugger exited")

type agentFlags struct {
	config       string
	breakpoints  string
	noLaunch     bool
	allowAnyUser bool
}

func newAgentCmd(loggerFactory logging.LoggerFactory) *cobra.Command {
	var flags agentFlags
	opts := agent.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Serve breakpoints to a debugger",
		Long: `Serve the breakpoints listed in a YAML file to a debugger over the
named pipe, and print what the debugger reports back.

Options are read from the --config TOML file first, flags given on the
command line take precedence.`,
		Example: `  dbgpipe agent --config agent.toml --breakpoints breakpoints.yaml
  dbgpipe agent --module shop --version v1 --project-id demo \
      --debugger ./Google.Cloud.Diagnostics.Debug --application shop.dll \
      --breakpoints breakpoints.yaml --no-launch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := resolveOptions(cmd, flags.config, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runAgent(ctx, cmd, resolved, flags, loggerFactory)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.config, "config", "", "TOML file with the agent options")
	f.StringVar(&flags.breakpoints, "breakpoints", "", "YAML file with the breakpoints to set (required)")
	f.BoolVar(&flags.noLaunch, "no-launch", false, "do not start the debugger, wait for one to connect")
	f.BoolVar(&flags.allowAnyUser, "allow-any-user", false, "accept debuggers running as another user")

	f.StringVar(&opts.Module, "module", "", "name of the application to debug")
	f.StringVar(&opts.Version, "version", "", "version of the application to debug")
	f.StringVar(&opts.Debugger, "debugger", "", "path of the debugger")
	f.StringVar(&opts.Application, "application", "", "path of the application to debug")
	f.StringVar(&opts.ProjectID, "project-id", "", "project the debuggee belongs to (default $"+agent.ProjectIDEnv+")")
	f.BoolVar(&opts.PropertyEvaluation, "property-evaluation", false, "let the debugger evaluate object properties")
	f.IntVar(&opts.WaitTime, "wait-time", opts.WaitTime, "seconds to wait between two checks for new breakpoints")
	f.StringVar(&opts.PipeName, "pipe-name", opts.PipeName, "name of the pipe shared with the debugger")
	_ = cmd.MarkFlagRequired("breakpoints")

	return cmd
}

// resolveOptions loads the config file, if any, and applies the flags that
// were set on top of it.
func resolveOptions(cmd *cobra.Command, path string, fromFlags *agent.Options) (*agent.Options, error) {
	opts := fromFlags
	if path != "" {
		loaded, err := agent.LoadOptions(path)
		if err != nil {
			return nil, err
		}

		f := cmd.Flags()
		override := func(name string, apply func()) {
			if f.Changed(name) {
				apply()
			}
		}
		override("module", func() { loaded.Module = fromFlags.Module })
		override("version", func() { loaded.Version = fromFlags.Version })
		override("debugger", func() { loaded.Debugger = fromFlags.Debugger })
		override("application", func() { loaded.Application = fromFlags.Application })
		override("project-id", func() { loaded.ProjectID = fromFlags.ProjectID })
		override("property-evaluation", func() { loaded.PropertyEvaluation = fromFlags.PropertyEvaluation })
		override("wait-time", func() { loaded.WaitTime = fromFlags.WaitTime })
		override("pipe-name", func() { loaded.PipeName = fromFlags.PipeName })
		opts = loaded
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func runAgent(ctx context.Context, cmd *cobra.Command, opts *agent.Options, flags agentFlags, loggerFactory logging.LoggerFactory) error {
	log := loggerFactory.NewLogger("agent")

	src, err := agent.LoadStaticSource(flags.breakpoints)
	if err != nil {
		return err
	}

	srv, err := agent.NewServer(agent.ServerConfig{
		PipeName:      opts.PipeName,
		AllowAnyUser:  flags.allowAnyUser,
		LoggerFactory: loggerFactory,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = srv.Close()
	}()

	if !flags.noLaunch {
		debugger := exec.Command(opts.Debugger, opts.DebuggerArguments()...) //nolint:gosec
		debugger.Stdout = cmd.OutOrStdout()
		debugger.Stderr = cmd.ErrOrStderr()

		var stop func()
		ctx, stop, err = superviseDebugger(ctx, debugger)
		if err != nil {
			return err
		}
		defer stop()
		log.Infof("started debugger %s (pid %d)", opts.Debugger, debugger.Process.Pid)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s on %s\n", dimFmt("debugging"), opts.Module, opts.Version, srv.Path())

	session, err := srv.Accept(ctx)
	if err != nil {
		return exitCause(ctx, err)
	}
	defer func() {
		_ = session.Close()
	}()

	d, err := agent.NewDebuglet(agent.DebugletConfig{
		Channel:       session,
		Source:        &printingSource{Source: src, out: cmd.OutOrStdout()},
		WaitTime:      opts.Interval(),
		LoggerFactory: loggerFactory,
	})
	if err != nil {
		return err
	}

	err = exitCause(ctx, d.Run(ctx))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// superviseDebugger starts debugger and returns a context that is
// cancelled with errDebuggerExited once the process exits. stop kills the
// process if it still runs and waits for it.
func superviseDebugger(ctx context.Context, debugger *exec.Cmd) (context.Context, func(), error) {
	if err := debugger.Start(); err != nil {
		return nil, nil, fmt.Errorf("start debugger: %w", err)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		if err := debugger.Wait(); err != nil {
			cancel(fmt.Errorf("%w: %v", errDebuggerExited, err))
			return
		}
		cancel(errDebuggerExited)
	}()

	stop := func() {
		select {
		case <-exited:
		default:
			_ = debugger.Process.Kill()
			<-exited
		}
		cancel(nil)
	}
	return ctx, stop, nil
}

// exitCause replaces err with the reason ctx was cancelled when the
// debugger exiting was that reason.
func exitCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); err != nil && errors.Is(cause, errDebuggerExited) {
		return cause
	}
	return err
}
