// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/pion/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0" //nolint:gochecknoglobals

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dbgpipe",
		Short: "Breakpoint channel between a debugging agent and a debugger",
		Long: `dbgpipe moves breakpoints between a debugging agent and a debugger
over a named pipe.

Log levels are set with the PION_LOG_TRACE, PION_LOG_DEBUG, PION_LOG_INFO,
PION_LOG_WARN and PION_LOG_ERROR environment variables, e.g.
PION_LOG_DEBUG=agent,namedpipe.`,
		Version:      Version,
		SilenceUsage: true,
	}

	loggerFactory := logging.NewDefaultLoggerFactory()
	root.AddCommand(newAgentCmd(loggerFactory), newDebuggerCmd(loggerFactory))
	return root
}
