// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Command dbgpipe runs either end of the breakpoint channel: the agent
// serving breakpoints from a file, or a stand-in debugger that reports
// every breakpoint as hit.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
