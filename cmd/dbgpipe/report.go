// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/simonz130/dbgpipe/agent"
	"github.com/simonz130/dbgpipe/breakpoint"
)

var (
	setFmt     = color.New(color.FgGreen).SprintFunc()
	removedFmt = color.New(color.FgYellow).SprintFunc()
	hitFmt     = color.New(color.FgCyan, color.Bold).SprintFunc()
	errFmt     = color.New(color.FgRed, color.Bold).SprintFunc()
	dimFmt     = color.New(color.Faint).SprintFunc()
)

// printBreakpoint writes a short human readable account of bp.
func printBreakpoint(w io.Writer, bp *breakpoint.Breakpoint) {
	switch {
	case bp.Status != nil && bp.Status.IsError:
		fmt.Fprintf(w, "%s %s: %s\n", errFmt("error"), bp, bp.Status.Message)
	case bp.IsFinalState:
		fmt.Fprintf(w, "%s %s\n", hitFmt("hit"), bp)
	case bp.Activated:
		fmt.Fprintf(w, "%s %s\n", setFmt("set"), bp)
	default:
		fmt.Fprintf(w, "%s %s\n", removedFmt("removed"), bp)
	}
	if bp.Condition != "" {
		fmt.Fprintf(w, "    %s %s\n", dimFmt("when"), bp.Condition)
	}

	for _, v := range bp.EvaluatedExpressions {
		fmt.Fprintf(w, "    %s = %s\n", v.Name, v.Value)
	}
	for i, f := range bp.StackFrames {
		fmt.Fprintf(w, "    #%d %s %s\n", i, f.MethodName, dimFmt(f.Location.String()))
		for _, v := range f.Locals {
			fmt.Fprintf(w, "        %s %s = %s\n", dimFmt(v.Type), v.Name, v.Value)
		}
	}
}

// printingSource prints every report before handing it on.
type printingSource struct {
	agent.Source
	out io.Writer
}

func (s *printingSource) Report(ctx context.Context, bp *breakpoint.Breakpoint) error {
	printBreakpoint(s.out, bp)

	return s.Source.Report(ctx, bp)
}
