package test

import (
	"fmt"
	mrand "math/rand"

	"github.com/google/uuid"
	"github.com/simonz130/dbgpipe/breakpoint"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_. "

func randString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[mrand.Intn(len(letters))] //nolint:gosec
	}
	return string(b)
}

// RandBreakpoint returns a breakpoint with random content. Roughly half of
// them carry captured stack frames as a hit breakpoint would.
func RandBreakpoint() *breakpoint.Breakpoint {
	bp := &breakpoint.Breakpoint{
		ID: uuid.NewString(),
		Location: &breakpoint.SourceLocation{
			Path: fmt.Sprintf("src/%s.cs", randString(1+mrand.Intn(24))), //nolint:gosec
			Line: mrand.Int31n(10000) + 1,                                 //nolint:gosec
		},
		Activated: mrand.Intn(2) == 0, //nolint:gosec
	}
	if mrand.Intn(2) == 0 { //nolint:gosec
		bp.Condition = randString(mrand.Intn(64)) //nolint:gosec
	}
	for i := mrand.Intn(4); i > 0; i-- { //nolint:gosec
		bp.Expressions = append(bp.Expressions, randString(1+mrand.Intn(32))) //nolint:gosec
	}

	if mrand.Intn(2) == 0 { //nolint:gosec
		bp.IsFinalState = true
		for i := 1 + mrand.Intn(5); i > 0; i-- { //nolint:gosec
			bp.StackFrames = append(bp.StackFrames, randFrame())
		}
	}

	return bp
}

func randFrame() breakpoint.StackFrame {
	frame := breakpoint.StackFrame{
		MethodName: randString(1 + mrand.Intn(40)), //nolint:gosec
		Location: &breakpoint.SourceLocation{
			Path: randString(1 + mrand.Intn(40)), //nolint:gosec
			Line: mrand.Int31n(10000) + 1,        //nolint:gosec
		},
	}
	for i := mrand.Intn(6); i > 0; i-- { //nolint:gosec
		frame.Locals = append(frame.Locals, breakpoint.Variable{
			Name:  randString(1 + mrand.Intn(16)),         //nolint:gosec
			Value: randString(mrand.Intn(256)),            //nolint:gosec
			Type:  "System." + randString(1+mrand.Intn(12)), //nolint:gosec
		})
	}
	return frame
}
