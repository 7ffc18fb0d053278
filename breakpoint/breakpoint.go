// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package breakpoint defines the breakpoint message exchanged between the
// agent and the debugger, and the codec turning it into payload bytes.
package breakpoint

import (
	"fmt"

	"github.com/google/uuid"
)

// SourceLocation is a position in a source file. Line and Column are 1-based.
type SourceLocation struct {
	Path   string `cbor:"1,keyasint,omitempty" yaml:"path"`
	Line   int32  `cbor:"2,keyasint,omitempty" yaml:"line"`
	Column int32  `cbor:"3,keyasint,omitempty" yaml:"column,omitempty"`
}

func (l *SourceLocation) String() string {
	if l == nil {
		return "<nowhere>"
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.Path, l.Line)
}

// StatusMessage carries an error or informational message from the debugger.
type StatusMessage struct {
	IsError bool   `cbor:"1,keyasint,omitempty" yaml:"is_error,omitempty"`
	Message string `cbor:"2,keyasint,omitempty" yaml:"message,omitempty"`
}

// Variable is a captured value. Members holds the fields of compound values.
type Variable struct {
	Name    string         `cbor:"1,keyasint,omitempty" yaml:"name,omitempty"`
	Value   string         `cbor:"2,keyasint,omitempty" yaml:"value,omitempty"`
	Type    string         `cbor:"3,keyasint,omitempty" yaml:"type,omitempty"`
	Members []Variable     `cbor:"4,keyasint,omitempty" yaml:"members,omitempty"`
	Status  *StatusMessage `cbor:"5,keyasint,omitempty" yaml:"status,omitempty"`
}

// StackFrame is one frame of the call stack captured when a breakpoint hits.
type StackFrame struct {
	MethodName string          `cbor:"1,keyasint,omitempty" yaml:"method_name,omitempty"`
	Location   *SourceLocation `cbor:"2,keyasint,omitempty" yaml:"location,omitempty"`
	Arguments  []Variable      `cbor:"3,keyasint,omitempty" yaml:"arguments,omitempty"`
	Locals     []Variable      `cbor:"4,keyasint,omitempty" yaml:"locals,omitempty"`
}

// Breakpoint is the message moved over a breakpoint channel.
//
// The agent sends breakpoints with Activated set to request that the
// debugger sets them, and with Activated cleared to remove them. The
// debugger sends them back once hit, with the captured state filled in.
type Breakpoint struct {
	ID                   string          `cbor:"1,keyasint" yaml:"id"`
	Location             *SourceLocation `cbor:"2,keyasint,omitempty" yaml:"location,omitempty"`
	Condition            string          `cbor:"3,keyasint,omitempty" yaml:"condition,omitempty"`
	Expressions          []string        `cbor:"4,keyasint,omitempty" yaml:"expressions,omitempty"`
	Activated            bool            `cbor:"5,keyasint,omitempty" yaml:"activated,omitempty"`
	IsFinalState         bool            `cbor:"6,keyasint,omitempty" yaml:"is_final_state,omitempty"`
	Status               *StatusMessage  `cbor:"7,keyasint,omitempty" yaml:"status,omitempty"`
	StackFrames          []StackFrame    `cbor:"8,keyasint,omitempty" yaml:"stack_frames,omitempty"`
	EvaluatedExpressions []Variable      `cbor:"9,keyasint,omitempty" yaml:"evaluated_expressions,omitempty"`
}

// New creates an activated breakpoint at path:line with a random ID.
func New(path string, line int32) *Breakpoint {
	return &Breakpoint{
		ID:        uuid.NewString(),
		Location:  &SourceLocation{Path: path, Line: line},
		Activated: true,
	}
}

func (b *Breakpoint) String() string {
	return fmt.Sprintf("breakpoint %s at %s", b.ID, b.Location)
}

// Clone returns a deep copy of b.
func (b *Breakpoint) Clone() *Breakpoint {
	if b == nil {
		return nil
	}

	c := *b
	if b.Location != nil {
		loc := *b.Location
		c.Location = &loc
	}
	if b.Expressions != nil {
		c.Expressions = append([]string(nil), b.Expressions...)
	}
	c.Status = cloneStatus(b.Status)
	if b.StackFrames != nil {
		c.StackFrames = make([]StackFrame, len(b.StackFrames))
		for i, f := range b.StackFrames {
			c.StackFrames[i] = f.clone()
		}
	}
	c.EvaluatedExpressions = cloneVariables(b.EvaluatedExpressions)

	return &c
}

func (f StackFrame) clone() StackFrame {
	if f.Location != nil {
		loc := *f.Location
		f.Location = &loc
	}
	f.Arguments = cloneVariables(f.Arguments)
	f.Locals = cloneVariables(f.Locals)
	return f
}

func cloneVariables(vars []Variable) []Variable {
	if vars == nil {
		return nil
	}
	out := make([]Variable, len(vars))
	for i, v := range vars {
		v.Members = cloneVariables(v.Members)
		v.Status = cloneStatus(v.Status)
		out[i] = v
	}
	return out
}

func cloneStatus(s *StatusMessage) *StatusMessage {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
