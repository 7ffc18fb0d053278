// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package breakpoint

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hitBreakpoint() *Breakpoint {
	return &Breakpoint{
		ID:           "bp-1",
		Location:     &SourceLocation{Path: "Program.cs", Line: 42, Column: 9},
		Condition:    "i > 3",
		Expressions:  []string{"i", "name.Length"},
		Activated:    true,
		IsFinalState: true,
		Status:       &StatusMessage{Message: "hit"},
		StackFrames: []StackFrame{{
			MethodName: "Program.Main",
			Location:   &SourceLocation{Path: "Program.cs", Line: 42},
			Arguments:  []Variable{{Name: "args", Type: "System.String[]", Value: "{}"}},
			Locals: []Variable{{
				Name: "person",
				Type: "Person",
				Members: []Variable{
					{Name: "Name", Type: "System.String", Value: "Ada"},
					{Name: "Age", Type: "System.Int32", Status: &StatusMessage{IsError: true, Message: "not evaluated"}},
				},
			}},
		}},
		EvaluatedExpressions: []Variable{{Name: "i", Type: "System.Int32", Value: "4"}},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	codec := DefaultCodec()

	for name, bp := range map[string]*Breakpoint{
		"IDOnly":  {ID: "some-id"},
		"Request": New("Controllers/HomeController.cs", 17),
		"Hit":     hitBreakpoint(),
	} {
		bp := bp
		t.Run(name, func(t *testing.T) {
			data, err := codec.Encode(bp)
			require.NoError(t, err)

			got, err := codec.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, bp, got)
		})
	}
}

func TestCodecDeterministic(t *testing.T) {
	codec := DefaultCodec()

	a, err := codec.Encode(hitBreakpoint())
	assert.NoError(t, err)
	b, err := codec.Encode(hitBreakpoint())
	assert.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCodecEncodeRejects(t *testing.T) {
	codec := DefaultCodec()

	_, err := codec.Encode(nil)
	assert.ErrorIs(t, err, errNilBreakpoint)

	_, err = codec.Encode(&Breakpoint{Condition: "x"})
	assert.ErrorIs(t, err, errMissingID)
}

func TestCodecDecodeRejects(t *testing.T) {
	codec := DefaultCodec()

	valid, err := codec.Encode(&Breakpoint{ID: "id"})
	require.NoError(t, err)

	unknownField, err := cbor.Marshal(map[int]interface{}{1: "id", 99: true})
	require.NoError(t, err)

	noID, err := cbor.Marshal(map[int]interface{}{3: "cond"})
	require.NoError(t, err)

	for name, data := range map[string][]byte{
		"Empty":         {},
		"Text":          []byte("some-id"),
		"Integer":       {0x18, 0x2a},
		"Truncated":     valid[:len(valid)-1],
		"TrailingBytes": append(append([]byte{}, valid...), 0x00),
		"UnknownField":  unknownField,
		"MissingID":     noID,
	} {
		data := data
		t.Run(name, func(t *testing.T) {
			bp, err := codec.Decode(data)
			assert.Error(t, err)
			assert.Nil(t, bp)
		})
	}
}

func TestClone(t *testing.T) {
	orig := hitBreakpoint()
	c := orig.Clone()
	assert.Equal(t, orig, c)

	c.Location.Line = 1
	c.Expressions[0] = "j"
	c.StackFrames[0].Locals[0].Members[0].Value = "Grace"
	c.Status.Message = "changed"

	assert.Equal(t, hitBreakpoint(), orig)
	assert.Nil(t, (*Breakpoint)(nil).Clone())
}

func TestNew(t *testing.T) {
	a := New("a.cs", 1)
	b := New("a.cs", 1)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Activated)
	assert.Equal(t, "a.cs:1", a.Location.String())
}
