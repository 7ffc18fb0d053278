// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package frame

import (
	"bytes"
	"errors"
)

// Default marker values shared by the agent and the debugger.
const (
	DefaultStartMarker = "START_DEBUG_MESSAGE"
	DefaultEndMarker   = "END_DEBUG_MESSAGE"
)

var (
	errEmptyMarker       = errors.New("frame: marker must not be empty")
	errEqualMarkers      = errors.New("frame: start and end markers must differ")
	errOverlappedMarkers = errors.New("frame: one marker contains the other")
)

// Markers is the immutable pair of byte sequences delimiting a frame.
// The zero value is not usable, create one with NewMarkers or DefaultMarkers.
type Markers struct {
	start []byte
	end   []byte
}

// NewMarkers validates and copies the given start and end markers.
func NewMarkers(start, end []byte) (Markers, error) {
	if len(start) == 0 || len(end) == 0 {
		return Markers{}, errEmptyMarker
	}
	if bytes.Equal(start, end) {
		return Markers{}, errEqualMarkers
	}
	if bytes.Contains(start, end) || bytes.Contains(end, start) {
		return Markers{}, errOverlappedMarkers
	}

	return Markers{
		start: append([]byte(nil), start...),
		end:   append([]byte(nil), end...),
	}, nil
}

// DefaultMarkers returns the markers used by the debugger.
func DefaultMarkers() Markers {
	return Markers{
		start: []byte(DefaultStartMarker),
		end:   []byte(DefaultEndMarker),
	}
}

// Start returns a copy of the start marker.
func (m Markers) Start() []byte {
	return append([]byte(nil), m.start...)
}

// End returns a copy of the end marker.
func (m Markers) End() []byte {
	return append([]byte(nil), m.end...)
}

// IsZero reports whether m was never initialized.
func (m Markers) IsZero() bool {
	return len(m.start) == 0 && len(m.end) == 0
}

// Overhead is the number of bytes the markers add to every frame.
func (m Markers) Overhead() int {
	return len(m.start) + len(m.end)
}

// Wrap returns start + payload + end as one contiguous slice.
func (m Markers) Wrap(payload []byte) []byte {
	out := make([]byte, 0, m.Overhead()+len(payload))
	out = append(out, m.start...)
	out = append(out, payload...)
	return append(out, m.end...)
}

// ContainsEnd reports whether payload holds a byte run equal to the end
// marker. Such a payload cannot be framed: the reader would cut it short.
func (m Markers) ContainsEnd(payload []byte) bool {
	return bytes.Contains(payload, m.end)
}
