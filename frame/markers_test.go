// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMarkers(t *testing.T) {
	for name, test := range map[string]struct {
		start, end []byte
		err        error
	}{
		"Valid":        {[]byte("<<"), []byte(">>"), nil},
		"EmptyStart":   {nil, []byte(">>"), errEmptyMarker},
		"EmptyEnd":     {[]byte("<<"), []byte{}, errEmptyMarker},
		"Equal":        {[]byte("||"), []byte("||"), errEqualMarkers},
		"EndInStart":   {[]byte("<<>>"), []byte(">>"), errOverlappedMarkers},
		"StartInEnd":   {[]byte("<"), []byte("<>"), errOverlappedMarkers},
		"SingleByte":   {[]byte{0x02}, []byte{0x03}, nil},
		"DefaultPairs": {[]byte(DefaultStartMarker), []byte(DefaultEndMarker), nil},
	} {
		test := test
		t.Run(name, func(t *testing.T) {
			m, err := NewMarkers(test.start, test.end)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				assert.True(t, m.IsZero())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.start, m.Start())
			assert.Equal(t, test.end, m.End())
		})
	}
}

func TestMarkersAreCopied(t *testing.T) {
	start := []byte("<<")
	m, err := NewMarkers(start, []byte(">>"))
	assert.NoError(t, err)

	start[0] = 'x'
	got := m.Start()
	got[1] = 'y'

	assert.Equal(t, []byte("<<"), m.Start())
}

func TestMarkersWrap(t *testing.T) {
	m := DefaultMarkers()

	out := m.Wrap([]byte("body"))
	assert.Equal(t, DefaultStartMarker+"body"+DefaultEndMarker, string(out))
	assert.Equal(t, len(out), m.Overhead()+4)
	assert.Equal(t, cap(out), len(out))
}

func TestMarkersContainsEnd(t *testing.T) {
	m := DefaultMarkers()

	assert.False(t, m.ContainsEnd([]byte("plain")))
	assert.True(t, m.ContainsEnd([]byte("x"+DefaultEndMarker+"y")))
}
