// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package frame recovers marker delimited frames from a chunked byte stream.
package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/simonz130/dbgpipe"
)

// ErrFramingViolation is returned when the buffered bytes cannot be a frame:
// they do not start with the start marker, or the payload between the
// markers is not a valid encoding. The position of the stream is lost and
// no attempt is made to resynchronize.
var ErrFramingViolation = errors.New("frame: framing violation")

var errInvalidRead = errors.New("frame: reader returned invalid count")

const (
	minSize    = 2048
	cutoffSize = 128 * 1024
)

// Buffer accumulates bytes received from a transport and extracts complete
// frames from them. Buffer is not safe for concurrent use.
type Buffer struct {
	markers Markers

	// data[head:] holds the bytes not yet resolved into frames. Everything
	// before head has been consumed and is reclaimed lazily.
	data []byte
	head int

	// scanned is how many bytes after the start marker of the pending
	// frame were already searched for the end marker.
	scanned int

	// offset is the stream position of head, for error reporting.
	offset int64
}

// NewBuffer creates an empty Buffer delimiting frames with markers.
func NewBuffer(markers Markers) *Buffer {
	return &Buffer{markers: markers}
}

// Len returns the number of buffered bytes not yet consumed.
func (b *Buffer) Len() int {
	return len(b.data) - b.head
}

// Append adds a copy of p to the tail of the buffer.
func (b *Buffer) Append(p []byte) {
	b.reserve(len(p))
	b.data = append(b.data, p...)
}

// ReadFrom reads one chunk of at most size bytes from r straight into the
// tail of the buffer. Bytes returned together with an error are kept.
func (b *Buffer) ReadFrom(ctx context.Context, r dbgpipe.ReaderContext, size int) (int, error) {
	b.reserve(size)

	tail := len(b.data)
	n, err := r.ReadContext(ctx, b.data[tail:tail+size])
	if n < 0 || n > size {
		return 0, fmt.Errorf("%w: %d", errInvalidRead, n)
	}
	b.data = b.data[:tail+n]

	return n, err
}

// Next returns the payload of the earliest complete frame and advances past
// it. It returns nil and no error when more bytes are needed. The returned
// slice aliases the buffer and is only valid until the next Append or
// ReadFrom.
func (b *Buffer) Next() ([]byte, error) {
	pending := b.data[b.head:]
	if len(pending) == 0 {
		return nil, nil
	}

	start, end := b.markers.start, b.markers.end
	if n := min(len(pending), len(start)); !bytes.Equal(pending[:n], start[:n]) {
		return nil, fmt.Errorf("%w: no start marker at stream offset %d", ErrFramingViolation, b.offset)
	}
	if len(pending) < len(start) {
		return nil, nil
	}

	body := pending[len(start):]
	from := max(b.scanned-(len(end)-1), 0)
	i := bytes.Index(body[from:], end)
	if i < 0 {
		b.scanned = len(body)
		return nil, nil
	}

	size := from + i
	consumed := len(start) + size + len(end)
	b.head += consumed
	b.offset += int64(consumed)
	b.scanned = 0

	return body[:size:size], nil
}

// reserve makes room for at least n more bytes after the tail.
func (b *Buffer) reserve(n int) {
	if b.head == len(b.data) {
		// everything was consumed, start over at the beginning
		b.data = b.data[:0]
		b.head = 0
	}
	if cap(b.data)-len(b.data) >= n {
		return
	}

	unread := len(b.data) - b.head
	if b.head >= unread && cap(b.data)-unread >= n {
		// the copy is paid for by the bytes consumed since the last move
		copy(b.data, b.data[b.head:])
		b.data = b.data[:unread]
		b.head = 0
		return
	}

	size := max(cap(b.data), minSize)
	for size-unread < n {
		if size < cutoffSize {
			size *= 2
		} else {
			size = 5 * size / 4
		}
	}

	data := make([]byte, unread, size)
	copy(data, b.data[b.head:])
	b.data = data
	b.head = 0
}
