// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package packetio provides a chunk buffer that keeps write boundaries.
package packetio

import (
	"context"
	"errors"
	"io"
	"sync"
)

var (
	// ErrFull is returned when the buffer has hit the configured limits.
	ErrFull = errors.New("packetio.Buffer is full, discarding write")

	errChunkTooBig = errors.New("chunk too big")
)

// Buffer allows writing chunks to an intermediate buffer, which can then be
// read from. It is similar to bytes.Buffer but never combines multiple
// writes into a single read, so it models transports that deliver data in
// chunks of their own choosing.
type Buffer struct {
	mutex sync.Mutex

	// this is a circular buffer.  If head <= tail, then the useful
	// data is in the interval [head, tail[.  If tail < head, then
	// the useful data is the union of [head, len[ and [0, tail[.
	// In order to avoid ambiguity when head = tail, we always leave
	// an unused byte in the buffer.
	data       []byte
	head, tail int

	notify chan struct{}
	closed bool

	count                 int
	limitCount, limitSize int
}

const (
	minSize    = 2048
	cutoffSize = 128 * 1024
	maxSize    = 4 * 1024 * 1024

	// every stored chunk is prefixed by its 16 bit length
	headerSize = 2
)

// MaxChunk is the largest chunk a Buffer accepts.
const MaxChunk = 0xFFFF

// NewBuffer creates a new Buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		notify: make(chan struct{}, 1),
	}
}

// available returns true if the buffer is large enough to fit a chunk
// of the given size, not taking overhead into account.
func (b *Buffer) available(size int) bool {
	available := b.head - b.tail
	if available <= 0 {
		available += len(b.data)
	}
	// we interpret head=tail as empty, so always keep a byte free
	return size+1 <= available
}

// grow increases the size of the buffer.  If it returns nil, then the
// buffer has been grown.  It returns ErrFull if hits a limit.
func (b *Buffer) grow() error {
	var newSize int
	if len(b.data) < cutoffSize {
		newSize = 2 * len(b.data)
	} else {
		newSize = 5 * len(b.data) / 4
	}
	if newSize < minSize {
		newSize = minSize
	}
	if b.limitSize <= 0 && newSize > maxSize {
		newSize = maxSize
	}

	// one byte slack
	if b.limitSize > 0 && newSize > b.limitSize+1 {
		newSize = b.limitSize + 1
	}

	if newSize <= len(b.data) {
		return ErrFull
	}

	newData := make([]byte, newSize)

	var n int
	if b.head <= b.tail {
		// data was contiguous
		n = copy(newData, b.data[b.head:b.tail])
	} else {
		// data was discontinuous
		n = copy(newData, b.data[b.head:])
		n += copy(newData[n:], b.data[:b.tail])
	}
	b.head = 0
	b.tail = n
	b.data = newData

	return nil
}

func (b *Buffer) consumeByte() byte {
	c := b.data[b.head]
	b.head++
	if b.head >= len(b.data) {
		b.head = 0
	}
	return c
}

func (b *Buffer) writeByte(c byte) {
	b.data[b.tail] = c
	b.tail++
	if b.tail >= len(b.data) {
		b.tail = 0
	}
}

// The caller should make sure in can be completely accommodated in b.data.
func (b *Buffer) writeFromInputBuffer(in []byte) {
	n := copy(b.data[b.tail:], in)
	b.tail += n
	if b.tail >= len(b.data) {
		// we reached the end, wrap around
		b.tail = copy(b.data, in[n:])
	}
}

func (b *Buffer) writeToInputBuffer(out []byte, length int) {
	if b.head+length < len(b.data) {
		copy(out, b.data[b.head:b.head+length])
	} else {
		k := copy(out, b.data[b.head:])
		copy(out[k:], b.data[:length-k])
	}
}

func (b *Buffer) advanceHead(count int) {
	b.head += count
	if b.head >= len(b.data) {
		b.head -= len(b.data)
	}
}

// Write appends a copy of the chunk to the buffer.
// Returns ErrFull if the chunk doesn't fit.
// Chunks are limited to 65535 bytes by the internal data structure.
func (b *Buffer) Write(chunk []byte) (int, error) {
	if len(chunk) > MaxChunk {
		return 0, errChunkTooBig
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return 0, io.ErrClosedPipe
	}

	lenWithHeader := headerSize + len(chunk)
	if (b.limitCount > 0 && b.count >= b.limitCount) ||
		(b.limitSize > 0 && b.size()+lenWithHeader > b.limitSize) {
		return 0, ErrFull
	}

	// grow the buffer until the chunk fits
	for !b.available(lenWithHeader) {
		if err := b.grow(); err != nil {
			return 0, err
		}
	}

	b.writeByte(uint8(len(chunk) >> 8)) //nolint:gosec
	b.writeByte(uint8(len(chunk)))      //nolint:gosec
	b.writeFromInputBuffer(chunk)
	b.count++

	select {
	case b.notify <- struct{}{}:
	default:
	}

	return len(chunk), nil
}

// Read reads the next chunk into buff, blocking until one is available or
// the buffer is closed.
func (b *Buffer) Read(buff []byte) (int, error) {
	return b.ReadContext(context.Background(), buff)
}

// ReadContext reads the next chunk into buff. It blocks until a chunk is
// available, the buffer is closed or ctx is done. Returns
// io.ErrShortBuffer if buff is too small for the chunk; the chunk is still
// consumed. Returns io.EOF once the buffer is closed and drained.
func (b *Buffer) ReadContext(ctx context.Context, buff []byte) (int, error) {
	for {
		// don't hand out data once the caller gave up
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		b.mutex.Lock()

		if b.head != b.tail {
			n1 := b.consumeByte()
			n2 := b.consumeByte()
			count := int(uint16(n1)<<8 | uint16(n2))

			copied := min(count, len(buff))
			b.writeToInputBuffer(buff, copied)
			b.advanceHead(count)

			if b.head == b.tail {
				// the buffer is empty, reset to beginning
				// in order to improve cache locality.
				b.head = 0
				b.tail = 0
			}

			b.count--
			b.mutex.Unlock()

			if copied < count {
				return copied, io.ErrShortBuffer
			}
			return copied, nil
		}

		if b.closed {
			b.mutex.Unlock()
			return 0, io.EOF
		}
		b.mutex.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-b.notify:
		}
	}
}

// Close the buffer, unblocking any pending reads.
// Data in the buffer can still be read, Read will return io.EOF only when empty.
func (b *Buffer) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	close(b.notify)

	return nil
}

// Count returns the number of chunks in the buffer.
func (b *Buffer) Count() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.count
}

// SetLimitCount controls the maximum number of chunks that can be buffered.
// Causes Write to return ErrFull when this limit is reached.
// A zero value will disable this limit.
func (b *Buffer) SetLimitCount(limit int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.limitCount = limit
}

// Size returns the total byte size of chunks in the buffer, including
// a small amount of administrative overhead.
func (b *Buffer) Size() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.size()
}

func (b *Buffer) size() int {
	size := b.tail - b.head
	if size < 0 {
		size += len(b.data)
	}
	return size
}

// SetLimitSize controls the maximum number of bytes that can be buffered.
// Causes Write to return ErrFull when this limit is reached.
// A zero value means 4MB.
func (b *Buffer) SetLimitSize(limit int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.limitSize = limit
}
