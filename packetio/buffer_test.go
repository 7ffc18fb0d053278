// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package packetio

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuffer(t *testing.T) {
	assert := assert.New(t)

	buffer := NewBuffer()
	chunk := make([]byte, 4)

	// Write once
	n, err := buffer.Write([]byte{0, 1})
	assert.NoError(err)
	assert.Equal(2, n)

	// Read once
	n, err = buffer.Read(chunk)
	assert.NoError(err)
	assert.Equal(2, n)
	assert.Equal([]byte{0, 1}, chunk[:n])

	// Write twice, the chunks must not be merged
	n, err = buffer.Write([]byte{2, 3, 4})
	assert.NoError(err)
	assert.Equal(3, n)

	n, err = buffer.Write([]byte{5, 6, 7})
	assert.NoError(err)
	assert.Equal(3, n)

	// Read twice
	n, err = buffer.Read(chunk)
	assert.NoError(err)
	assert.Equal(3, n)
	assert.Equal([]byte{2, 3, 4}, chunk[:n])

	n, err = buffer.Read(chunk)
	assert.NoError(err)
	assert.Equal(3, n)
	assert.Equal([]byte{5, 6, 7}, chunk[:n])

	// Write once prior to close.
	_, err = buffer.Write([]byte{3})
	assert.NoError(err)

	// Close
	err = buffer.Close()
	assert.NoError(err)

	// Future writes will error
	_, err = buffer.Write([]byte{4})
	assert.ErrorIs(err, io.ErrClosedPipe)

	// But we can read the remaining data.
	n, err = buffer.Read(chunk)
	assert.NoError(err)
	assert.Equal(1, n)
	assert.Equal([]byte{3}, chunk[:n])

	// Until EOF
	_, err = buffer.Read(chunk)
	assert.Equal(io.EOF, err)
}

func TestBufferAsync(t *testing.T) {
	assert := assert.New(t)

	buffer := NewBuffer()

	// Start up a goroutine to start a blocking read.
	done := make(chan struct{})
	go func() {
		chunk := make([]byte, 4)

		n, err := buffer.Read(chunk)
		assert.NoError(err)
		assert.Equal(2, n)
		assert.Equal([]byte{0, 1}, chunk[:n])

		_, err = buffer.Read(chunk)
		assert.Equal(io.EOF, err)

		close(done)
	}()

	// Wait for the reader to start reading.
	time.Sleep(time.Millisecond)

	n, err := buffer.Write([]byte{0, 1})
	assert.NoError(err)
	assert.Equal(2, n)

	// Wait for the reader to start reading again.
	time.Sleep(time.Millisecond)

	// Close will unblock the reader.
	assert.NoError(buffer.Close())

	<-done
}

func TestBufferReadContextCancel(t *testing.T) {
	assert := assert.New(t)

	buffer := NewBuffer()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	n, err := buffer.ReadContext(ctx, make([]byte, 4))
	assert.ErrorIs(err, context.Canceled)
	assert.Empty(n)

	// a chunk written afterwards is still there for the next reader
	_, err = buffer.Write([]byte{9})
	assert.NoError(err)

	chunk := make([]byte, 4)
	n, err = buffer.ReadContext(context.Background(), chunk)
	assert.NoError(err)
	assert.Equal([]byte{9}, chunk[:n])
}

func TestBufferReadContextDoneKeepsData(t *testing.T) {
	assert := assert.New(t)

	buffer := NewBuffer()
	_, err := buffer.Write([]byte{1, 2})
	assert.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = buffer.ReadContext(ctx, make([]byte, 4))
	assert.ErrorIs(err, context.Canceled)
	assert.Equal(1, buffer.Count())
}

func TestBufferLimitCount(t *testing.T) {
	assert := assert.New(t)

	buffer := NewBuffer()
	buffer.SetLimitCount(2)

	assert.Equal(0, buffer.Count())

	// Write twice
	_, err := buffer.Write([]byte{0, 1})
	assert.NoError(err)
	_, err = buffer.Write([]byte{2, 3})
	assert.NoError(err)
	assert.Equal(2, buffer.Count())

	// Over capacity
	_, err = buffer.Write([]byte{4, 5})
	assert.Equal(ErrFull, err)
	assert.Equal(2, buffer.Count())

	// Read once
	chunk := make([]byte, 4)
	n, err := buffer.Read(chunk)
	assert.NoError(err)
	assert.Equal([]byte{0, 1}, chunk[:n])
	assert.Equal(1, buffer.Count())

	// Room for one more
	_, err = buffer.Write([]byte{6, 7})
	assert.NoError(err)
	assert.Equal(2, buffer.Count())

	assert.NoError(buffer.Close())
}

func TestBufferLimitSize(t *testing.T) {
	assert := assert.New(t)

	buffer := NewBuffer()
	// two chunks of two bytes, each with a two byte length header
	buffer.SetLimitSize(8)

	assert.Equal(0, buffer.Size())

	_, err := buffer.Write([]byte{0, 1})
	assert.NoError(err)
	assert.Equal(4, buffer.Size())

	_, err = buffer.Write([]byte{2, 3})
	assert.NoError(err)
	assert.Equal(8, buffer.Size())

	// Over capacity
	_, err = buffer.Write([]byte{4})
	assert.Equal(ErrFull, err)
	assert.Equal(8, buffer.Size())

	chunk := make([]byte, 4)
	n, err := buffer.Read(chunk)
	assert.NoError(err)
	assert.Equal([]byte{0, 1}, chunk[:n])
	assert.Equal(4, buffer.Size())

	n, err = buffer.Read(chunk)
	assert.NoError(err)
	assert.Equal([]byte{2, 3}, chunk[:n])
	assert.Equal(0, buffer.Size())
}

func TestBufferWrapAround(t *testing.T) {
	assert := assert.New(t)

	buffer := NewBuffer()
	chunk := make([]byte, 1000)
	out := make([]byte, 1000)

	// keep one chunk queued so head and tail never meet and the ring wraps
	for i := range chunk {
		chunk[i] = byte(i)
	}
	_, err := buffer.Write(chunk)
	assert.NoError(err)
	for i := 0; i < 20; i++ {
		chunk[0] = byte(i)
		_, err = buffer.Write(chunk)
		assert.NoError(err)

		n, err := buffer.Read(out)
		assert.NoError(err)
		assert.Equal(1000, n)
		assert.Equal(byte(999%256), out[999])
	}
	assert.Equal(1, buffer.Count())
}

func TestBufferMisc(t *testing.T) {
	assert := assert.New(t)

	buffer := NewBuffer()

	_, err := buffer.Write(make([]byte, MaxChunk+1))
	assert.ErrorIs(err, errChunkTooBig)

	n, err := buffer.Write([]byte{0, 1, 2, 3})
	assert.NoError(err)
	assert.Equal(4, n)

	// Try to read with a short buffer, the chunk is consumed anyway
	chunk := make([]byte, 3)
	n, err = buffer.Read(chunk)
	assert.Equal(io.ErrShortBuffer, err)
	assert.Equal(3, n)
	assert.Equal(0, buffer.Count())

	// Close
	assert.NoError(buffer.Close())

	// Make sure you can Close twice
	assert.NoError(buffer.Close())
}

func benchmarkBuffer(b *testing.B, size int64) {
	buffer := NewBuffer()
	b.SetBytes(size)

	done := make(chan struct{})
	go func() {
		chunk := make([]byte, size)

		for {
			_, err := buffer.Read(chunk)
			if err == io.EOF {
				break
			} else if err != nil {
				b.Error(err)
				break
			}
		}

		close(done)
	}()

	chunk := make([]byte, size)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for {
			_, err := buffer.Write(chunk)
			if err == nil {
				break
			}
			if err != ErrFull {
				b.Fatal(err)
			}
		}
	}

	if err := buffer.Close(); err != nil {
		b.Fatal(err)
	}

	<-done
}

func BenchmarkBuffer14(b *testing.B) {
	benchmarkBuffer(b, 14)
}

func BenchmarkBuffer1400(b *testing.B) {
	benchmarkBuffer(b, 1400)
}
