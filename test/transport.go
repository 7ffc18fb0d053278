// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package test

import (
	"context"
	"sync"

	"github.com/simonz130/dbgpipe"
	"github.com/simonz130/dbgpipe/packetio"
)

var _ dbgpipe.Transport = (*Transport)(nil)

// Transport is a scripted dbgpipe.Transport. Each read returns exactly one
// queued chunk and blocks while none is queued. A chunk larger than the
// read buffer is returned over several reads. Writes are recorded.
// Every call is counted, including failed ones.
type Transport struct {
	in *packetio.Buffer

	readMu  sync.Mutex
	scratch []byte
	// rest of a chunk that did not fit the last read buffer
	pending []byte

	mu       sync.Mutex
	reads    int
	writes   int
	written  [][]byte
	readErr  error
	writeErr error
}

// NewTransport returns a Transport with chunks queued for reading.
func NewTransport(chunks ...[]byte) *Transport {
	t := &Transport{in: packetio.NewBuffer()}
	t.Push(chunks...)
	return t
}

// Push queues chunks for reading. It panics if a chunk can not be queued.
func (t *Transport) Push(chunks ...[]byte) {
	for _, chunk := range chunks {
		if _, err := t.in.Write(chunk); err != nil {
			panic(err)
		}
	}
}

// Close ends the read side. Queued chunks are still returned, then reads
// fail with io.EOF.
func (t *Transport) Close() error {
	return t.in.Close()
}

// FailReads makes every following read return err.
func (t *Transport) FailReads(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.readErr = err
}

// FailWrites makes every following write return err.
func (t *Transport) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.writeErr = err
}

// ReadContext implements dbgpipe.ReaderContext.
func (t *Transport) ReadContext(ctx context.Context, b []byte) (int, error) {
	t.mu.Lock()
	t.reads++
	err := t.readErr
	t.mu.Unlock()

	if err != nil {
		return 0, err
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()

	if len(t.pending) > 0 {
		n := copy(b, t.pending)
		t.pending = t.pending[n:]
		return n, nil
	}

	if t.scratch == nil {
		t.scratch = make([]byte, packetio.MaxChunk)
	}
	n, err := t.in.ReadContext(ctx, t.scratch)
	if err != nil {
		return 0, err
	}
	copied := copy(b, t.scratch[:n])
	t.pending = t.scratch[copied:n]
	return copied, nil
}

// WriteContext implements dbgpipe.WriterContext.
func (t *Transport) WriteContext(ctx context.Context, b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.writes++
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	t.written = append(t.written, append([]byte(nil), b...))

	return len(b), nil
}

// Reads returns the number of read calls so far.
func (t *Transport) Reads() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.reads
}

// Writes returns the number of write calls so far.
func (t *Transport) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.writes
}

// Written returns a copy of every successful write, in order.
func (t *Transport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([][]byte, len(t.written))
	copy(out, t.written)
	return out
}

// Pending returns the number of chunks queued and not yet read. A chunk
// partly returned to a short read still counts.
func (t *Transport) Pending() int {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	count := t.in.Count()
	if len(t.pending) > 0 {
		count++
	}
	return count
}
