// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package test

import (
	"context"
	mrand "math/rand"

	"github.com/simonz130/dbgpipe"
)

// Rechunk wraps next so every write is split into pieces of random size,
// at most maxChunk bytes each, and sent as separate writes. It models a
// transport that is free to fragment data on its way.
func Rechunk(next dbgpipe.Transport, maxChunk int) dbgpipe.Transport {
	if maxChunk < 1 {
		maxChunk = 1
	}
	return &rechunker{Transport: next, maxChunk: maxChunk}
}

type rechunker struct {
	dbgpipe.Transport
	maxChunk int
}

func (r *rechunker) WriteContext(ctx context.Context, b []byte) (int, error) {
	written := 0
	for written < len(b) {
		size := 1 + mrand.Intn(r.maxChunk) //nolint:gosec
		if size > len(b)-written {
			size = len(b) - written
		}
		n, err := r.Transport.WriteContext(ctx, b[written:written+size])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
