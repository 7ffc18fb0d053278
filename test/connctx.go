package test

import (
	"context"
	"io"

	"github.com/simonz130/dbgpipe"
)

// WrapReadWriter adapts a plain io.ReadWriter to dbgpipe.Transport.
// The context is ignored, so calls block as long as rw does.
func WrapReadWriter(rw io.ReadWriter) dbgpipe.Transport {
	return &wrappedReadWriter{rw}
}

type wrappedReadWriter struct {
	io.ReadWriter
}

func (r *wrappedReadWriter) ReadContext(_ context.Context, b []byte) (int, error) {
	return r.ReadWriter.Read(b)
}

func (r *wrappedReadWriter) WriteContext(_ context.Context, b []byte) (int, error) {
	return r.ReadWriter.Write(b)
}
