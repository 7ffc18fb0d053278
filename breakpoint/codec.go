// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package breakpoint

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	errNilBreakpoint = errors.New("breakpoint: nil breakpoint")
	errMissingID     = errors.New("breakpoint: missing id")
)

// Codec converts a breakpoint to payload bytes and back. Decode must fail
// when data is not a valid encoding.
type Codec interface {
	Encode(b *Breakpoint) ([]byte, error)
	Decode(data []byte) (*Breakpoint, error)
}

// CBORCodec encodes breakpoints as deterministic CBOR maps with integer
// keys. Decoding is strict: unknown fields, duplicate keys, indefinite
// lengths and trailing bytes are rejected.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec = (*CBORCodec)(nil)

// NewCBORCodec creates a CBORCodec.
func NewCBORCodec() (*CBORCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}

	dec, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		return nil, err
	}

	return &CBORCodec{enc: enc, dec: dec}, nil
}

var defaultCodec = func() *CBORCodec {
	c, err := NewCBORCodec()
	if err != nil {
		panic(err)
	}
	return c
}()

// DefaultCodec returns the shared CBORCodec used by both ends of the pipe.
func DefaultCodec() *CBORCodec {
	return defaultCodec
}

// Encode implements Codec.
func (c *CBORCodec) Encode(b *Breakpoint) ([]byte, error) {
	if b == nil {
		return nil, errNilBreakpoint
	}
	if b.ID == "" {
		return nil, errMissingID
	}

	data, err := c.enc.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("breakpoint: encode %s: %w", b.ID, err)
	}

	return data, nil
}

// Decode implements Codec.
func (c *CBORCodec) Decode(data []byte) (*Breakpoint, error) {
	b := &Breakpoint{}
	if err := c.dec.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("breakpoint: decode: %w", err)
	}
	if b.ID == "" {
		return nil, errMissingID
	}

	return b, nil
}
