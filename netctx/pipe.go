// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package netctx

import (
	"net"
)

// Pipe creates a synchronous, in-memory pair of Conn. Unlike dpipe, a
// write may be split across several reads, like a real byte stream.
func Pipe() (Conn, Conn) {
	ca, cb := net.Pipe()
	return NewConn(ca), NewConn(cb)
}
