// Package test provides helpers to test breakpoint channels and the
// transports under them.
// The helpers are standardized around the dbgpipe.Transport interface.
// This package is meant to be used in addition to golang.org/x/net/nettest.
package test
