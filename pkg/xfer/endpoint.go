// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xfer

import (
	"errors"
	"os"
	"syscall"
)

// Endpoint is a connected byte stream with non-blocking semantics, e.g., a
// socket in non-blocking mode. Both methods perform at most one I/O attempt
// and must not wait for readiness; a not-ready endpoint reports an error for
// which IsWouldBlock holds.
type Endpoint interface {
	// Receive reads up to len(p) bytes into p.
	Receive(p []byte) (int, error)

	// Send writes up to len(p) bytes from p.
	Send(p []byte) (int, error)
}

// ErrPeerClosed is reported for a zero-byte successful read on an incomplete
// Buffer. With a fixed amount of bytes outstanding, a zero-length read can
// only mean end-of-stream; "nothing to read" surfaces as would-block instead.
var ErrPeerClosed = errors.New("remote has closed the connection")

// ErrZeroWrite is reported for a zero-byte successful write on an incomplete
// Buffer. A writable non-blocking endpoint must accept at least one byte.
var ErrZeroWrite = errors.New("cannot write zero bytes")

// IsWouldBlock checks if err indicates a not-ready endpoint instead of a real
// failure. Next to EAGAIN and EWOULDBLOCK, timeouts are included so that
// deadline-driven net.Conn endpoints can signal would-block as well.
func IsWouldBlock(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
		return true
	}

	return os.IsTimeout(err)
}
