// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sockio connects the xfer package to real TCP sockets. A Conn
// performs single non-blocking read and write attempts against the socket's
// file descriptor and lets the owning session wait for readiness through the
// runtime's netpoller, which takes the role of the reactor: AwaitReadable and
// AwaitWritable park the session's goroutine without occupying a thread until
// the kernel signals the socket.
package sockio

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// Conn is a non-blocking xfer.Endpoint over a TCP connection.
//
// Go sockets are non-blocking on the file descriptor level, so a raw read or
// write attempt returns EAGAIN instead of suspending when the socket is not
// ready. A Conn must only be driven by one session at a time.
type Conn struct {
	conn *net.TCPConn
	raw  syscall.RawConn
}

// NewConn wraps an accepted or dialed TCP connection.
func NewConn(conn *net.TCPConn) (*Conn, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, err
	}

	return &Conn{
		conn: conn,
		raw:  raw,
	}, nil
}

// Receive performs exactly one non-blocking read attempt. A not-ready socket
// reports EAGAIN; a zero-byte result with nil error is end-of-stream.
func (c *Conn) Receive(p []byte) (n int, err error) {
	doErr := c.raw.Read(func(fd uintptr) bool {
		n, err = unix.Read(int(fd), p)
		return true
	})

	if doErr != nil {
		return 0, doErr
	}
	if n < 0 {
		n = 0
	}
	return
}

// Send performs exactly one non-blocking write attempt.
func (c *Conn) Send(p []byte) (n int, err error) {
	doErr := c.raw.Write(func(fd uintptr) bool {
		n, err = unix.Write(int(fd), p)
		return true
	})

	if doErr != nil {
		return 0, doErr
	}
	if n < 0 {
		n = 0
	}
	return
}

// AwaitReadable parks the calling goroutine until the socket is readable
// again. To be called after a Pending outcome before the next read attempt.
func (c *Conn) AwaitReadable() error {
	var ready bool
	return c.raw.Read(func(uintptr) bool {
		if !ready {
			ready = true
			return false
		}
		return true
	})
}

// AwaitWritable parks the calling goroutine until the socket is writable again.
func (c *Conn) AwaitWritable() error {
	var ready bool
	return c.raw.Write(func(uintptr) bool {
		if !ready {
			ready = true
			return false
		}
		return true
	})
}

// Close the underlying connection. Closing interrupts pending Await calls,
// which is how a connection-level timeout cancels a running session.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn) String() string {
	return fmt.Sprintf("sock://%v", c.conn.RemoteAddr())
}
