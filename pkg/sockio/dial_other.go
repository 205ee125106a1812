// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !linux
// +build !linux

package sockio

import (
	"net"
	"time"
)

// This file implements a Dialer for operating systems next to Linux. The other
// file additionally sets specific socket options for a better detection of
// connection losses.

// Dial a new TCP connection with a configured timeout and keepalive.
func Dial(address string) (*Conn, error) {
	dialer := &net.Dialer{
		Timeout:   time.Second,
		KeepAlive: 5 * time.Second,
	}

	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, err
	}

	return NewConn(conn.(*net.TCPConn))
}
