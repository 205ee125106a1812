// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sockio

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/Descantly/tikv/pkg/xfer"
)

// connPair builds a loopback TCP connection, returning the accepted side
// wrapped as Conn next to the dialing side.
func connPair(t *testing.T) (*Conn, net.Conn) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()

	connChan := make(chan net.Conn)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			t.Error(err)
		}
		connChan <- conn
	}()

	peer, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	accepted := <-connChan
	conn, err := NewConn(accepted.(*net.TCPConn))
	if err != nil {
		t.Fatal(err)
	}

	return conn, peer
}

func TestConnReceive(t *testing.T) {
	conn, peer := connPair(t)
	defer func() { _ = conn.Close() }()
	defer func() { _ = peer.Close() }()

	var b xfer.Buffer
	b.Reset(5)

	// Nothing was sent yet; the attempt must report would-block, not block.
	if outcome, err := b.ReadFrom(conn); err != nil || outcome != xfer.Pending {
		t.Fatalf("empty socket: got %v, %v", outcome, err)
	}

	if _, err := peer.Write([]byte("hel")); err != nil {
		t.Fatal(err)
	}
	if err := conn.AwaitReadable(); err != nil {
		t.Fatal(err)
	}
	if outcome, err := b.ReadFrom(conn); err != nil || outcome != xfer.Progressed {
		t.Fatalf("first chunk: got %v, %v", outcome, err)
	}

	if _, err := peer.Write([]byte("lo")); err != nil {
		t.Fatal(err)
	}
	for b.Remaining() > 0 {
		if err := conn.AwaitReadable(); err != nil {
			t.Fatal(err)
		}
		if _, err := b.ReadFrom(conn); err != nil {
			t.Fatal(err)
		}
	}

	if !bytes.Equal(b.Bytes(), []byte("hello")) {
		t.Fatalf("received %q", b.Bytes())
	}
}

func TestConnReceiveClosed(t *testing.T) {
	conn, peer := connPair(t)
	defer func() { _ = conn.Close() }()

	if err := peer.Close(); err != nil {
		t.Fatal(err)
	}
	if err := conn.AwaitReadable(); err != nil {
		t.Fatal(err)
	}

	var b xfer.Buffer
	b.Reset(1)

	if _, err := b.ReadFrom(conn); !errors.Is(err, xfer.ErrPeerClosed) {
		t.Fatalf("expected ErrPeerClosed, got %v", err)
	}
}

func TestConnSend(t *testing.T) {
	conn, peer := connPair(t)
	defer func() { _ = conn.Close() }()
	defer func() { _ = peer.Close() }()

	w := xfer.NewWriter()
	w.Load([]byte("over the wire"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for !w.Done() {
			if _, err := w.Progress(conn); err != nil {
				t.Error(err)
				return
			}
			if w.Done() {
				return
			}
			if err := conn.AwaitWritable(); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	received := make([]byte, 13)
	if _, err := io.ReadFull(peer, received); err != nil {
		t.Fatal(err)
	}
	if string(received) != "over the wire" {
		t.Fatalf("received %q", received)
	}

	<-done
}
