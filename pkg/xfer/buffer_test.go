// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xfer

import (
	"bytes"
	"errors"
	"fmt"
	"syscall"
	"testing"
)

// scriptStep describes one Receive/Send result of a scriptEndpoint.
type scriptStep struct {
	n     int
	err   error
	close bool
}

// scriptEndpoint replays a fixed sequence of I/O results. Receive fills the
// destination with sequential bytes so tests can check payload placement.
type scriptEndpoint struct {
	steps []scriptStep
	next  byte

	sent bytes.Buffer
}

func (se *scriptEndpoint) pop() scriptStep {
	if len(se.steps) == 0 {
		return scriptStep{close: true}
	}

	step := se.steps[0]
	se.steps = se.steps[1:]
	return step
}

func (se *scriptEndpoint) Receive(p []byte) (int, error) {
	step := se.pop()
	if step.close {
		return 0, nil
	}
	if step.err != nil {
		return 0, step.err
	}

	n := step.n
	if n > len(p) {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		p[i] = se.next
		se.next++
	}
	return n, nil
}

func (se *scriptEndpoint) Send(p []byte) (int, error) {
	step := se.pop()
	if step.close {
		return 0, nil
	}
	if step.err != nil {
		return 0, step.err
	}

	n := step.n
	if n > len(p) {
		n = len(p)
	}
	se.sent.Write(p[:n])
	return n, nil
}

func TestBufferResetRemaining(t *testing.T) {
	var b Buffer

	for _, size := range []int{0, 1, 10, 4096, 2} {
		b.Reset(size)
		if b.Remaining() != size {
			t.Fatalf("Remaining after Reset(%d) is %d", size, b.Remaining())
		}
		if b.Pos() != 0 {
			t.Fatalf("Pos after Reset(%d) is %d", size, b.Pos())
		}
	}
}

func TestBufferByteWiseRead(t *testing.T) {
	for _, size := range []int{0, 1, 7, 64} {
		var b Buffer
		b.Reset(size)

		steps := make([]scriptStep, size)
		for i := range steps {
			steps[i] = scriptStep{n: 1}
		}
		ep := &scriptEndpoint{steps: steps}

		calls := 0
		for b.Remaining() > 0 {
			if _, err := b.ReadFrom(ep); err != nil {
				t.Fatalf("size %d: call %d errored: %v", size, calls, err)
			}
			calls++
		}

		if calls != size {
			t.Fatalf("size %d: needed %d calls", size, calls)
		}
		if b.Pos() != size || b.Remaining() != 0 {
			t.Fatalf("size %d: pos %d, remaining %d", size, b.Pos(), b.Remaining())
		}
	}
}

func TestBufferReadCompleteNoop(t *testing.T) {
	var b Buffer
	b.Reset(3)

	ep := &scriptEndpoint{steps: []scriptStep{{n: 3}}}
	if outcome, err := b.ReadFrom(ep); err != nil || outcome != Complete {
		t.Fatalf("expected COMPLETE, got %v, %v", outcome, err)
	}

	// No steps are left; a further read attempt must not touch the endpoint.
	for i := 0; i < 2; i++ {
		if outcome, err := b.ReadFrom(ep); err != nil || outcome != Complete {
			t.Fatalf("no-op call %d: got %v, %v", i, outcome, err)
		}
		if b.Pos() != 3 {
			t.Fatalf("no-op call %d moved cursor to %d", i, b.Pos())
		}
	}
}

func TestBufferReadPeerClosed(t *testing.T) {
	var b Buffer
	b.Reset(5)

	ep := &scriptEndpoint{steps: []scriptStep{{close: true}}}
	if _, err := b.ReadFrom(ep); !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("expected ErrPeerClosed, got %v", err)
	}
	if b.Pos() != 0 {
		t.Fatalf("cursor moved to %d", b.Pos())
	}
}

func TestBufferWriteZeroBytes(t *testing.T) {
	var b Buffer
	b.Reset(5)

	ep := &scriptEndpoint{steps: []scriptStep{{close: true}}}
	if _, err := b.WriteTo(ep); !errors.Is(err, ErrZeroWrite) {
		t.Fatalf("expected ErrZeroWrite, got %v", err)
	}
}

func TestBufferWouldBlock(t *testing.T) {
	var b Buffer
	b.Reset(4)

	ep := &scriptEndpoint{steps: []scriptStep{
		{err: syscall.EAGAIN},
		{err: syscall.EWOULDBLOCK},
	}}

	for i := 0; i < 2; i++ {
		if outcome, err := b.ReadFrom(ep); err != nil || outcome != Pending {
			t.Fatalf("call %d: got %v, %v", i, outcome, err)
		}
		if b.Pos() != 0 {
			t.Fatalf("call %d moved cursor to %d", i, b.Pos())
		}
	}

	b.Reset(4)
	ep = &scriptEndpoint{steps: []scriptStep{{err: syscall.EAGAIN}}}
	if outcome, err := b.WriteTo(ep); err != nil || outcome != Pending {
		t.Fatalf("write: got %v, %v", outcome, err)
	}
}

func TestBufferIoFailure(t *testing.T) {
	var b Buffer
	b.Reset(4)

	broken := fmt.Errorf("wrapped: %w", syscall.ECONNRESET)
	ep := &scriptEndpoint{steps: []scriptStep{{err: broken}}}

	if _, err := b.ReadFrom(ep); !errors.Is(err, syscall.ECONNRESET) {
		t.Fatalf("expected ECONNRESET, got %v", err)
	}
}

func TestBufferReadTrace(t *testing.T) {
	var b Buffer
	b.Reset(10)

	ep := &scriptEndpoint{steps: []scriptStep{
		{n: 4},
		{err: syscall.EAGAIN},
		{n: 6},
	}}

	if outcome, err := b.ReadFrom(ep); err != nil || outcome != Progressed || b.Pos() != 4 {
		t.Fatalf("call 1: %v, %v, pos %d", outcome, err, b.Pos())
	}
	if outcome, err := b.ReadFrom(ep); err != nil || outcome != Pending || b.Pos() != 4 {
		t.Fatalf("call 2: %v, %v, pos %d", outcome, err, b.Pos())
	}
	if outcome, err := b.ReadFrom(ep); err != nil || outcome != Complete || b.Pos() != 10 {
		t.Fatalf("call 3: %v, %v, pos %d", outcome, err, b.Pos())
	}

	expect := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if !bytes.Equal(b.Bytes(), expect) {
		t.Fatalf("payload is %v", b.Bytes())
	}
}

func TestBufferWriteDrain(t *testing.T) {
	var b Buffer
	b.Reset(8)
	copy(b.Bytes(), []byte("msgxdata"))

	ep := &scriptEndpoint{steps: []scriptStep{
		{n: 3},
		{err: syscall.EAGAIN},
		{n: 2},
		{n: 3},
	}}

	outcomes := []Outcome{Progressed, Pending, Progressed, Complete}
	for i, expect := range outcomes {
		outcome, err := b.WriteTo(ep)
		if err != nil {
			t.Fatalf("call %d errored: %v", i, err)
		}
		if outcome != expect {
			t.Fatalf("call %d: expected %v, got %v", i, expect, outcome)
		}
	}

	if ep.sent.String() != "msgxdata" {
		t.Fatalf("sent %q", ep.sent.String())
	}

	// Idempotence after completion.
	if outcome, err := b.WriteTo(ep); err != nil || outcome != Complete || b.Pos() != 8 {
		t.Fatalf("post-complete call: %v, %v, pos %d", outcome, err, b.Pos())
	}
}

func TestBufferStorageReuse(t *testing.T) {
	var b Buffer
	b.Reset(64)

	before := &b.Bytes()[:1][0]
	b.Reset(16)
	after := &b.Bytes()[:1][0]

	if before != after {
		t.Fatal("Reset to a smaller size reallocated the payload")
	}
}
