// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xfer

import (
	log "github.com/sirupsen/logrus"
)

// Outcome classifies one non-blocking transfer attempt.
type Outcome uint8

const (
	// Pending means no bytes were moved because the endpoint was not ready.
	// The caller must wait for the next readiness notification.
	Pending Outcome = iota

	// Progressed means bytes were moved, but the Buffer is not complete yet.
	Progressed

	// Complete means the whole payload has been transferred.
	Complete
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "PENDING"
	case Progressed:
		return "PROGRESSED"
	case Complete:
		return "COMPLETE"
	default:
		return "INVALID"
	}
}

// Buffer accumulates a fixed-size byte payload over possibly many non-blocking
// I/O attempts. The cursor pos tracks how many bytes were already transferred;
// 0 <= pos <= len(data) holds at all times and pos only ever grows until the
// next Reset.
//
// A Buffer must only be driven by a single owner. The zero value is an empty,
// complete Buffer ready for Reset.
type Buffer struct {
	pos  int
	data []byte
}

// Reset sizes the payload to size bytes and rewinds the cursor, discarding any
// prior content. The backing storage is reused if its capacity allows, so one
// Buffer can serve many messages without churning allocations.
func (b *Buffer) Reset(size int) {
	if cap(b.data) >= size {
		b.data = b.data[:size]
	} else {
		b.data = make([]byte, size)
	}
	b.pos = 0
}

// Remaining returns the number of bytes still to be transferred.
func (b *Buffer) Remaining() int {
	if b.pos >= len(b.data) {
		return 0
	}

	return len(b.data) - b.pos
}

// Pos returns the cursor, the number of bytes already transferred.
func (b *Buffer) Pos() int {
	return b.pos
}

// Len returns the payload's size.
func (b *Buffer) Len() int {
	return len(b.data)
}

// IsEmpty checks for a zero-sized payload.
func (b *Buffer) IsEmpty() bool {
	return len(b.data) == 0
}

// Bytes returns the whole payload. Callers must not decode before Remaining
// reached zero; partial prefixes are not meaningful.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// ReadFrom performs one non-blocking read attempt from the Endpoint into the
// incomplete part of the payload. A would-block condition is a successful call
// without progress. On a non-nil error the Outcome carries no meaning; errors
// are terminal for the Buffer's connection and are never retried here.
func (b *Buffer) ReadFrom(ep Endpoint) (Outcome, error) {
	if b.Remaining() == 0 {
		return Complete, nil
	}

	log.WithFields(log.Fields{
		"pos": b.pos,
		"len": len(b.data),
	}).Debug("Buffer tries to read")

	n, err := ep.Receive(b.data[b.pos:])
	if n > 0 {
		b.pos += n
		if b.Remaining() == 0 {
			return Complete, nil
		}
		return Progressed, nil
	}

	if err != nil {
		if IsWouldBlock(err) {
			return Pending, nil
		}
		return Pending, err
	}

	return Pending, ErrPeerClosed
}

// WriteTo performs one non-blocking write attempt of the incomplete part of
// the payload to the Endpoint. Symmetric to ReadFrom, except that a zero-byte
// successful write is reported as ErrZeroWrite.
func (b *Buffer) WriteTo(ep Endpoint) (Outcome, error) {
	if b.Remaining() == 0 {
		return Complete, nil
	}

	log.WithFields(log.Fields{
		"pos": b.pos,
		"len": len(b.data),
	}).Debug("Buffer tries to write")

	n, err := ep.Send(b.data[b.pos:])
	if n > 0 {
		b.pos += n
		if b.Remaining() == 0 {
			return Complete, nil
		}
		return Progressed, nil
	}

	if err != nil {
		if IsWouldBlock(err) {
			return Pending, nil
		}
		return Pending, err
	}

	return Pending, ErrZeroWrite
}
