// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xfer

import (
	"fmt"
)

// Reader accumulates one inbound framed payload of known length. The expected
// length comes from the connection's header parsing, not from this package.
//
// A Reader is Accumulating while Ready is false and becomes Ready strictly
// through Progress calls driven by readiness notifications. A failed Progress
// is terminal for the connection; the Reader does not retry.
type Reader struct {
	buf Buffer
}

// NewReader creates an empty Reader. Expect must be called before Progress.
func NewReader() *Reader {
	return &Reader{}
}

func (r *Reader) String() string {
	return fmt.Sprintf("INCOMING_TRANSFER(%d/%d)", r.buf.Pos(), r.buf.Len())
}

// Expect sizes the Reader for an inbound payload of size bytes, discarding any
// previous payload.
func (r *Reader) Expect(size int) {
	r.buf.Reset(size)
}

// Progress performs one non-blocking read attempt from the Endpoint.
func (r *Reader) Progress(ep Endpoint) (Outcome, error) {
	return r.buf.ReadFrom(ep)
}

// Ready indicates that the whole payload arrived and may be decoded.
func (r *Reader) Ready() bool {
	return r.buf.Remaining() == 0
}

// Bytes returns the accumulated payload. Only meaningful once Ready.
func (r *Reader) Bytes() []byte {
	return r.buf.Bytes()
}
