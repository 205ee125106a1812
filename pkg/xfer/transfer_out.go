// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package xfer

import (
	"fmt"
)

// Writer drains one outbound serialized payload across successive writable
// notifications. Like the Reader, it is a two-state machine: Accumulating
// until the Buffer ran empty, then Done. Failures are terminal; retrying is a
// connection-level policy of the owning session.
type Writer struct {
	buf Buffer
}

// NewWriter creates an empty Writer. Load must be called before Progress.
func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) String() string {
	return fmt.Sprintf("OUTGOING_TRANSFER(%d/%d)", w.buf.Pos(), w.buf.Len())
}

// Load stages p as the next outbound payload, discarding any previous one.
// The bytes are copied; the caller may reuse p afterwards.
func (w *Writer) Load(p []byte) {
	w.buf.Reset(len(p))
	copy(w.buf.Bytes(), p)
}

// Progress performs one non-blocking write attempt to the Endpoint.
func (w *Writer) Progress(ep Endpoint) (Outcome, error) {
	return w.buf.WriteTo(ep)
}

// Done indicates that the whole payload was written. The owning session may
// now Load the next message.
func (w *Writer) Done() bool {
	return w.buf.Remaining() == 0
}
