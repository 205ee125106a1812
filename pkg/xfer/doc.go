// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package xfer implements the accumulation of fixed-size byte payloads over
// non-blocking endpoints, e.g., sockets driven by readiness notifications.
//
// A single non-blocking I/O attempt never guarantees a full transfer. The
// Buffer tracks a cursor into an owned payload and advances it by at most one
// Receive or Send attempt per call, classifying each attempt's result as
// Pending, Progressed or Complete. A zero-byte successful read on an
// incomplete Buffer means the peer closed the stream and is reported as
// ErrPeerClosed, never as progress; a would-block condition is no error at
// all, just a hint to wait for the next readiness notification.
//
// Reader and Writer compose a Buffer into the two-state machine used by
// connection sessions: Accumulating while Remaining is positive, Ready once
// the whole payload was transferred in one direction.
//
// A Buffer is exclusively owned by the session driving it. No locking is done
// and none is needed as long as the single-owner contract holds.
package xfer
