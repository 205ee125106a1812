// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package exchange implements the point-to-point message exchange on top of
// the xfer transfer machinery: HTTP-framed requests and responses carrying
// serialized messages over persistent TCP connections.
//
// The Server dispatches each decoded message to a Handler and answers with
// the Handler's reply. The Client posts messages and delivers results as
// explicit Call values instead of completion callbacks, optionally bounded by
// a context deadline that cancels by tearing the connection down.
package exchange
