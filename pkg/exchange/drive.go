// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exchange

import (
	"github.com/Descantly/tikv/pkg/msg"
	"github.com/Descantly/tikv/pkg/sockio"
	"github.com/Descantly/tikv/pkg/xfer"
)

// The drive functions below connect the transfer state machines to the
// reactor: each Pending outcome parks the session on the socket's readiness
// and each readiness notification triggers the next single attempt. They
// return once the transfer is complete or failed terminally.

func driveHead(hr *headReader, conn *sockio.Conn) error {
	for {
		outcome, err := hr.progress(conn)
		if err != nil {
			return err
		}
		if outcome == xfer.Complete {
			return nil
		}

		if err := conn.AwaitReadable(); err != nil {
			return err
		}
	}
}

func driveReader(r *xfer.Reader, conn *sockio.Conn) error {
	for !r.Ready() {
		outcome, err := r.Progress(conn)
		if err != nil {
			return err
		}
		if outcome == xfer.Pending {
			if err := conn.AwaitReadable(); err != nil {
				return err
			}
		}
	}

	return nil
}

func driveWriter(w *xfer.Writer, conn *sockio.Conn) error {
	for !w.Done() {
		outcome, err := w.Progress(conn)
		if err != nil {
			return err
		}
		if outcome == xfer.Pending {
			if err := conn.AwaitWritable(); err != nil {
				return err
			}
		}
	}

	return nil
}

// encodePayload serializes a Message into its wire payload and the announcing
// headFields. Payloads reaching compressThreshold bytes are xz-compressed; a
// zero threshold disables compression. The checksum covers the bytes as sent.
func encodePayload(m *msg.Message, compressThreshold int) (payload []byte, f headFields, err error) {
	if m == nil {
		return
	}

	if payload, err = m.Encode(); err != nil {
		return
	}

	if compressThreshold > 0 && len(payload) >= compressThreshold {
		if payload, err = compressPayload(payload); err != nil {
			return
		}
		f.Encoding = encodingXz
	}

	f.ContentLength = len(payload)
	f.Checksum = msg.Checksum(payload)
	f.HasChecksum = true
	return
}

// decodePayload reverses encodePayload for a completely accumulated payload.
// An empty payload decodes to a nil Message.
func decodePayload(payload []byte, f headFields) (*msg.Message, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	if f.HasChecksum {
		if err := msg.VerifyChecksum(payload, f.Checksum); err != nil {
			return nil, err
		}
	}

	switch f.Encoding {
	case "":

	case encodingXz:
		var err error
		if payload, err = decompressPayload(payload); err != nil {
			return nil, err
		}

	default:
		return nil, &statusError{status: 400, reason: "unsupported encoding " + f.Encoding}
	}

	return msg.Decode(payload)
}
