// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exchange

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"
)

// compressPayload encodes a serialized message with xz, announced through the
// Content-Encoding header field.
func compressPayload(data []byte) ([]byte, error) {
	var buff bytes.Buffer

	w, err := xz.NewWriter(&buff)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// decompressPayload reverses compressPayload.
func decompressPayload(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return io.ReadAll(r)
}
