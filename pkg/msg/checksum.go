// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package msg

import (
	"fmt"

	"github.com/howeyc/crc16"
)

var crc16table = crc16.MakeTable(crc16.CCITT)

// Checksum calculates the CRC-16/CCITT value of a serialized Message, carried
// in the exchange head and verified by the receiver before decoding.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crc16table)
}

// VerifyChecksum checks a received payload against the announced checksum.
func VerifyChecksum(data []byte, expected uint16) error {
	if got := Checksum(data); got != expected {
		return fmt.Errorf("checksum mismatch: calculated %#04x, expected %#04x", got, expected)
	}

	return nil
}
