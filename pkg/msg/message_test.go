// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package msg

import (
	"bytes"
	"reflect"
	"testing"
)

func TestMessageCbor(t *testing.T) {
	m1 := NewMessage(TypeRaft, 42, []byte("rafty payload"))

	data, err := m1.Encode()
	if err != nil {
		t.Fatal(err)
	}

	m2, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(m1, m2) {
		t.Fatalf("messages differ: %v, %v", m1, m2)
	}
}

func TestMessageDecodeGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xFF, 0x00, 0x23}); err == nil {
		t.Fatal("decoding garbage succeeded")
	}

	// A truncated but well-started representation must also fail.
	data, err := NewMessage(TypeCommand, 1, bytes.Repeat([]byte{0x42}, 64)).Encode()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(data[:len(data)/2]); err == nil {
		t.Fatal("decoding a truncated message succeeded")
	}
}

func TestChecksum(t *testing.T) {
	data := []byte("serialized message")

	if err := VerifyChecksum(data, Checksum(data)); err != nil {
		t.Fatal(err)
	}

	if err := VerifyChecksum(data, Checksum(data)+1); err == nil {
		t.Fatal("corrupted checksum verified")
	}
}
