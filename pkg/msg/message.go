// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package msg defines the message envelope carried by the exchange transport.
// The transport itself treats the serialized form as opaque payload bytes;
// only the endpoints encode and decode it.
package msg

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dtn7/cboring"
)

// Type describes a Message's role for the receiving dispatcher.
type Type uint64

const (
	// TypeNone is an unspecified Message.
	TypeNone Type = iota

	// TypeRaft carries a consensus protocol message.
	TypeRaft

	// TypeCommand carries a state machine command.
	TypeCommand

	// TypeStatus carries a status request or report.
	TypeStatus
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeRaft:
		return "raft"
	case TypeCommand:
		return "command"
	case TypeStatus:
		return "status"
	default:
		return fmt.Sprintf("type(%d)", uint64(t))
	}
}

// Message is the envelope exchanged between peers: a Type for dispatching, a
// sender-chosen sequence number and an opaque Body.
type Message struct {
	Type Type
	Seq  uint64
	Body []byte
}

// NewMessage creates a Message with the given fields.
func NewMessage(t Type, seq uint64, body []byte) *Message {
	return &Message{
		Type: t,
		Seq:  seq,
		Body: body,
	}
}

func (m Message) String() string {
	return fmt.Sprintf("MSG(%v, seq=%d, %d bytes)", m.Type, m.Seq, len(m.Body))
}

// MarshalCbor writes this Message's CBOR representation.
func (m *Message) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(3, w); err != nil {
		return err
	}

	for _, f := range []uint64{uint64(m.Type), m.Seq} {
		if err := cboring.WriteUInt(f, w); err != nil {
			return err
		}
	}

	return cboring.WriteByteString(m.Body, w)
}

// UnmarshalCbor creates this Message based on a CBOR representation.
func (m *Message) UnmarshalCbor(r io.Reader) error {
	if al, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if al != 3 {
		return fmt.Errorf("expected array with length 3, got %d", al)
	}

	if t, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		m.Type = Type(t)
	}

	if seq, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		m.Seq = seq
	}

	if body, err := cboring.ReadByteString(r); err != nil {
		return err
	} else {
		m.Body = body
	}

	return nil
}

// Encode returns the Message's serialized wire form.
func (m *Message) Encode() ([]byte, error) {
	buff := new(bytes.Buffer)
	if err := cboring.Marshal(m, buff); err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// Decode parses a Message from its serialized wire form. The payload must be
// complete; decoding partial prefixes is not supported.
func Decode(data []byte) (*Message, error) {
	m := new(Message)
	if err := cboring.Unmarshal(m, bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return m, nil
}
