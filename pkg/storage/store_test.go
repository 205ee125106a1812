// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"testing"

	"github.com/Descantly/tikv/pkg/msg"
)

func TestStoreEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	if count, err := store.Count(); err != nil {
		t.Fatal(err)
	} else if count != 0 {
		t.Fatalf("empty journal counts %d items", count)
	}

	if store.KnowsSeq(1) {
		t.Fatal("empty journal knows a sequence number")
	}
}

func TestStoreJournal(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	messages := []*msg.Message{
		msg.NewMessage(msg.TypeRaft, 1, []byte("uno")),
		msg.NewMessage(msg.TypeRaft, 2, []byte("dos")),
		msg.NewMessage(msg.TypeCommand, 3, []byte("tres")),
	}

	for _, m := range messages {
		if err := store.Push(m); err != nil {
			t.Fatal(err)
		}
	}

	// Pushing a duplicate must neither error nor grow the journal.
	if err := store.Push(messages[0]); err != nil {
		t.Fatal(err)
	}

	if count, err := store.Count(); err != nil {
		t.Fatal(err)
	} else if count != 3 {
		t.Fatalf("journal holds %d items", count)
	}

	if items, err := store.QueryType(msg.TypeRaft); err != nil {
		t.Fatal(err)
	} else if len(items) != 2 {
		t.Fatalf("found %d raft items", len(items))
	}

	if !store.KnowsSeq(2) {
		t.Fatal("sequence number 2 is unknown")
	}
	if store.KnowsSeq(23) {
		t.Fatal("sequence number 23 is known")
	}
}
