// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage journals exchanged messages' meta data. The daemon wraps
// its message handler to push every delivered message into the Store, which
// allows auditing an exchange and detecting repeated sequence numbers.
package storage

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/timshannon/badgerhold"

	"github.com/Descantly/tikv/pkg/msg"
)

// MessageItem is the journaled meta data of one delivered message. The
// message body itself is not persisted; the transport treats it as opaque and
// transient.
type MessageItem struct {
	Id string `badgerhold:"key"`

	Type uint64 `badgerholdIndex:"Type"`
	Seq  uint64 `badgerholdIndex:"Seq"`

	Length   int
	Checksum uint16

	Received time.Time
}

// newMessageItem for a delivered Message.
func newMessageItem(m *msg.Message) MessageItem {
	return MessageItem{
		Id: fmt.Sprintf("%d-%d", uint64(m.Type), m.Seq),

		Type: uint64(m.Type),
		Seq:  m.Seq,

		Length:   len(m.Body),
		Checksum: msg.Checksum(m.Body),

		Received: time.Now(),
	}
}

// Store implements a journal for MessageItems on top of a Badger database.
type Store struct {
	bh *badgerhold.Store
}

// NewStore creates a new Store or opens an existing Store from the given path.
func NewStore(dir string) (s *Store, err error) {
	opts := badgerhold.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.Logger = log.StandardLogger()
	opts.Options.ValueLogFileSize = 1<<28 - 1

	if dirErr := os.MkdirAll(dir, 0700); dirErr != nil {
		err = dirErr
		return
	}

	if bh, bhErr := badgerhold.Open(opts); bhErr != nil {
		err = bhErr
	} else {
		s = &Store{bh: bh}
	}
	return
}

// Close the Store. It must not be used afterwards.
func (s *Store) Close() error {
	return s.bh.Close()
}

// Push journals a delivered Message. Pushing an already known message is no
// error, just a debug-logged no-op.
func (s *Store) Push(m *msg.Message) error {
	item := newMessageItem(m)

	err := s.bh.Insert(item.Id, item)
	if err == badgerhold.ErrKeyExists {
		log.WithFields(log.Fields{
			"message": m,
		}).Debug("Store already knows this message")

		return nil
	}

	return err
}

// KnowsSeq checks if a message with this sequence number was journaled before.
func (s *Store) KnowsSeq(seq uint64) bool {
	var items []MessageItem
	err := s.bh.Find(&items, badgerhold.Where("Seq").Eq(seq).Index("Seq").Limit(1))
	return err == nil && len(items) != 0
}

// QueryType returns all journaled MessageItems of one message Type.
func (s *Store) QueryType(t msg.Type) (items []MessageItem, err error) {
	err = s.bh.Find(&items, badgerhold.Where("Type").Eq(uint64(t)).Index("Type"))
	return
}

// Count returns the number of journaled MessageItems.
func (s *Store) Count() (uint64, error) {
	// An ungrouped aggregation always yields exactly one result.
	results, err := s.bh.FindAggregate(MessageItem{}, nil)
	if err != nil {
		return 0, err
	}

	return uint64(results[0].Count()), nil
}
