//go:generate go run go.uber.org/mock/mockgen -source=kv.go -destination=../mocks/mock_kv.go -package=mocks
package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by RecordGet when no value is stored under the key.
var ErrNotFound = errors.New("record not found")

// KV is the durable record store. Records are addressed by a group and a
// key within that group.
type KV interface {
	RecordGet(group uint16, key uint32) ([]byte, error)
	RecordSet(group uint16, key uint32, value []byte) error
	RecordDelete(group uint16, key uint32) error
	GroupDelete(group uint16) error
}

// BadgerKV implements KV on top of a badger database.
type BadgerKV struct {
	db *badger.DB
}

// NewBadgerKV wraps an open badger database. The caller owns the database
// and closes it.
func NewBadgerKV(db *badger.DB) *BadgerKV {
	return &BadgerKV{db: db}
}

func groupPrefix(group uint16) []byte {
	return []byte(fmt.Sprintf("kv:%04x:", group))
}

func recordKey(group uint16, key uint32) []byte {
	return []byte(fmt.Sprintf("kv:%04x:%08x", group, key))
}

// RecordGet returns a copy of the stored value or ErrNotFound.
func (b *BadgerKV) RecordGet(group uint16, key uint32) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(group, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record %04x/%08x: %w", group, key, err)
	}
	return value, nil
}

// RecordSet stores value under the key, replacing any previous value.
func (b *BadgerKV) RecordSet(group uint16, key uint32, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(group, key), value)
	})
	if err != nil {
		return fmt.Errorf("write record %04x/%08x: %w", group, key, err)
	}
	return nil
}

// RecordDelete removes one record. Deleting a missing record is not an error.
func (b *BadgerKV) RecordDelete(group uint16, key uint32) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(group, key))
	})
	if err != nil {
		return fmt.Errorf("delete record %04x/%08x: %w", group, key, err)
	}
	return nil
}

// GroupDelete removes every record of the group.
func (b *BadgerKV) GroupDelete(group uint16) error {
	prefix := groupPrefix(group)

	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan group %04x: %w", group, err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete group %04x: %w", group, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "GroupDelete",
		"group":    group,
		"records":  len(keys),
	}).Debug("Group deleted")

	return nil
}
