// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package kvstore is an embedded BadgerDB event store, selected with
// database.backend=badger. Events are JSON values under "event:" keys;
// queries scan the prefix and filter in process, which suits the few
// thousand live events the aggregator retains.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/store"
)

const prefixEvent = "event:"

// Options configures Open.
type Options struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// Store implements store.Store on BadgerDB.
type Store struct {
	db     *badger.DB
	closed atomic.Bool
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the store.
func Open(o Options) (*Store, error) {
	opts := badger.DefaultOptions(o.Path)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = o.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().Str("path", o.Path).Bool("in_memory", o.InMemory).Msg("Badger event store opened")
	return &Store{db: db}, nil
}

func eventKey(key string) []byte {
	return []byte(prefixEvent + key)
}

// Upsert writes e under its natural key, replacing any previous value.
func (s *Store) Upsert(_ context.Context, e models.Event) error {
	key := e.Key()
	if s.closed.Load() {
		return store.Wrap("upsert", key, store.ErrClosed)
	}
	e.Status = ""
	data, err := json.Marshal(&e)
	if err != nil {
		return store.Wrap("upsert", key, fmt.Errorf("marshal event: %w", err))
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(eventKey(key), data))
	})
	return store.Wrap("upsert", key, err)
}

// Get returns the event stored under key.
func (s *Store) Get(_ context.Context, key string) (models.Event, bool, error) {
	var e models.Event
	if s.closed.Load() {
		return e, false, store.Wrap("get", key, store.ErrClosed)
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return e, false, nil
	}
	if err != nil {
		return e, false, store.Wrap("get", key, err)
	}
	return e, true, nil
}

func (s *Store) Find(_ context.Context, f store.Filter, sort store.Sort, limit int) ([]models.Event, error) {
	all, err := s.scan("find")
	if err != nil {
		return nil, err
	}
	return store.Select(all, f, sort, limit), nil
}

// DeleteMany collects matching keys in one read pass and deletes them in a
// single write transaction.
func (s *Store) DeleteMany(_ context.Context, p store.Predicate) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, store.Wrap("delete", "", err)
	}
	if s.closed.Load() {
		return 0, store.Wrap("delete", "", store.ErrClosed)
	}

	var count int
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)

		var keysToDelete [][]byte
		prefix := []byte(prefixEvent)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var e models.Event
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping undecodable event during prune")
				continue
			}
			if p.Matches(&e) {
				keysToDelete = append(keysToDelete, item.KeyCopy(nil))
			}
		}
		it.Close()

		for _, key := range keysToDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, store.Wrap("delete", "", err)
	}
	return count, nil
}

func (s *Store) CountDocuments(_ context.Context, f store.Filter) (int, error) {
	all, err := s.scan("count")
	if err != nil {
		return 0, err
	}
	f.Offset = 0
	return len(store.Select(all, f, store.SortStartAsc, 0)), nil
}

func (s *Store) Distinct(_ context.Context, field store.Field, f store.Filter) ([]string, error) {
	if !store.ValidField(field) {
		return nil, store.Wrap("distinct", string(field), store.ErrUnknownField)
	}
	all, err := s.scan("distinct")
	if err != nil {
		return nil, err
	}
	return store.DistinctValues(all, field, f), nil
}

func (s *Store) Ping(context.Context) error {
	if s.closed.Load() || s.db.IsClosed() {
		return store.Wrap("ping", "", store.ErrClosed)
	}
	return nil
}

// Close closes the underlying database. It is safe to call twice.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *Store) scan(op string) ([]models.Event, error) {
	if s.closed.Load() {
		return nil, store.Wrap(op, "", store.ErrClosed)
	}
	events := make([]models.Event, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixEvent)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e models.Event
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, store.Wrap(op, "", err)
	}
	return events, nil
}
