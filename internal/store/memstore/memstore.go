// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package memstore is a map-backed store.Store for tests and ephemeral runs.
package memstore

import (
	"context"
	"sync"

	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	events map[string]models.Event
	closed bool

	// FailKeys makes Upsert fail for the listed keys.
	FailKeys map[string]error
}

func New() *Store {
	return &Store{events: make(map[string]models.Event)}
}

func (s *Store) Upsert(_ context.Context, e models.Event) error {
	key := e.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.Wrap("upsert", key, store.ErrClosed)
	}
	if err, ok := s.FailKeys[key]; ok {
		return store.Wrap("upsert", key, err)
	}
	e.Status = ""
	s.events[key] = e
	return nil
}

func (s *Store) Find(_ context.Context, f store.Filter, sort store.Sort, limit int) ([]models.Event, error) {
	all, err := s.snapshot("find")
	if err != nil {
		return nil, err
	}
	return store.Select(all, f, sort, limit), nil
}

func (s *Store) DeleteMany(_ context.Context, p store.Predicate) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, store.Wrap("delete", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, store.Wrap("delete", "", store.ErrClosed)
	}
	n := 0
	for k, e := range s.events {
		if p.Matches(&e) {
			delete(s.events, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountDocuments(_ context.Context, f store.Filter) (int, error) {
	all, err := s.snapshot("count")
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
	all, err := s.snapshot("distinct")
	if err != nil {
		return nil, err
	}
	return store.DistinctValues(all, field, f), nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.Wrap("ping", "", store.ErrClosed)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Get returns the stored event for key.
func (s *Store) Get(key string) (models.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[key]
	return e, ok
}

func (s *Store) snapshot(op string) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.Wrap(op, "", store.ErrClosed)
	}
	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	return out, nil
}
