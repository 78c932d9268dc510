// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package store defines the persistence contract for events.
//
// Implementations are keyed by (platform, external_id). Every Upsert is
// independently idempotent; no operation needs a transaction spanning
// more than one event.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/contestwatch/internal/models"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")

	// ErrUnknownField is returned by Distinct for unsupported fields.
	ErrUnknownField = errors.New("unknown field")
)

// Sort orders Find results. Ties break on platform, then external id.
type Sort int

const (
	SortStartAsc Sort = iota
	SortStartDesc
)

// Field names a column accepted by Distinct.
type Field string

const (
	FieldPlatform Field = "platform"
	FieldMode     Field = "mode"
	FieldLocation Field = "location"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	Platforms []models.Platform
	Category  models.Category

	// StartAfter is inclusive, StartBefore exclusive.
	StartAfter  time.Time
	StartBefore time.Time

	// EndAfter keeps events whose end time is strictly after it.
	EndAfter time.Time

	// Location is a case-insensitive substring match.
	Location string

	Offset int
}

// Predicate selects events for DeleteMany. Both bounds are required so a
// zero Predicate can never wipe the store. Platforms, when set, limits the
// deletion to those platforms.
type Predicate struct {
	StartBefore    time.Time
	LastSeenBefore time.Time
	Platforms      []models.Platform
}

// Validate reports whether p is safe to execute.
func (p Predicate) Validate() error {
	if p.StartBefore.IsZero() || p.LastSeenBefore.IsZero() {
		return errors.New("delete predicate needs both StartBefore and LastSeenBefore")
	}
	return nil
}

// Store is the persistence collaborator used by the aggregator.
type Store interface {
	Upsert(ctx context.Context, e models.Event) error
	Find(ctx context.Context, f Filter, s Sort, limit int) ([]models.Event, error)
	DeleteMany(ctx context.Context, p Predicate) (int, error)
	CountDocuments(ctx context.Context, f Filter) (int, error)
	Distinct(ctx context.Context, field Field, f Filter) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// Error wraps a backend failure with the operation and key involved.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err, otherwise a *Error.
func Wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Key: key, Err: err}
}

// IsStoreError reports whether err came from a store backend.
func IsStoreError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// Matches applies f to a single event. Backends without a query language
// use it to evaluate filters in process.
func (f Filter) Matches(e *models.Event) bool {
	if len(f.Platforms) > 0 && !slices.Contains(f.Platforms, e.Platform) {
		return false
	}
	if f.Category != "" && e.Platform.Category() != f.Category {
		return false
	}
	if !f.StartAfter.IsZero() && e.StartTime.Before(f.StartAfter) {
		return false
	}
	if !f.StartBefore.IsZero() && !e.StartTime.Before(f.StartBefore) {
		return false
	}
	if !f.EndAfter.IsZero() && !e.EndTime.After(f.EndAfter) {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(e.Location), strings.ToLower(f.Location)) {
		return false
	}
	return true
}

// Matches reports whether e is selected by p.
func (p Predicate) Matches(e *models.Event) bool {
	if len(p.Platforms) > 0 && !slices.Contains(p.Platforms, e.Platform) {
		return false
	}
	return e.StartTime.Before(p.StartBefore) && e.LastSeenAt.Before(p.LastSeenBefore)
}

// Select filters, sorts, offsets and limits events in memory. A limit of
// zero or less means no limit.
func Select(events []models.Event, f Filter, s Sort, limit int) []models.Event {
	out := make([]models.Event, 0, len(events))
	for i := range events {
		if f.Matches(&events[i]) {
			out = append(out, events[i])
		}
	}
	SortEvents(out, s)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []models.Event{}
		}
		out = out[f.Offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortEvents orders events by start time, then platform, then external id.
func SortEvents(events []models.Event, s Sort) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := &events[i], &events[j]
		if !a.StartTime.Equal(b.StartTime) {
			if s == SortStartDesc {
				return a.StartTime.After(b.StartTime)
			}
			return a.StartTime.Before(b.StartTime)
		}
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		return a.ExternalID < b.ExternalID
	})
}

// FieldValue returns the value of field on e, or "" for unknown fields.
func FieldValue(e *models.Event, field Field) string {
	switch field {
	case FieldPlatform:
		return string(e.Platform)
	case FieldMode:
		return string(e.Mode)
	case FieldLocation:
		return e.Location
	}
	return ""
}

// ValidField reports whether Distinct accepts field.
func ValidField(field Field) bool {
	switch field {
	case FieldPlatform, FieldMode, FieldLocation:
		return true
	}
	return false
}

// DistinctValues collects sorted non-empty values of field over events
// matching f.
func DistinctValues(events []models.Event, field Field, f Filter) []string {
	seen := make(map[string]struct{})
	for i := range events {
		if !f.Matches(&events[i]) {
			continue
		}
		if v := FieldValue(&events[i], field); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
