// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/store"
	"github.com/tomtom215/contestwatch/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	t.Parallel()
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}

func TestFailKeys(t *testing.T) {
	t.Parallel()

	s := New()
	boom := errors.New("disk full")
	s.FailKeys = map[string]error{"codeforces:bad": boom}

	err := s.Upsert(context.Background(), storetest.Event(models.PlatformCodeforces, "bad", time.Hour))
	var se *store.Error
	if !errors.As(err, &se) || se.Key != "codeforces:bad" || !errors.Is(err, boom) {
		t.Fatalf("Upsert() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("failed upsert stored a record")
	}
}
