// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package services

import (
	"context"
	"fmt"
)

// BusRunner is satisfied by *eventbus.Bus.
type BusRunner interface {
	Run(ctx context.Context) error
}

// EventBusService runs the notification router. The router stops when its
// context is cancelled. A router that exits on its own is restarted, and
// each Serve gets a fresh router from Bus.Run.
type EventBusService struct {
	bus BusRunner
}

func NewEventBusService(bus BusRunner) *EventBusService {
	return &EventBusService{bus: bus}
}

func (s *EventBusService) Serve(ctx context.Context) error {
	if err := s.bus.Run(ctx); err != nil {
		return fmt.Errorf("event bus router: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("event bus router exited")
}

func (s *EventBusService) String() string { return "event-bus" }
