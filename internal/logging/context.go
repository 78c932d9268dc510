// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	cycleIDKey   contextKey = "cycle_id"
)

// GenerateRequestID returns a full UUID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// GenerateCycleID returns a short id used to correlate the log lines of
// one refresh cycle across all adapters.
func GenerateCycleID() string {
	return uuid.New().String()[:8]
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns "" when no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func ContextWithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey, id)
}

func CycleIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(cycleIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger enriched with request_id and cycle_id from ctx.
//
//	logging.Ctx(ctx).Info().Msg("Refresh started")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	return decorate(ctx, &l)
}

// CtxFrom is Ctx for a component logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func CtxFrom(ctx context.Context, base zerolog.Logger) *zerolog.Logger {
	return decorate(ctx, &base)
}

func decorate(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	lc := base.With()
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if id := CycleIDFromContext(ctx); id != "" {
		lc = lc.Str("cycle_id", id)
	}
	l := lc.Logger()
	return &l
}
