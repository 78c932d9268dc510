// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package aggregator

import "errors"

var (
	// ErrAllSourcesFailed is returned by a refresh in which every enabled
	// adapter failed. Partial failures are not errors.
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrUnknownPlatform is returned for platform names outside the
	// requested category.
	ErrUnknownPlatform = errors.New("unknown platform")
)
