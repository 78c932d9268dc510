// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindRateLimited means the upstream kept answering 429.
	KindRateLimited Kind = iota + 1
	// KindNetwork covers timeouts, resets, DNS failures and an open breaker.
	KindNetwork
	// KindNotFound is a 404 or 410.
	KindNotFound
	// KindStatus is any other non-2xx status; never retried.
	KindStatus
	// KindShape means the payload did not decode into the expected shape.
	KindShape
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not_found"
	case KindStatus:
		return "status"
	case KindShape:
		return "shape"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method on failure. StatusCode is the
// last HTTP status seen, or 0 if no response arrived.
type Error struct {
	Kind       Kind
	StatusCode int
	URL        string
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether a later retry could plausibly succeed.
func (e *Error) Transient() bool {
	return e.Kind == KindRateLimited || e.Kind == KindNetwork
}

func kindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsRateLimited reports whether retries were exhausted on 429s.
func IsRateLimited(err error) bool { return kindOf(err) == KindRateLimited }

// IsTransient reports whether err is a TransientUpstreamError.
func IsTransient(err error) bool {
	k := kindOf(err)
	return k == KindRateLimited || k == KindNetwork
}

// IsShape reports whether err is an UpstreamShapeError.
func IsShape(err error) bool { return kindOf(err) == KindShape }

// ShapeError builds an UpstreamShapeError for a decoder that found an
// unexpected payload at url.
func ShapeError(url string, format string, args ...any) error {
	return &Error{Kind: KindShape, URL: url, Err: fmt.Errorf(format, args...)}
}

// isTransientNetErr decides whether a transport error is worth retrying.
// The caller checks its own context first; a per-request client timeout
// still counts as transient.
func isTransientNetErr(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
