// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package normalize

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 1, 10, 14, 35, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-01-10T14:35:00Z", want},
		{"2026-01-10T20:05:00+05:30", want},
		{"2026-01-10T14:35:00.000Z", want},
		{"2026-01-10 14:35:00", want},
		{"1768055700", want},
		{"1768055700000", want},
		{"2026-01-10", date(2026, 1, 10)},
		{"Jan 10th, 2026", date(2026, 1, 10)},
		{"January 10, 2026", date(2026, 1, 10)},
		{"10 Jan 2026 14:35:00", want},
	}

	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Errorf("ParseTime(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) || got.Location() != time.UTC {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "soon", "TBA", "12345"} {
		if _, err := ParseTime(bad); err == nil {
			t.Errorf("ParseTime(%q) should fail", bad)
		}
	}
}

func TestParseTimeIn_NaiveUsesLocation(t *testing.T) {
	t.Parallel()

	ist := time.FixedZone("IST", 5*3600+1800)
	got, err := ParseTimeIn("10 Jan 2026 20:05:00", ist)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 1, 10, 14, 35, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFromStartDuration(t *testing.T) {
	t.Parallel()

	start, end := FromStartDuration(1768055700, 7200)
	if end.Sub(start) != 2*time.Hour || start.Location() != time.UTC {
		t.Errorf("window = %v..%v", start, end)
	}
	_, end = FromStartDuration(1768055700, -5)
	if !end.Equal(start) {
		t.Error("negative duration should clamp to zero")
	}
}

func TestParseRange(t *testing.T) {
	t.Parallel()

	ref := date(2026, 6, 1)
	tests := []struct {
		in        string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"Jan 10th – 12th, 2026", date(2026, 1, 10), date(2026, 1, 13)},
		{"Jan 10 - 12, 2026", date(2026, 1, 10), date(2026, 1, 13)},
		{"Jan 30 - Feb 2, 2026", date(2026, 1, 30), date(2026, 2, 3)},
		{"Dec 30, 2025 - Jan 2, 2026", date(2025, 12, 30), date(2026, 1, 3)},
		{"Dec 30 - Jan 2, 2026", date(2025, 12, 30), date(2026, 1, 3)},
		{"Mar 3rd to Apr 1st", date(2026, 3, 3), date(2026, 4, 2)},
		{"Dec 31 — Jan 1", date(2026, 12, 31), date(2027, 1, 2)},
		{"Sep 5, 2026", date(2026, 9, 5), date(2026, 9, 6)},
		{"October 4th - 6th 2026", date(2026, 10, 4), date(2026, 10, 7)},
		{"5 - 7 November 2026", date(2026, 11, 5), date(2026, 11, 8)},
	}

	for _, tt := range tests {
		start, end, err := ParseRange(tt.in, ref)
		if err != nil {
			t.Errorf("ParseRange(%q) error = %v", tt.in, err)
			continue
		}
		if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
			t.Errorf("ParseRange(%q) = %s..%s, want %s..%s", tt.in,
				start.Format(time.DateOnly), end.Format(time.DateOnly),
				tt.wantStart.Format(time.DateOnly), tt.wantEnd.Format(time.DateOnly))
		}
	}
}

func TestParseRange_Invalid(t *testing.T) {
	t.Parallel()

	ref := date(2026, 6, 1)
	for _, bad := range []string{"", "Coming soon", "TBD - TBD", "Feb 30 - 31, 2026", "Mar 5, 2027 - Mar 1, 2026"} {
		if _, _, err := ParseRange(bad, ref); err == nil {
			t.Errorf("ParseRange(%q) should fail", bad)
		}
	}
}
