// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
)

const icsProductID = "-//tomtom215//contestwatch//EN"

// Calendar handles GET /api/v1/events.ics. It accepts the same filters as
// /api/v1/events and renders one VEVENT per stored event.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q, _, ok := h.eventsQuery(rw, r)
	if !ok {
		return
	}
	events, err := h.svc.Find(r.Context(), q)
	if err != nil {
		h.writeServiceError(rw, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="contestwatch.ics"`)
	if err := BuildCalendar(events, time.Now().UTC()).SerializeTo(w); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write calendar")
	}
}

// BuildCalendar renders events as an iCalendar feed. UIDs are stable per
// event key so calendar clients update entries in place.
func BuildCalendar(events []models.Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName("Contestwatch")

	for i := range events {
		e := &events[i]
		ev := cal.AddEvent(e.Key() + "@contestwatch")
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.StartTime.UTC())
		end := e.EndTime
		if end.IsZero() {
			end = e.StartTime
		}
		ev.SetEndAt(end.UTC())
		ev.SetSummary(fmt.Sprintf("[%s] %s", e.Platform, e.Name))
		if e.URL != "" {
			ev.SetURL(e.URL)
		}
		if loc := eventLocation(e); loc != "" {
			ev.SetLocation(loc)
		}
		ev.SetDescription(fmt.Sprintf("%s %s on %s\n%s", e.Platform.Category(), e.Name, e.Platform, e.URL))
	}
	return cal
}

func eventLocation(e *models.Event) string {
	switch {
	case e.Location != "":
		return e.Location
	case e.Mode == models.ModeOnline:
		return "Online"
	default:
		return strings.TrimSpace(e.URL)
	}
}
