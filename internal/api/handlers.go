// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/contestwatch/internal/aggregator"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/store"
	"github.com/tomtom215/contestwatch/internal/validation"
)

// Service is the part of *aggregator.Service the handlers use.
type Service interface {
	Find(ctx context.Context, q aggregator.Query) ([]models.Event, error)
	ListContests(ctx context.Context, platform string, limit int) ([]models.Event, error)
	ListHackathons(ctx context.Context, location string, force bool) ([]models.Event, error)
	RefreshContests(ctx context.Context) (models.RefreshResult, error)
	RefreshHackathons(ctx context.Context, force bool) (models.RefreshResult, error)
	StatsSummary(ctx context.Context) (models.StatsSummary, error)
	Platforms(ctx context.Context) ([]models.PlatformInfo, error)
	LastRefresh(cat models.Category) (models.RefreshResult, bool)
	ClampLimit(limit int) int
	Ping(ctx context.Context) error
}

// Handler serves the HTTP API.
type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Contests handles GET /api/v1/contests.
func (h *Handler) Contests(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := parseListContests(r.URL.Query())
	if err != nil {
		writeRequestError(rw, err)
		return
	}
	limit := h.svc.ClampLimit(req.Limit)
	events, err := h.svc.ListContests(r.Context(), req.Platform, limit)
	if err != nil {
		h.writeServiceError(rw, err)
		return
	}
	rw.SuccessWithPagination(events, &PaginationMeta{Count: len(events), Limit: limit, HasMore: len(events) == limit})
}

// Hackathons handles GET /api/v1/hackathons.
func (h *Handler) Hackathons(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := parseListHackathons(r.URL.Query())
	if err != nil {
		writeRequestError(rw, err)
		return
	}
	events, err := h.svc.ListHackathons(r.Context(), req.Location, req.Refresh)
	if err != nil {
		h.writeServiceError(rw, err)
		return
	}
	rw.SuccessWithPagination(events, &PaginationMeta{Count: len(events), Limit: len(events)})
}

// Events handles GET /api/v1/events, a filtered read over both categories.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q, limit, ok := h.eventsQuery(rw, r)
	if !ok {
		return
	}
	events, err := h.svc.Find(r.Context(), q)
	if err != nil {
		h.writeServiceError(rw, err)
		return
	}
	rw.SuccessWithPagination(events, &PaginationMeta{
		Count:   len(events),
		Offset:  q.Offset,
		Limit:   limit,
		HasMore: len(events) == limit,
	})
}

// RefreshContests handles POST /api/v1/refresh/contests.
func (h *Handler) RefreshContests(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	res, err := h.svc.RefreshContests(r.Context())
	if err != nil {
		h.writeServiceError(rw, err)
		return
	}
	rw.Success(res)
}

// RefreshHackathons handles POST /api/v1/refresh/hackathons. The snapshot
// is bypassed unless ?force=false is given.
func (h *Handler) RefreshHackathons(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	force := true
	if r.URL.Query().Has("force") {
		f, err := boolParam(r.URL.Query(), "force")
		if err != nil {
			writeRequestError(rw, err)
			return
		}
		force = f
	}
	res, err := h.svc.RefreshHackathons(r.Context(), force)
	if err != nil {
		h.writeServiceError(rw, err)
		return
	}
	rw.Success(res)
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	stats, err := h.svc.StatsSummary(r.Context())
	if err != nil {
		h.writeServiceError(rw, err)
		return
	}
	rw.Success(stats)
}

// platformsResponse adds the last completed refresh per category.
type platformsResponse struct {
	Platforms   []models.PlatformInfo                    `json:"platforms"`
	LastRefresh map[models.Category]models.RefreshResult `json:"last_refresh,omitempty"`
}

// Platforms handles GET /api/v1/platforms.
func (h *Handler) Platforms(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	infos, err := h.svc.Platforms(r.Context())
	if err != nil {
		h.writeServiceError(rw, err)
		return
	}
	resp := platformsResponse{Platforms: infos, LastRefresh: map[models.Category]models.RefreshResult{}}
	for _, cat := range []models.Category{models.CategoryContest, models.CategoryHackathon} {
		if last, ok := h.svc.LastRefresh(cat); ok {
			resp.LastRefresh[cat] = last
		}
	}
	rw.Success(resp)
}

func (h *Handler) eventsQuery(rw *ResponseWriter, r *http.Request) (aggregator.Query, int, bool) {
	req, err := parseEvents(r.URL.Query())
	if err != nil {
		writeRequestError(rw, err)
		return aggregator.Query{}, 0, false
	}
	from, to, err := req.TimeRange()
	if err != nil {
		rw.BadRequest(err.Error())
		return aggregator.Query{}, 0, false
	}
	platforms := make([]models.Platform, 0, len(req.Platforms))
	for _, name := range req.Platforms {
		p, _ := models.ParsePlatform(name)
		platforms = append(platforms, p)
	}
	limit := h.svc.ClampLimit(req.Limit)
	return aggregator.Query{
		Platforms: platforms,
		Category:  models.Category(req.Category),
		From:      from,
		To:        to,
		Location:  req.Location,
		Limit:     limit,
		Offset:    req.Offset,
	}, limit, true
}

func writeRequestError(rw *ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		rw.ValidationError(verr.Error(), verr.Fields)
		return
	}
	rw.BadRequest(err.Error())
}

// writeServiceError maps aggregator and store failures to status codes.
func (h *Handler) writeServiceError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, aggregator.ErrUnknownPlatform):
		rw.BadRequest(err.Error())
	case errors.Is(err, aggregator.ErrAllSourcesFailed):
		rw.ExternalServiceError(err)
	case errors.Is(err, context.DeadlineExceeded):
		rw.Error(http.StatusGatewayTimeout, ErrCodeTimeout, "Refresh is still running; try again shortly")
	case errors.Is(err, context.Canceled):
		rw.ServiceUnavailable("Request cancelled")
	case store.IsStoreError(err):
		rw.DatabaseError(err)
	default:
		rw.InternalError(err)
	}
}
