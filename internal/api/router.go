// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package api exposes the aggregator over HTTP using chi.
//
// Every JSON endpoint answers with the APIResponse envelope. Reads never
// contact upstream sources except GET /api/v1/hackathons, which loads the
// hackathon snapshot when it has expired. Refreshes are explicit POSTs.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/contestwatch/internal/middleware"
)

// slowRequest is the access-log threshold for warn level.
const slowRequest = 5 * time.Second

// Router owns the handler and middleware factories.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.AccessLog(slowRequest))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusNotFound, ErrCodeNotFound, "No route for "+r.URL.Path)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Metrics)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit(1))
			r.Use(chimiddleware.Compress(5, "application/json", "text/calendar"))

			r.Get("/contests", router.handler.Contests)
			r.Get("/hackathons", router.handler.Hackathons)
			r.Get("/events", router.handler.Events)
			r.Get("/events.ics", router.handler.Calendar)
			r.Get("/stats", router.handler.Stats)
			r.Get("/platforms", router.handler.Platforms)
		})

		r.Route("/refresh", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit(10))
			r.Post("/contests", router.handler.RefreshContests)
			r.Post("/hackathons", router.handler.RefreshHackathons)
		})
	})

	return r
}
