// Package api serves the bill check over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts every route on a chi router.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/healthz", h.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/hospitals", h.ListHospitals)
		r.Get("/search", h.Search)
		r.Get("/compare", h.Compare)
		r.Post("/upload", h.Upload)
		r.Post("/describe-cpt", h.DescribeCode)
		r.Post("/letter", h.Letter)
		r.Post("/summary", h.Summary)
	})

	return r
}
