package report

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns report routes. Submission needs any authenticated
// caller; triage is staff-only.
func (h *Handler) Routes(authMiddleware, staffMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Post("/", h.Submit)

	r.Group(func(r chi.Router) {
		r.Use(staffMiddleware)

		r.Get("/", h.List)
		r.Get("/{id}", h.GetDetail)
		r.Get("/{id}/comments", h.GetComments)
		r.Post("/{id}/comments", h.AddComment)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Delete("/{id}", h.Delete)
	})

	return r
}
