package warehouse

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the stored-unit endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stored-units", h.List)
	r.Get("/stored-units/{id}", h.Show)
	r.Post("/stored-units", h.Create)
	r.Post("/stored-units/{id}/release", h.Release)
	r.Post("/stored-units/{id}/revert-release", h.RevertRelease)
	r.Delete("/stored-units/{id}", h.Delete)
}
