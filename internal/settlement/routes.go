package settlement

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the installer settlement endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/settlements/batch", h.Batch)
	r.Get("/settlements/orders/{id}", h.Show)
	r.Post("/settlements/orders/{id}/revert", h.Revert)
	r.Get("/settlements/months", h.Months)
	r.Get("/settlements/summary/{month}", h.Summary)
}
