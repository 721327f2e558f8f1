package workorders

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the work order endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/workorders", h.List)
	r.Get("/workorders/kanban", h.Kanban)
	r.Get("/workorders/{id}", h.Show)
	r.Post("/workorders", h.Create)
	r.Patch("/workorders/{id}", h.Update)
	r.Post("/workorders/{id}/complete", h.Complete)
	r.Post("/workorders/{id}/deliver", h.MarkDelivered)
	r.Post("/workorders/{id}/cancel", h.Cancel)
	r.Delete("/workorders/{id}", h.Delete)
}
