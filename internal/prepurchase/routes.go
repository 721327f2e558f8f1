package prepurchase

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the prepurchase ledger endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/prepurchase-units", h.List)
	r.Get("/prepurchase-units/{id}", h.Show)
	r.Post("/prepurchase-units", h.Create)
	r.Patch("/prepurchase-units/{id}", h.Update)
	r.Post("/prepurchase-units/{id}/usages", h.AddUsage)
	r.Delete("/prepurchase-units/usages/{usageID}", h.RemoveUsage)
	r.Delete("/prepurchase-units/{id}", h.Delete)
}
