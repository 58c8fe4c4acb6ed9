package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the position ledger routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/positions", func(r chi.Router) {
		r.Get("/", h.HandleListPositions)
		r.Post("/", h.HandleCreatePosition)
		r.Post("/{id}/close", h.HandleClosePosition)
	})
}
