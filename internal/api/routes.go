package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Metrics(h.metrics),
		Logging(h.logger),
	)

	// Steps
	mux.Handle("GET /api/v1/steps", chain(http.HandlerFunc(h.ListSteps)))
	mux.Handle("GET /api/v1/steps/{id}", chain(http.HandlerFunc(h.GetStep)))
	mux.Handle("POST /api/v1/steps/{id}/run", chain(http.HandlerFunc(h.RunStep)))

	// State
	mux.Handle("GET /api/v1/state", chain(http.HandlerFunc(h.GetState)))
	mux.Handle("GET /api/v1/state/stream", chain(http.HandlerFunc(h.StreamState)))

	// Stored decks
	mux.Handle("GET /api/v1/decks", chain(http.HandlerFunc(h.ListDecks)))
	mux.Handle("GET /api/v1/decks/{name}", chain(http.HandlerFunc(h.GetDeck)))
}
