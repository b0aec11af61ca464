package api

import (
	"net/http"
	"strconv"
)

// ListDecks возвращает сохранённые decks.
// GET /api/v1/decks
func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		StoreDisabled(w)
		return
	}

	decks, err := h.store.List(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	resp := make([]DeckResponse, 0, len(decks))
	for _, d := range decks {
		resp = append(resp, DeckFromDomain(d))
	}

	List(w, resp, len(resp))
}

// GetDeck возвращает последнюю или указанную версию deck.
// GET /api/v1/decks/{name}?version=N
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		StoreDisabled(w)
		return
	}

	name := r.PathValue("name")

	if v := r.URL.Query().Get("version"); v != "" {
		version, err := strconv.Atoi(v)
		if err != nil || version < 1 {
			InvalidVersion(w, v)
			return
		}

		dv, err := h.store.GetVersion(r.Context(), name, version)
		if HandleStoreError(w, h.logger, err, name, version) {
			return
		}
		Success(w, DeckVersionFromDomain(name, dv))
		return
	}

	dv, err := h.store.GetLatest(r.Context(), name)
	if HandleStoreError(w, h.logger, err, name, 0) {
		return
	}

	Success(w, DeckVersionFromDomain(name, dv))
}
