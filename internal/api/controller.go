package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hubsync/internal/hub"
)

// handleHubGet reads one entry straight from the controller, bypassing the
// snapshot. Useful for diagnosing translation problems.
func (s *Server) handleHubGet(w http.ResponseWriter, r *http.Request) {
	if s.hubReader == nil {
		writeUnavailable(w, "controller reads unavailable")
		return
	}

	collection := chi.URLParam(r, "collection")
	id := hub.ID(chi.URLParam(r, "id"))

	entry, err := s.hubReader.Get(r.Context(), collection, id)
	if err != nil {
		s.logger.Debug("controller read failed", "collection", collection, "id", id, "error", err)
		writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"collection": collection,
		"id":         id,
		"entry":      entry,
	})
}
