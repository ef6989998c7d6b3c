package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/virtual-gateway/internal/thing"
)

// handleListThings returns the full device roster.
func (s *Server) handleListThings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"things": s.gateway.Things(),
	})
}

// handleGetThing returns one device by ID.
func (s *Server) handleGetThing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "thingID")

	t, err := s.gateway.Thing(id)
	if err != nil {
		writeNotFound(w, "thing not found: "+id)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// handleUpdateThing applies a partial manual update to one device and
// returns the updated state.
func (s *Server) handleUpdateThing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "thingID")

	var u thing.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if u.IsZero() {
		writeBadRequest(w, "update carries no fields")
		return
	}

	updated, err := s.gateway.UpdateThing(r.Context(), id, u)
	if err != nil {
		if errors.Is(err, thing.ErrThingNotFound) {
			writeNotFound(w, "thing not found: "+id)
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleState returns a consistent snapshot of the whole gateway:
// roster, event log, automation flag, outdoor temperature, and tick
// counter. The dashboard bootstraps from this before switching to
// WebSocket push.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.gateway.State())
}
