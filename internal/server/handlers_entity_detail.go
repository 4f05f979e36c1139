package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/entity-catalog/internal/types"
)

// parseEntityID reads and validates the entity_id query parameter.
func parseEntityID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("entity_id")
	if raw == "" {
		return 0, &ErrValidation{Field: "entity_id", Message: "is required"}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ErrValidation{Field: "entity_id", Message: "must be an integer"}
	}

	q := types.EntityIDQuery{EntityID: id}
	if err := q.Validate(); err != nil {
		return 0, validationError(err)
	}
	return q.EntityID, nil
}

// handleGetEntity returns one entity record
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entityID, err := parseEntityID(r)
	if err != nil {
		s.handleError(w, err)
		return
	}

	entity, err := s.store.GetEntity(r.Context(), entityID)
	if err != nil {
		s.handleError(w, err)
		return
	}
	if entity == nil {
		s.handleError(w, &ErrNotFound{Resource: "entity", ID: entityID})
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"entity": entity})
}

// handleGetEntitySources lists the sources of an entity; none is an empty list
func (s *Server) handleGetEntitySources(w http.ResponseWriter, r *http.Request) {
	entityID, err := parseEntityID(r)
	if err != nil {
		s.handleError(w, err)
		return
	}

	sources, err := s.store.ListEntitySources(r.Context(), entityID)
	if err != nil {
		s.handleError(w, err)
		return
	}
	if sources == nil {
		sources = []types.EntitySource{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"sources": sources})
}
