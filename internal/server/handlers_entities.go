package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/entity-catalog/internal/types"
)

// parseListQuery reads the common listing parameters, falling back to
// defaults for absent ones.
func parseListQuery(r *http.Request) (types.ListQuery, error) {
	q := r.URL.Query()
	lq := types.DefaultListQuery()

	for _, p := range []struct {
		key string
		dst *int
	}{{"page", &lq.Page}, {"per_page", &lq.PerPage}} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		val, err := strconv.Atoi(raw)
		if err != nil {
			return lq, &ErrValidation{Field: p.key, Message: "must be an integer"}
		}
		*p.dst = val
	}
	if sortBy := q.Get("sort_by"); sortBy != "" {
		lq.SortBy = sortBy
	}
	if order := q.Get("order"); order != "" {
		lq.Order = order
	}

	if err := lq.Validate(); err != nil {
		return lq, validationError(err)
	}
	return lq, nil
}

// parseRefresh reports whether the caller asked to bypass the tree cache.
func parseRefresh(r *http.Request) bool {
	return strings.ToLower(r.URL.Query().Get("refresh")) == "true"
}

// parseEntityTreeQuery reads the tree scope. Blank values are left for the
// tree service to reject, so the error names every missing parameter.
func parseEntityTreeQuery(r *http.Request) types.EntityTreeQuery {
	q := r.URL.Query()
	return types.EntityTreeQuery{
		Domain:    q.Get("domain"),
		SubDomain: q.Get("sub_domain"),
		Refresh:   parseRefresh(r),
	}
}

// handleCountEntities returns the total number of entities
func (s *Server) handleCountEntities(w http.ResponseWriter, r *http.Request) {
	if _, err := parseListQuery(r); err != nil {
		s.handleError(w, err)
		return
	}

	total, err := s.store.CountEntities(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]int64{"total_entities": total})
}

// handleCountByDomain returns the number of catalog placements per domain
func (s *Server) handleCountByDomain(w http.ResponseWriter, r *http.Request) {
	if _, err := parseListQuery(r); err != nil {
		s.handleError(w, err)
		return
	}

	counts, err := s.store.CountEntitiesByDomain(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, counts)
}

// handleDomainsTree returns the domain → sub-domain tree
func (s *Server) handleDomainsTree(w http.ResponseWriter, r *http.Request) {
	if _, err := parseListQuery(r); err != nil {
		s.handleError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, s.trees.GetDomainTree(r.Context(), parseRefresh(r)))
}

// handleEntitiesTree returns the entity tree of one domain and sub-domain
func (s *Server) handleEntitiesTree(w http.ResponseWriter, r *http.Request) {
	if _, err := parseListQuery(r); err != nil {
		s.handleError(w, err)
		return
	}

	query := parseEntityTreeQuery(r)
	nodes, err := s.trees.GetEntityTree(r.Context(), query.Domain, query.SubDomain, query.Refresh)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, nodes)
}
