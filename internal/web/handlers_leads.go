package web

import (
	"net/http"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
)

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	page, err := s.service.List(r.Context(), filter,
		parseIntParam(r, "page", 1),
		parseIntParam(r, "pageSize", core.DefaultPageSize))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	row, err := decodeRow(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	lead, err := s.service.Create(r.Context(), row)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/leads/"+lead.ID.String())
	writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	lead, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// handleUpdateLead expects the full form plus the updatedAt the client
// loaded. Optional fields left out of the body keep their stored value.
func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	row, err := decodeRow(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	expected, err := takeUpdatedAt(row)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.Update(r.Context(), id, row, expected)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type historyItem struct {
	core.HistoryEntry
	Description []string `json:"description"`
}

func (s *Server) handleLeadHistory(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	entries, err := s.service.History(r.Context(), id, parseIntParam(r, "limit", core.DefaultHistoryLimit))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	items := make([]historyItem, len(entries))
	for i, e := range entries {
		items[i] = historyItem{HistoryEntry: e, Description: e.Describe()}
	}
	writeJSON(w, http.StatusOK, items)
}
