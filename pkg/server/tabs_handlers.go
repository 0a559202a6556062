package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type openTabRequest struct {
	FileID string `json:"file_id" validate:"required"`
}

func (s *Server) handleOpenTab(w http.ResponseWriter, r *http.Request) {
	var req openTabRequest
	if err := decode(r, &req); err != nil {
		s.respondBadRequest(w, err)
		return
	}

	tab, err := s.tabs.Open(req.FileID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tab)
}

func (s *Server) handleListTabs(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.tabs.Tabs())
}

func (s *Server) handleEditTab(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tabID")
	var req contentRequest
	if err := decode(r, &req); err != nil {
		s.respondBadRequest(w, err)
		return
	}

	if err := s.tabs.Edit(tabID, req.Content); err != nil {
		s.respondError(w, err)
		return
	}
	tab, err := s.tabs.Get(tabID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tab)
}

func (s *Server) handleSaveTab(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tabID")
	if err := s.tabs.Save(tabID); err != nil {
		s.respondError(w, err)
		return
	}
	tab, err := s.tabs.Get(tabID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tab)
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tabID")
	if err := s.tabs.Close(tabID); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateTab(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tabID")
	if err := s.tabs.Activate(tabID); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
