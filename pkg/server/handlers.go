package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atelier-editor/atelier/pkg/atelier/archive"
	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/atelier/types"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
	"github.com/atelier-editor/atelier/pkg/workspace/journal"
)

// maxImportSize bounds uploaded archives.
const maxImportSize = 64 << 20

var validate = validator.New()

// decode unmarshals and validates a JSON request body.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validating request: %w", err)
	}
	return nil
}

func (s *Server) respondBadRequest(w http.ResponseWriter, err error) {
	s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"})
}

// ensureProject loads the addressed project into the engine when it is
// not already the active one.
func (s *Server) ensureProject(projectID string) error {
	if s.engine.ProjectID() == projectID {
		return nil
	}
	p, err := s.gateway.GetProject(projectID)
	if err != nil {
		return err
	}
	s.engine.Load(p)
	return nil
}

type createProjectRequest struct {
	Name string `json:"name" validate:"required,max=256"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decode(r, &req); err != nil {
		s.respondBadRequest(w, err)
		return
	}

	id, err := s.engine.NewProject(req.Name)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.gateway.ListProjectSummaries()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := s.ensureProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := s.gateway.DeleteProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createFileRequest struct {
	Name     string `json:"name" validate:"required,max=256"`
	ParentID string `json:"parent_id"`
	Kind     string `json:"kind" validate:"required,oneof=file folder"`
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req createFileRequest
	if err := decode(r, &req); err != nil {
		s.respondBadRequest(w, err)
		return
	}
	if err := s.ensureProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}

	id, err := s.engine.Create(req.Name, req.ParentID, types.NodeKind(req.Kind))
	if errors.Is(err, engine.ErrNameExists) {
		// Not a failure: the caller gets the existing node's id.
		s.respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "duplicate_name", ID: id})
		return
	}
	if err != nil {
		s.respondError(w, err)
		return
	}

	path, _ := s.engine.ResolvePath(id)
	s.record(journal.OpCreate, id, path, req.Kind)
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	fileID := chi.URLParam(r, "fileID")
	if err := s.ensureProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}

	path, _ := s.engine.ResolvePath(fileID)
	if err := s.engine.Delete(fileID); err != nil {
		s.respondError(w, err)
		return
	}
	s.record(journal.OpDelete, fileID, path, "")
	w.WriteHeader(http.StatusNoContent)
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=256"`
}

func (s *Server) handleRenameFile(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	fileID := chi.URLParam(r, "fileID")
	var req renameRequest
	if err := decode(r, &req); err != nil {
		s.respondBadRequest(w, err)
		return
	}
	if err := s.ensureProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}

	if err := s.engine.Rename(fileID, req.Name); err != nil {
		s.respondError(w, err)
		return
	}
	path, _ := s.engine.ResolvePath(fileID)
	s.record(journal.OpRename, fileID, path, req.Name)
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	ParentID string `json:"parent_id"`
}

func (s *Server) handleMoveFile(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	fileID := chi.URLParam(r, "fileID")
	var req moveRequest
	if err := decode(r, &req); err != nil {
		s.respondBadRequest(w, err)
		return
	}
	if err := s.ensureProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}

	if err := s.engine.Move(fileID, req.ParentID); err != nil {
		s.respondError(w, err)
		return
	}
	path, _ := s.engine.ResolvePath(fileID)
	s.record(journal.OpMove, fileID, path, req.ParentID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicateFile(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	fileID := chi.URLParam(r, "fileID")
	if err := s.ensureProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}

	id, err := s.engine.Duplicate(fileID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	path, _ := s.engine.ResolvePath(id)
	s.record(journal.OpDuplicate, id, path, fileID)
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type contentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	fileID := chi.URLParam(r, "fileID")
	var req contentRequest
	if err := decode(r, &req); err != nil {
		s.respondBadRequest(w, err)
		return
	}
	if err := s.ensureProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}

	if err := s.engine.UpdateContent(fileID, req.Content); err != nil {
		s.respondError(w, err)
		return
	}
	path, _ := s.engine.ResolvePath(fileID)
	s.record(journal.OpContent, fileID, path, "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	fileID := chi.URLParam(r, "fileID")
	if err := s.ensureProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}

	html, err := s.preview.Render(s.engine.Snapshot(), fileID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := s.ensureProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}

	snapshot := s.engine.Snapshot()
	data, err := archive.Export(snapshot)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snapshot.Name+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := s.ensureProject(projectID); err != nil {
		s.respondError(w, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		s.respondBadRequest(w, err)
		return
	}

	files, err := archive.Import(data, ident.UUID{})
	if err != nil {
		if errors.Is(err, archive.ErrMalformed) {
			s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "malformed_archive"})
			return
		}
		s.respondError(w, err)
		return
	}

	if err := s.engine.Replace(files); err != nil {
		s.respondError(w, err)
		return
	}
	s.record(journal.OpImport, "", "", fmt.Sprintf("%d entries", len(files)))
	s.respondJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.gateway.GetSettings()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings types.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.respondBadRequest(w, err)
		return
	}
	if err := s.gateway.SaveSettings(&settings); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.respondJSON(w, http.StatusOK, []journal.Entry{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			s.respondBadRequest(w, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = parsed
	}
	entries, err := s.journal.List(limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}
