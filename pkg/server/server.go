// Package server exposes the workspace over a local HTTP API. A browser
// UI drives every tree and tab operation through these endpoints and
// receives tree snapshots over a WebSocket stream.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/atelier-editor/atelier/pkg/atelier/logging"
	"github.com/atelier-editor/atelier/pkg/atelier/preview"
	"github.com/atelier-editor/atelier/pkg/workspace/broadcaster"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
	"github.com/atelier-editor/atelier/pkg/workspace/journal"
	"github.com/atelier-editor/atelier/pkg/workspace/store"
	"github.com/atelier-editor/atelier/pkg/workspace/tabs"
)

// Options configures the server.
type Options struct {
	AllowedOrigins []string
}

// Server wires the workspace components behind HTTP handlers.
type Server struct {
	engine      *engine.Engine
	tabs        *tabs.Coordinator
	gateway     engine.Gateway
	broadcaster *broadcaster.Broadcaster
	journal     *journal.Journal // nil disables history
	preview     *preview.Registry
	log         *logging.Logger
	opts        Options
}

// New creates a server over the given workspace components. The journal
// may be nil when history is disabled.
func New(eng *engine.Engine, coord *tabs.Coordinator, gateway engine.Gateway, bc *broadcaster.Broadcaster, jnl *journal.Journal, opts Options) *Server {
	return &Server{
		engine:      eng,
		tabs:        coord,
		gateway:     gateway,
		broadcaster: bc,
		journal:     jnl,
		preview:     preview.NewRegistry(),
		log:         logging.Get("server"),
		opts:        opts,
	}
}

// Router builds the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Delete("/", s.handleDeleteProject)
				r.Get("/export", s.handleExport)
				r.Post("/import", s.handleImport)

				r.Route("/files", func(r chi.Router) {
					r.Post("/", s.handleCreateFile)
					r.Delete("/{fileID}", s.handleDeleteFile)
					r.Post("/{fileID}/rename", s.handleRenameFile)
					r.Post("/{fileID}/move", s.handleMoveFile)
					r.Post("/{fileID}/duplicate", s.handleDuplicateFile)
					r.Put("/{fileID}/content", s.handleUpdateContent)
					r.Get("/{fileID}/preview", s.handlePreview)
				})
			})
		})

		r.Route("/tabs", func(r chi.Router) {
			r.Get("/", s.handleListTabs)
			r.Post("/", s.handleOpenTab)
			r.Put("/{tabID}", s.handleEditTab)
			r.Delete("/{tabID}", s.handleCloseTab)
			r.Post("/{tabID}/save", s.handleSaveTab)
			r.Post("/{tabID}/activate", s.handleActivateTab)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Get("/history", s.handleHistory)
		r.Get("/events/ws", s.handleWebSocket)
	})

	return r
}

// requestLogger logs each request with latency and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse is the structured failure body of every endpoint.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	ID    string `json:"id,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.log.Error("encoding response failed", "error", err)
		}
	}
}

// respondError maps workspace errors onto status codes and a structured
// body. Expected outcomes (NotFound, DuplicateName, InvalidMove) never
// surface as 5xx.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrEmptyName):
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "empty_name"})
	case errors.Is(err, engine.ErrInvalidMove):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "invalid_move"})
	case errors.Is(err, engine.ErrNoProject):
		s.respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "no_project"})
	case errors.Is(err, engine.ErrNotAFile):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "not_a_file"})
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, store.ErrNotFound),
		errors.Is(err, preview.ErrNotFound),
		errors.Is(err, tabs.ErrTabNotFound), errors.Is(err, tabs.ErrFileGone):
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "not_found"})
	case errors.Is(err, tabs.ErrFolderNotEditable), errors.Is(err, tabs.ErrNotDirty):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "invalid_operation"})
	default:
		s.log.Error("internal error", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "internal"})
	}
}

// record writes a best-effort journal entry. Failures are logged only.
func (s *Server) record(op journal.Operation, fileID, path, detail string) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(op, s.engine.ProjectID(), fileID, path, detail); err != nil {
		s.log.Warn("journal write failed", "op", op, "error", err)
	}
}
