// Package transport exposes the workshop HTTP surface: PIN authentication,
// per-field editing, background repository sync, and a public read of the
// current document.
package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/jhall/workbench/internal/content"
	"github.com/jhall/workbench/internal/domain/auth"
	"github.com/jhall/workbench/internal/domain/publish"
)

// Server wires HTTP handlers over the domain services.
type Server struct {
	auth   *auth.Service
	store  *content.Store
	coord  *publish.Coordinator
	logger *slog.Logger
}

// NewServer creates the router with CORS and session middleware.
func NewServer(authSvc *auth.Service, store *content.Store, coord *publish.Coordinator, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := &Server{auth: authSvc, store: store, coord: coord, logger: logger}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	r.Post("/auth", srv.handleAuth)
	r.Get("/content", srv.handleContent)
	r.Get("/health", srv.handleHealth)

	r.Group(func(protected chi.Router) {
		protected.Use(SessionMiddleware(authSvc))
		protected.Get("/edit", srv.handleGetDocument)
		protected.Post("/edit", srv.handleEdit)
		protected.Post("/sync", srv.handleSync)
	})

	return r
}

type authRequest struct {
	PIN string `json:"pin"`
}

type authResponse struct {
	Success      bool   `json:"success"`
	SessionToken string `json:"sessionToken"`
	Expires      int64  `json:"expires"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "PIN is required")
		return
	}

	session, err := s.auth.Authenticate(r.Context(), req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingPIN):
			writeError(w, http.StatusBadRequest, "PIN is required")
		case errors.Is(err, auth.ErrLocked):
			writeError(w, http.StatusTooManyRequests, "Too many failed attempts. Workshop access locked.")
		case errors.Is(err, auth.ErrInvalidPIN):
			writeError(w, http.StatusUnauthorized, "Invalid PIN")
		case errors.Is(err, auth.ErrNotConfigured):
			writeError(w, http.StatusInternalServerError, "Authentication system not configured")
		default:
			s.logger.Error("authentication failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success:      true,
		SessionToken: session.Token,
		Expires:      session.ExpiresAt.UnixMilli(),
	})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Document()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Content not loaded")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Document()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read data file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    doc,
	})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req publish.FieldEdit
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	result, err := s.coord.ApplyFieldEdit(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, publish.ErrMissingFields),
			errors.Is(err, publish.ErrUnknownContentType),
			errors.Is(err, content.ErrUnknownField),
			errors.Is(err, content.ErrInvalidValue):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, content.ErrNotFound):
			writeError(w, http.StatusNotFound, "Content not found")
		default:
			s.logger.Error("field edit failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save changes")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Content updated successfully",
		"timestamp": result.Timestamp,
		"synced":    result.Synced,
	})
}

type syncRequest struct {
	ChangeDescription string               `json:"changeDescription"`
	Files             []publish.FileChange `json:"files"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	outcome, err := s.coord.SyncFiles(r.Context(), req.ChangeDescription, req.Files)
	if err != nil {
		if errors.Is(err, publish.ErrMissingFields) {
			writeError(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		s.logger.Error("sync failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Sync failed")
		return
	}

	resp := map[string]any{
		"success": true,
		"synced":  outcome.Synced,
		"message": outcome.Message,
	}
	if outcome.SHA != "" {
		resp["commitSha"] = outcome.SHA
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
