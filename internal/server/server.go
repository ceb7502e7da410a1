// Package server exposes a store.Store over HTTP
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vonshlovens/flownotes/internal/pdf"
	"github.com/vonshlovens/flownotes/internal/store"
)

// maxBodyBytes bounds request bodies; notes with embedded content stay far below it
const maxBodyBytes = 8 << 20

type Server struct {
	store   store.Store
	router  *chi.Mux
	timeout time.Duration
}

// New builds the router. timeout bounds each request; zero disables it.
func New(s store.Store, timeout time.Duration) *Server {
	srv := &Server{
		store:   s,
		router:  chi.NewRouter(),
		timeout: timeout,
	}
	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(accessLog)
	s.router.Use(middleware.Recoverer)
	if s.timeout > 0 {
		s.router.Use(middleware.Timeout(s.timeout))
	}

	s.router.Get("/health", s.healthHandler)

	s.router.Route("/api/notes", func(r chi.Router) {
		r.Get("/", s.listNotesHandler)
		r.Post("/", s.createNoteHandler)
		r.Get("/{id}", s.getNoteHandler)
		r.Put("/{id}", s.saveNoteHandler)
		r.Delete("/{id}", s.deleteNoteHandler)
	})

	s.router.Route("/api/pdfs", func(r chi.Router) {
		r.Get("/", s.listPDFsHandler)
		r.Post("/", s.importPDFHandler)
		r.Get("/{id}", s.getPDFHandler)
		r.Put("/{id}", s.savePDFHandler)
		r.Delete("/{id}", s.deletePDFHandler)
		r.Put("/{id}/annotations", s.saveAnnotationHandler)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLog writes one structured line per request
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// storeError maps store errors onto status codes
func storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidNote):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, pdf.ErrInvalidAnnotation):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		slog.Error("store operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
