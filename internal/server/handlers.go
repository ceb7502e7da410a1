package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vonshlovens/flownotes/internal/note"
	"github.com/vonshlovens/flownotes/internal/pdf"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Notes

type CreateNoteRequest struct {
	Title string `json:"title"`
}

func (s *Server) listNotesHandler(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.ListNotes(r.Context())
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, notes, http.StatusOK)
}

func (s *Server) createNoteHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := s.store.CreateNote(r.Context(), req.Title)
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, n, http.StatusCreated)
}

func (s *Server) getNoteHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.LoadNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, n, http.StatusOK)
}

func (s *Server) saveNoteHandler(w http.ResponseWriter, r *http.Request) {
	var n note.Note
	if !decodeBody(w, r, &n) {
		return
	}
	// The path names the note being overwritten
	n.ID = chi.URLParam(r, "id")

	if err := s.store.SaveNote(r.Context(), &n); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PDFs

type ImportPDFRequest struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Pages int    `json:"pages"`
}

func (s *Server) listPDFsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListPDFs(r.Context())
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, docs, http.StatusOK)
}

func (s *Server) importPDFHandler(w http.ResponseWriter, r *http.Request) {
	var req ImportPDFRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.Path == "" || req.Pages < 0 {
		jsonError(w, "name and path required", http.StatusBadRequest)
		return
	}

	doc, err := s.store.ImportPDF(r.Context(), req.Name, req.Path, req.Pages)
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, doc, http.StatusCreated)
}

func (s *Server) getPDFHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.LoadPDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, doc, http.StatusOK)
}

func (s *Server) savePDFHandler(w http.ResponseWriter, r *http.Request) {
	var doc pdf.Document
	if !decodeBody(w, r, &doc) {
		return
	}
	doc.ID = chi.URLParam(r, "id")

	for i := range doc.Annotations {
		if err := doc.Annotations[i].Validate(); err != nil {
			storeError(w, r, err)
			return
		}
	}

	if err := s.store.SavePDF(r.Context(), &doc); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deletePDFHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePDF(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) saveAnnotationHandler(w http.ResponseWriter, r *http.Request) {
	var a pdf.Annotation
	if !decodeBody(w, r, &a) {
		return
	}

	if err := s.store.SavePDFAnnotation(r.Context(), chi.URLParam(r, "id"), a); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
