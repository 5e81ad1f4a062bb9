package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"notesync/internal/document/model"
	"notesync/internal/document/service"
	"notesync/middleware"
	"notesync/pkg/logger"
)

// maxBodySize fits a maximal note even when every byte is sent as a
// six-byte \uXXXX escape. The service enforces the real limit.
const maxBodySize = 6*service.MaxContentSize + 1024

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

func (h *DocumentHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	owner := middleware.Username(r.Context())

	notes, err := h.Service.List(r.Context(), owner)
	if err != nil {
		logger.Sugar.Errorf("Error fetching notes: %v", err)
		http.Error(w, "Failed to fetch notes", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

func (h *DocumentHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req model.CreateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	owner := middleware.Username(r.Context())

	id, err := h.Service.Create(r.Context(), owner, req.Content)
	if err != nil {
		writeError(w, "create", err)
		return
	}

	writeJSON(w, http.StatusCreated, model.CreateNoteResponse{ID: id})
}

func (h *DocumentHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		http.Error(w, "Missing note id", http.StatusBadRequest)
		return
	}
	owner := middleware.Username(r.Context())

	if err := h.Service.Update(r.Context(), owner, req.ID, req.Content); err != nil {
		writeError(w, "update", err)
		return
	}

	writeJSON(w, http.StatusOK, model.StatusResponse{Status: "updated"})
}

func (h *DocumentHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	var req model.DeleteNoteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		http.Error(w, "Missing note id", http.StatusBadRequest)
		return
	}
	owner := middleware.Username(r.Context())

	if err := h.Service.Delete(r.Context(), owner, req.ID); err != nil {
		writeError(w, "delete", err)
		return
	}

	writeJSON(w, http.StatusOK, model.StatusResponse{Status: "deleted"})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return true
	case errors.As(err, &tooLarge):
		http.Error(w, "Note content too large", http.StatusRequestEntityTooLarge)
	default:
		http.Error(w, "Invalid request body", http.StatusBadRequest)
	}
	return false
}

func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "Note not found", http.StatusNotFound)
	case errors.Is(err, service.ErrTooLarge):
		http.Error(w, "Note content too large", http.StatusRequestEntityTooLarge)
	default:
		logger.Sugar.Errorf("Handler: Failed to %s note: %v", op, err)
		http.Error(w, "Failed to "+op+" note", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
