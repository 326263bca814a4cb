package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/deepdey/notebook-backend/internal/database"
	"github.com/deepdey/notebook-backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	msgNoteNotFound   = "Note not found"
	msgNoteFields     = "Title and content are required"
	msgInternalServer = "Internal server error"
)

// NoteStore is the note persistence the routes need. Every call is scoped to
// the owning user.
type NoteStore interface {
	List(ctx context.Context, owner primitive.ObjectID) ([]models.Note, error)
	Get(ctx context.Context, owner, id primitive.ObjectID) (*models.Note, error)
	Create(ctx context.Context, note *models.Note) error
	Update(ctx context.Context, owner, id primitive.ObjectID, title, content string) (*models.Note, error)
	Delete(ctx context.Context, owner, id primitive.ObjectID) (*models.Note, error)
}

type NoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type DeleteNoteResponse struct {
	Message string       `json:"message"`
	Note    *models.Note `json:"note"`
}

type NoteHandler struct {
	notes NoteStore
	log   *slog.Logger
}

func NewNoteHandler(notes NoteStore, log *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, log: log}
}

// List returns the caller's notes, newest first.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	notes, err := h.notes.List(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	note, err := h.notes.Get(r.Context(), user.ID, id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: msgNoteNotFound})
		return
	}
	if err != nil {
		h.fail(w, r, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, ok := decodeNote(w, r)
	if !ok {
		return
	}

	note := &models.Note{Owner: user.ID, Title: req.Title, Content: req.Content}
	if err := h.notes.Create(r.Context(), note); err != nil {
		h.fail(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	req, ok := decodeNote(w, r)
	if !ok {
		return
	}

	note, err := h.notes.Update(r.Context(), user.ID, id, req.Title, req.Content)
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: msgNoteNotFound})
		return
	}
	if err != nil {
		h.fail(w, r, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}

	note, err := h.notes.Delete(r.Context(), user.ID, id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: msgNoteNotFound})
		return
	}
	if err != nil {
		h.fail(w, r, "delete note", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteNoteResponse{Message: "Note deleted successfully", Note: note})
}

func (h *NoteHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.ErrorContext(r.Context(), "note operation failed", "op", op, "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: msgInternalServer})
}

// noteID parses the {id} URL param. A malformed id cannot name any note, so
// it is reported as not found.
func noteID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: msgNoteNotFound})
		return primitive.NilObjectID, false
	}
	return id, true
}

func decodeNote(w http.ResponseWriter, r *http.Request) (NoteRequest, bool) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: msgNoteFields})
		return req, false
	}
	return req, true
}
