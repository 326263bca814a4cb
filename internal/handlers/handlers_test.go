package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/deepdey/notebook-backend/internal/database"
	"github.com/deepdey/notebook-backend/internal/middleware"
	"github.com/deepdey/notebook-backend/internal/models"
	"github.com/deepdey/notebook-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memNotes struct {
	notes map[primitive.ObjectID]models.Note
	clock time.Time
	err   error
}

func newMemNotes() *memNotes {
	return &memNotes{notes: map[primitive.ObjectID]models.Note{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memNotes) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memNotes) List(_ context.Context, owner primitive.ObjectID) ([]models.Note, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []models.Note{}
	for _, n := range m.notes {
		if n.Owner == owner {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memNotes) Get(_ context.Context, owner, id primitive.ObjectID) (*models.Note, error) {
	n, ok := m.notes[id]
	if !ok || n.Owner != owner {
		return nil, database.ErrNotFound
	}
	return &n, nil
}

func (m *memNotes) Create(_ context.Context, note *models.Note) error {
	if m.err != nil {
		return m.err
	}
	note.ID = primitive.NewObjectID()
	note.CreatedAt = m.tick()
	note.UpdatedAt = note.CreatedAt
	m.notes[note.ID] = *note
	return nil
}

func (m *memNotes) Update(_ context.Context, owner, id primitive.ObjectID, title, content string) (*models.Note, error) {
	n, ok := m.notes[id]
	if !ok || n.Owner != owner {
		return nil, database.ErrNotFound
	}
	n.Title, n.Content, n.UpdatedAt = title, content, m.tick()
	m.notes[id] = n
	return &n, nil
}

func (m *memNotes) Delete(_ context.Context, owner, id primitive.ObjectID) (*models.Note, error) {
	n, ok := m.notes[id]
	if !ok || n.Owner != owner {
		return nil, database.ErrNotFound
	}
	delete(m.notes, id)
	return &n, nil
}

// asUser injects user the way the auth middleware does.
func asUser(user *models.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(middleware.WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func noteRouter(store NoteStore, user *models.User) http.Handler {
	h := NewNoteHandler(store, discardLogger())
	r := chi.NewRouter()
	r.Use(asUser(user))
	r.Get("/api/notes", h.List)
	r.Post("/api/notes", h.Create)
	r.Get("/api/notes/{id}", h.Get)
	r.Put("/api/notes/{id}", h.Update)
	r.Delete("/api/notes/{id}", h.Delete)
	return r
}

func send(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNoteHandlersCRUD(t *testing.T) {
	store := newMemNotes()
	alice := &models.User{ID: primitive.NewObjectID(), Name: "alice"}
	h := noteRouter(store, alice)

	rec := send(t, h, http.MethodPost, "/api/notes", NoteRequest{Title: "first", Content: "one"})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[models.Note](t, rec)
	assert.Equal(t, alice.ID, first.Owner)
	assert.Equal(t, "first", first.Title)

	rec = send(t, h, http.MethodPost, "/api/notes", NoteRequest{Title: "second", Content: "two"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = send(t, h, http.MethodGet, "/api/notes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.Note](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title, "newest first")

	rec = send(t, h, http.MethodGet, "/api/notes/"+first.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "one", decode[models.Note](t, rec).Content)

	rec = send(t, h, http.MethodPut, "/api/notes/"+first.ID.Hex(), NoteRequest{Title: "first!", Content: "uno"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uno", decode[models.Note](t, rec).Content)

	rec = send(t, h, http.MethodDelete, "/api/notes/"+first.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[DeleteNoteResponse](t, rec)
	assert.Equal(t, "Note deleted successfully", deleted.Message)
	assert.Equal(t, first.ID, deleted.Note.ID)

	rec = send(t, h, http.MethodGet, "/api/notes/"+first.ID.Hex(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Note not found"}`, rec.Body.String())
}

func TestNoteHandlersValidation(t *testing.T) {
	store := newMemNotes()
	h := noteRouter(store, &models.User{ID: primitive.NewObjectID()})

	rec := send(t, h, http.MethodPost, "/api/notes", NoteRequest{Title: "only title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Title and content are required"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec = send(t, h, method, "/api/notes/not-an-id", NoteRequest{Title: "a", Content: "b"})
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
	assert.Empty(t, store.notes)
}

func TestNotesAreScopedToOwner(t *testing.T) {
	store := newMemNotes()
	alice := &models.User{ID: primitive.NewObjectID()}
	bob := &models.User{ID: primitive.NewObjectID()}

	rec := send(t, noteRouter(store, alice), http.MethodPost, "/api/notes", NoteRequest{Title: "secret", Content: "alice only"})
	require.Equal(t, http.StatusCreated, rec.Code)
	note := decode[models.Note](t, rec)

	asBob := noteRouter(store, bob)
	rec = send(t, asBob, http.MethodGet, "/api/notes", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec = send(t, asBob, method, "/api/notes/"+note.ID.Hex(), NoteRequest{Title: "x", Content: "y"})
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
	assert.Equal(t, "alice only", store.notes[note.ID].Content)
}

func TestNoteHandlersStoreFailure(t *testing.T) {
	store := newMemNotes()
	store.err = errors.New("mongo: connection refused")
	h := noteRouter(store, &models.User{ID: primitive.NewObjectID()})

	rec := send(t, h, http.MethodGet, "/api/notes", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, rec.Body.String())
}

func TestNoteHandlersRequireUser(t *testing.T) {
	rec := send(t, noteRouter(newMemNotes(), nil), http.MethodGet, "/api/notes", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)

	rec := httptest.NewRecorder()
	writeError(rec, req, discardLogger(), &services.Error{
		Kind: services.KindValidation, Message: "Password does not meet requirements", Errors: []string{"too short"},
	}, "fallback")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Password does not meet requirements","errors":["too short"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeError(rec, req, discardLogger(), &services.Error{
		Kind: services.KindExternal, Message: "Failed to send OTP email. Please try again.", Err: errors.New("smtp: 535 auth failed"),
	}, "fallback")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "smtp")

	rec = httptest.NewRecorder()
	writeError(rec, req, discardLogger(), errors.New("boom"), "Server error during registration")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Server error during registration"}`, rec.Body.String())
}

type fakeUploader struct {
	got []byte
	err error
}

func (f *fakeUploader) UploadAvatar(_ context.Context, file io.Reader, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.got, _ = io.ReadAll(file)
	return "https://res.cloudinary.com/demo/avatar.png", nil
}

type fakeAvatarSetter struct{ url string }

func (f *fakeAvatarSetter) SetAvatar(_ context.Context, id primitive.ObjectID, url string) (*models.Profile, error) {
	f.url = url
	return &models.Profile{ID: id, Avatar: url}, nil
}

func avatarRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="avatar"; filename="me.png"`},
		"Content-Type":        {contentType},
	})
	require.NoError(t, err)
	_, _ = part.Write(data)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAvatarUpload(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	uploader := &fakeUploader{}
	setter := &fakeAvatarSetter{}
	h := asUser(user)(http.HandlerFunc(NewAvatarHandler(uploader, setter, discardLogger()).Upload))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, avatarRequest(t, "image/png", []byte("png-bytes")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []byte("png-bytes"), uploader.got)
	assert.Equal(t, "https://res.cloudinary.com/demo/avatar.png", setter.url)
	assert.Equal(t, setter.url, decode[models.Profile](t, rec).Avatar)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, avatarRequest(t, "application/pdf", []byte("%PDF")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	uploader.err = errors.New("cloudinary down")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, avatarRequest(t, "image/png", []byte("png-bytes")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "cloudinary down")
}

func TestAvatarUploadUnavailable(t *testing.T) {
	h := NewAvatarHandler(nil, &fakeAvatarSetter{}, discardLogger())
	rec := httptest.NewRecorder()
	h.Upload(rec, avatarRequest(t, "image/png", []byte("x")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"message":"Avatar uploads are not available"}`, rec.Body.String())
}
