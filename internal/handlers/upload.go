package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/deepdey/notebook-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxAvatarBytes caps avatar uploads at 5MB.
const maxAvatarBytes = 5 << 20

// AvatarUploader stores an image and returns its public URL.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, file io.Reader, userID string) (string, error)
}

// AvatarSetter records the uploaded URL on the user.
type AvatarSetter interface {
	SetAvatar(ctx context.Context, userID primitive.ObjectID, url string) (*models.Profile, error)
}

type AvatarHandler struct {
	uploader AvatarUploader // nil when Cloudinary is not configured
	accounts AvatarSetter
	log      *slog.Logger
}

func NewAvatarHandler(uploader AvatarUploader, accounts AvatarSetter, log *slog.Logger) *AvatarHandler {
	return &AvatarHandler{uploader: uploader, accounts: accounts, log: log}
}

// Upload handles POST /api/auth/avatar with a multipart "avatar" image.
func (h *AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Message: "Avatar uploads are not available"})
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+1<<10)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Failed to parse form"})
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "No file provided"})
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Avatar must be an image"})
		return
	}

	url, err := h.uploader.UploadAvatar(r.Context(), file, user.ID.Hex())
	if err != nil {
		h.log.ErrorContext(r.Context(), "avatar upload failed", "user_id", user.ID.Hex(), "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Failed to upload avatar"})
		return
	}

	profile, err := h.accounts.SetAvatar(r.Context(), user.ID, url)
	if err != nil {
		writeError(w, r, h.log, err, "Failed to save avatar")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
