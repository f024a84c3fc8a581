package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	apperrors "github.com/victor-igor/wacrm-backend/internal/errors"
)

// MediaUploader is the slice of the object store this handler needs.
type MediaUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	PublicURL(key string) string
}

// MediaHandler accepts campaign media and returns its public URL. The UI
// uploads first and passes the URL in the campaign payload, so the campaign
// row is only ever written after its media exists.
type MediaHandler struct {
	Store MediaUploader
}

const maxMediaBytes = 32 << 20 // 32 MiB

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMediaBytes); err != nil {
		writeError(w, "upload media", apperrors.NewValidation("file", "multipart form too large or malformed"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "upload media", apperrors.NewValidation("file", "missing file field"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("campaign-media/%s%s", uuid.New(), filepath.Ext(header.Filename))

	if err := h.Store.Upload(r.Context(), key, file, contentType); err != nil {
		writeError(w, "upload media", apperrors.NewDataAccess("media upload", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"url": h.Store.PublicURL(key),
	})
}
