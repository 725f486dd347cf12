package handlers

import (
	"net/http"

	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/services"
)

// AvatarHandler serves POST /api/upload/avatar.
type AvatarHandler struct {
	uploadService services.UploadService
	maxSize       int64
}

// NewAvatarHandler, constructor.
func NewAvatarHandler(uploadService services.UploadService, maxSize int64) *AvatarHandler {
	return &AvatarHandler{uploadService: uploadService, maxSize: maxSize}
}

// Upload godoc
// POST /api/upload/avatar
// Multipart form, file field "avatar".
func (h *AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Leave room for the multipart envelope around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+1<<20)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "file too large or invalid form data")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	updated, err := h.uploadService.UploadAvatar(r.Context(), user.ID, file, header.Filename, header.Size)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]any{"avatar": updated.Avatar, "user": updated})
}
