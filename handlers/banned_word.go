package handlers

import (
	"net/http"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/services"
)

// BannedWordHandler serves the admin word list and its public read-only
// view.
type BannedWordHandler struct {
	wordService services.BannedWordService
}

// NewBannedWordHandler, constructor.
func NewBannedWordHandler(wordService services.BannedWordService) *BannedWordHandler {
	return &BannedWordHandler{wordService: wordService}
}

// List godoc
// GET /api/admin/banned-words
func (h *BannedWordHandler) List(w http.ResponseWriter, r *http.Request) {
	words, err := h.wordService.List(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if words == nil {
		words = []models.BannedWord{}
	}
	pkg.JSON(w, http.StatusOK, words)
}

// PublicList godoc
// GET /api/public/banned-words
// Just the words, so clients can warn before sending.
func (h *BannedWordHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.wordService.List(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}
	words := make([]string, 0, len(entries))
	for _, e := range entries {
		words = append(words, e.Word)
	}
	pkg.JSON(w, http.StatusOK, words)
}

// Add godoc
// POST /api/admin/banned-words
func (h *BannedWordHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.AddBannedWordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	word, err := h.wordService.Add(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, word)
}

// Delete godoc
// DELETE /api/admin/banned-words/{id}
func (h *BannedWordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.wordService.Delete(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "banned word removed"})
}
