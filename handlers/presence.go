package handlers

import (
	"net/http"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/services"
)

// PresenceHandler serves GET /api/users/status.
type PresenceHandler struct {
	presence services.PresenceService
}

// NewPresenceHandler, constructor.
func NewPresenceHandler(presence services.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// Statuses godoc
// GET /api/users/status
// The list userStatusList pushes, for clients that load before the socket.
func (h *PresenceHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.presence.Statuses(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if statuses == nil {
		statuses = []models.UserStatus{}
	}
	pkg.JSON(w, http.StatusOK, statuses)
}
