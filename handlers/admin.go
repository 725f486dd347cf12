package handlers

import (
	"context"
	"net/http"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/services"
)

// AdminHandler serves /api/admin/users and /api/admin/channels.
type AdminHandler struct {
	adminService   services.AdminService
	channelService services.ChannelService
}

// NewAdminHandler, constructor.
func NewAdminHandler(adminService services.AdminService, channelService services.ChannelService) *AdminHandler {
	return &AdminHandler{adminService: adminService, channelService: channelService}
}

// ListUsers godoc
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	pkg.JSON(w, http.StatusOK, users)
}

// Approve godoc
// PUT /api/admin/users/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.adminService.Approve)
}

// Deactivate godoc
// PUT /api/admin/users/{id}/deactivate
func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	caller, ok := CurrentUser(r)
	if ok && caller.ID == r.PathValue("id") {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "you cannot deactivate your own account")
		return
	}
	h.userAction(w, r, h.adminService.Deactivate)
}

// Activate godoc
// PUT /api/admin/users/{id}/activate
func (h *AdminHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.adminService.Activate)
}

func (h *AdminHandler) userAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id string) (*models.User, error)) {
	user, err := action(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, user)
}

// ListChannels godoc
// GET /api/admin/channels
func (h *AdminHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channelService.ListWithCreator(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	pkg.JSON(w, http.StatusOK, channels)
}

// DeleteChannel godoc
// DELETE /api/admin/channels/{id}
func (h *AdminHandler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := h.channelService.Delete(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "channel deleted"})
}
