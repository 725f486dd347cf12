package handlers

import (
	"net/http"
	"strings"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/services"
)

// ReportHandler serves /api/admin/reports.
type ReportHandler struct {
	moderation services.ModerationService
}

// NewReportHandler, constructor.
func NewReportHandler(moderation services.ModerationService) *ReportHandler {
	return &ReportHandler{moderation: moderation}
}

// List godoc
// GET /api/admin/reports[?user=username]
// Newest first. ?user narrows to one username's reports.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		reports []models.Report
		err     error
	)
	if user := strings.TrimSpace(r.URL.Query().Get("user")); user != "" {
		reports, err = h.moderation.ListReportsFor(r.Context(), user)
	} else {
		reports, err = h.moderation.ListReports(r.Context())
	}
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	pkg.JSON(w, http.StatusOK, reports)
}

// Action godoc
// PUT /api/admin/reports/{id}/action
// Body: {"action": "permanent-ban"|"temp-ban"|"unban", "hours": 5}
func (h *ReportHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req models.ReportActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.moderation.ApplyAdminAction(r.Context(), r.PathValue("id"), req.Action, req.Hours)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, report)
}
