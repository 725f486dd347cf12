package models

import "time"

// ReportAction is the action an admin took on a report.
type ReportAction string

const (
	ReportActionNone    ReportAction = "none"
	ReportActionWarning ReportAction = "warning"
	ReportActionBanned  ReportAction = "banned"
	ReportActionTempBan ReportAction = "temp-ban"
)

// AdminAction is what an admin asks for on a report.
type AdminAction string

const (
	AdminActionPermanentBan AdminAction = "permanent-ban"
	AdminActionTempBan      AdminAction = "temp-ban"
	AdminActionUnban        AdminAction = "unban"
)

// Report is a recorded violation. Message holds the original, unredacted
// text as evidence. Username is denormalized and is not rewritten on rename.
type Report struct {
	ID          string       `json:"id"`
	Username    string       `json:"user"`
	Message     string       `json:"message"`
	Channel     string       `json:"channel"`
	BadWord     string       `json:"badWord"`
	ActionTaken ReportAction `json:"actionTaken"`
	ExpiresAt   *time.Time   `json:"expiresAt"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// ReportActionRequest is the body of PUT /api/admin/reports/{id}/action.
type ReportActionRequest struct {
	Action AdminAction `json:"action"`
	Hours  float64     `json:"hours"`
}
