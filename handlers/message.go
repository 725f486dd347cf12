package handlers

import (
	"net/http"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/services"
)

// MessageHandler serves /api/messages/{channel}.
type MessageHandler struct {
	messageService services.MessageService
}

// NewMessageHandler, constructor.
func NewMessageHandler(messageService services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// List godoc
// GET /api/messages/{channel}
// Full history of the channel, oldest first.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messageService.History(r.Context(), r.PathValue("channel"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, msgs)
}

// Send godoc
// POST /api/messages/{channel}
// Body: {"text": "..."}
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Channel = r.PathValue("channel")

	result, err := h.messageService.Send(r.Context(), user.ID, &req, services.OriginREST)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, result)
}
