package api

import (
	"errors"
	"net/http"

	"github.com/wavechat/wavechat/internal/chat"
	"github.com/wavechat/wavechat/internal/log"
	"github.com/wavechat/wavechat/internal/store"
	"github.com/wavechat/wavechat/internal/upstream"
)

// chatHandler serves POST /api/v1/chat.
type chatHandler struct {
	service ChatService
	logger  log.Logger
}

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	Model          string `json:"model"`
}

func (h *chatHandler) send(w http.ResponseWriter, r *http.Request, user *store.User) {
	var req chatRequest
	if err := readJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}

	result, err := h.service.Send(r.Context(), user, chat.SendRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Model:          req.Model,
	})
	if err != nil {
		h.writeSendError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result, h.logger)
}

// writeSendError maps service errors to HTTP responses. Upstream
// failures surface their message so users see why the reply is
// missing, but never the credential.
func (h *chatHandler) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		WriteError(w, http.StatusBadRequest, "empty_message", "message must not be empty", h.logger)
	case errors.Is(err, chat.ErrLimitExceeded):
		WriteError(w, http.StatusForbidden, "limit_exceeded", "message limit reached", h.logger)
	case errors.Is(err, upstream.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, "not_configured", "API key not configured, contact the administrator", h.logger)
	default:
		var upErr *upstream.Error
		if errors.As(err, &upErr) {
			WriteError(w, http.StatusBadGateway, "upstream_error", upErr.Message, h.logger)
			return
		}
		h.logger.Error("chat exchange failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "chat_failed", "failed to process message", h.logger)
	}
}
