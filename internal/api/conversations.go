package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/wavechat/wavechat/internal/log"
	"github.com/wavechat/wavechat/internal/store"
)

// conversationHandler serves the conversation listing, detail and
// delete routes. Every query is scoped to the authenticated user, so
// foreign conversations are indistinguishable from missing ones.
type conversationHandler struct {
	store  Store
	logger log.Logger
}

func (h *conversationHandler) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid conversation ID", h.logger)
		return "", false
	}
	return id, true
}

// list handles GET /api/v1/conversations.
func (h *conversationHandler) list(w http.ResponseWriter, r *http.Request, user *store.User) {
	convs, err := h.store.ListConversations(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("listing conversations", "error", err, "user_id", user.ID)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list conversations", h.logger)
		return
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"conversations": convs}, h.logger)
}

// get handles GET /api/v1/conversations/{id}, returning the
// conversation with its messages.
func (h *conversationHandler) get(w http.ResponseWriter, r *http.Request, user *store.User) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	conv, err := h.store.ConversationByID(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "conversation not found", h.logger)
			return
		}
		h.logger.Error("loading conversation", "error", err, "conversation_id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to load conversation", h.logger)
		return
	}

	msgs, err := h.store.ListMessages(r.Context(), conv.ID)
	if err != nil {
		h.logger.Error("loading messages", "error", err, "conversation_id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to load messages", h.logger)
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"conversation": conv,
		"messages":     msgs,
	}, h.logger)
}

// delete handles DELETE /api/v1/conversations/{id}.
func (h *conversationHandler) delete(w http.ResponseWriter, r *http.Request, user *store.User) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteConversation(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "conversation not found", h.logger)
			return
		}
		h.logger.Error("deleting conversation", "error", err, "conversation_id", id)
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete conversation", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"deleted": true}, h.logger)
}
