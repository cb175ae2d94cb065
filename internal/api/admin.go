package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/wavechat/wavechat/internal/log"
	"github.com/wavechat/wavechat/internal/store"
)

// adminHandler serves the admin panel routes. All of them sit behind
// requireAdmin.
type adminHandler struct {
	store  Store
	logger log.Logger
}

// stats handles GET /api/v1/admin/stats.
func (h *adminHandler) stats(w http.ResponseWriter, r *http.Request, _ *store.User) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("loading stats", "error", err)
		WriteError(w, http.StatusInternalServerError, "stats_failed", "failed to load stats", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"stats": stats}, h.logger)
}

// listUsers handles GET /api/v1/admin/users.
func (h *adminHandler) listUsers(w http.ResponseWriter, r *http.Request, _ *store.User) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("listing users", "error", err)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list users", h.logger)
		return
	}
	if users == nil {
		users = []store.UserWithCount{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": users}, h.logger)
}

type updateUserRequest struct {
	MessagesLimit *int  `json:"messagesLimit"`
	IsAdmin       *bool `json:"isAdmin"`
}

// updateUser handles PATCH /api/v1/admin/users/{id}. Absent fields
// are left untouched.
func (h *adminHandler) updateUser(w http.ResponseWriter, r *http.Request, _ *store.User) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid user ID", h.logger)
		return
	}

	var req updateUserRequest
	if err := readJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}
	if req.MessagesLimit == nil && req.IsAdmin == nil {
		WriteError(w, http.StatusBadRequest, "empty_update", "nothing to update", h.logger)
		return
	}
	if req.MessagesLimit != nil && *req.MessagesLimit < 0 {
		WriteError(w, http.StatusBadRequest, "invalid_limit", "messagesLimit must not be negative", h.logger)
		return
	}

	user, err := h.store.UpdateUserLimits(r.Context(), id, req.MessagesLimit, req.IsAdmin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "user not found", h.logger)
			return
		}
		h.logger.Error("updating user", "error", err, "user_id", id)
		WriteError(w, http.StatusInternalServerError, "update_failed", "failed to update user", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": user}, h.logger)
}

// deleteUser handles DELETE /api/v1/admin/users/{id}. Admins cannot
// delete their own account.
func (h *adminHandler) deleteUser(w http.ResponseWriter, r *http.Request, caller *store.User) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid user ID", h.logger)
		return
	}
	if id == caller.ID {
		WriteError(w, http.StatusBadRequest, "self_delete", "you cannot delete your own account", h.logger)
		return
	}

	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "user not found", h.logger)
			return
		}
		h.logger.Error("deleting user", "error", err, "user_id", id)
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete user", h.logger)
		return
	}

	h.logger.Info("user deleted by admin", "user_id", id, "admin_id", caller.ID)
	WriteJSON(w, http.StatusOK, map[string]any{"deleted": true}, h.logger)
}

// settings handles GET /api/v1/admin/settings, returning a flat
// key/value object.
func (h *adminHandler) settings(w http.ResponseWriter, r *http.Request, _ *store.User) {
	settings, err := h.store.Settings(r.Context())
	if err != nil {
		h.logger.Error("listing settings", "error", err)
		WriteError(w, http.StatusInternalServerError, "settings_failed", "failed to load settings", h.logger)
		return
	}

	obj := make(map[string]string, len(settings))
	for _, st := range settings {
		obj[st.Key] = st.Value
	}
	WriteJSON(w, http.StatusOK, map[string]any{"settings": obj}, h.logger)
}

type updateSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// updateSetting handles POST /api/v1/admin/settings. Values never
// reach the log, only keys do.
func (h *adminHandler) updateSetting(w http.ResponseWriter, r *http.Request, caller *store.User) {
	var req updateSettingRequest
	if err := readJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}
	if req.Key == "" {
		WriteError(w, http.StatusBadRequest, "missing_key", "setting key is required", h.logger)
		return
	}

	if err := h.store.SetSetting(r.Context(), req.Key, req.Value); err != nil {
		h.logger.Error("saving setting", "error", err, "key", req.Key)
		WriteError(w, http.StatusInternalServerError, "settings_failed", "failed to save setting", h.logger)
		return
	}

	h.logger.Info("setting updated", "key", req.Key, "admin_id", caller.ID)
	WriteJSON(w, http.StatusOK, map[string]any{"saved": true}, h.logger)
}
