package api

import (
	"net/http"

	"github.com/wavechat/wavechat/internal/catalog"
	"github.com/wavechat/wavechat/internal/log"
)

// modelsHandler serves GET /api/v1/models. The catalog is static, so
// no authentication is required.
type modelsHandler struct {
	logger log.Logger
}

func (h *modelsHandler) list(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"models":       catalog.Models(),
		"defaultModel": catalog.DefaultModelID,
	}, h.logger)
}
