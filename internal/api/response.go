package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/wavechat/wavechat/internal/log"
)

// maxBodyBytes bounds request bodies. Chat messages are small; this
// leaves generous headroom.
const maxBodyBytes = 1 << 20

// errorBody is the wire shape of an error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes data inside the {"data": ...} envelope. Encoding
// happens into a buffer first so headers are only sent after a
// successful encode.
func WriteJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(map[string]any{"data": data}); err != nil {
		logger.Error("encoding JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common, not worth more than debug.
		logger.Debug("writing response body", "error", err)
	}
}

// WriteError writes the {"error": {"code", "message"}} envelope.
func WriteError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(map[string]any{
		"error": errorBody{Code: code, Message: message},
	}); err != nil {
		logger.Error("encoding error response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Debug("writing error body", "error", err)
	}
}

// readJSON decodes a request body into dst. State-changing routes
// only accept application/json, which doubles as cross-site request
// protection alongside SameSite cookies: browsers cannot send this
// content type cross-origin without a CORS preflight.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	ct := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("unsupported content type %q", ct)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
