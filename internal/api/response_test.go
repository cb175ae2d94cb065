package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSON_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]int{"count": 3}, discard())

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		Data map[string]int `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Data["count"] != 3 {
		t.Errorf("data = %v, want count 3", body.Data)
	}
}

func TestWriteError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "not_found", "missing", discard())

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var body struct {
		Error errorBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error.Code != "not_found" || body.Error.Message != "missing" {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestReadJSON_ContentType(t *testing.T) {
	tests := []struct {
		ct      string
		wantErr bool
	}{
		{"application/json", false},
		{"application/json; charset=utf-8", false},
		{"text/plain", true},
		{"application/x-www-form-urlencoded", true},
		{"", true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a": 1}`))
		req.Header.Set("Content-Type", tt.ct)

		var dst struct {
			A int `json:"a"`
		}
		err := readJSON(httptest.NewRecorder(), req, &dst)
		if (err != nil) != tt.wantErr {
			t.Errorf("readJSON(ct=%q) error = %v, wantErr %v", tt.ct, err, tt.wantErr)
		}
	}
}

func TestReadJSON_UnknownField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"surprise": true}`))
	req.Header.Set("Content-Type", "application/json")

	var dst struct {
		A int `json:"a"`
	}
	if err := readJSON(httptest.NewRecorder(), req, &dst); err == nil {
		t.Error("readJSON() should reject unknown fields")
	}
}
