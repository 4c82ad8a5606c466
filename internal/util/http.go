package util

import (
	"encoding/json"
	"net/http"
)

// APIError is the JSON error envelope. Errors carries field-scoped
// validation messages keyed by input field so forms can attach them to the
// offending control.
type APIError struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	RequestID string              `json:"request_id,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, msg, reqID string) {
	WriteJSON(w, status, APIError{Code: code, Message: msg, RequestID: reqID})
}

func WriteFieldErrors(w http.ResponseWriter, status int, code, msg, reqID string, fields map[string][]string) {
	WriteJSON(w, status, APIError{Code: code, Message: msg, RequestID: reqID, Errors: fields})
}
