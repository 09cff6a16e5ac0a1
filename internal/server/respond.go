package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Error messages returned to clients.
const (
	msgServerError        = "Server error"
	msgNoExpression       = "No expression provided"
	msgInvalidExpression  = "Invalid expression"
	msgNoTranscript       = "No transcript provided"
	msgNoText             = "No text provided"
	msgTTSFailed          = "Text-to-speech generation failed"
	msgTTSDisabled        = "Text-to-speech is disabled"
	msgNoEntry            = "No entry provided"
	msgInvalidEntry       = "Invalid entry"
	msgInvalidID          = "Invalid id"
	msgInvalidLimit       = "Invalid limit"
	msgHistoryFailed      = "History operation failed"
	msgInvalidTheme       = "Invalid theme"
	msgThemeFailed        = "Theme operation failed"
	msgLastFailed         = "Failed to get last calculation"
	msgInvalidRequestBody = "Invalid request body"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
