// Package respond writes JSON responses.
// Error responses never carry internal details: handlers log the error with
// secrets masked by SanitizeError and return a fixed user-facing message.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// GenericMessage is returned for every error that has no user-facing message.
const GenericMessage = "internal server error"

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Message    string `json:"message"`
	RequestID  string `json:"requestId,omitempty"`
	RetryAfter *int   `json:"retryAfter,omitempty"`
}

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are already sent.
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Message writes an error response with a user-facing message.
func Message(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, ErrorBody{Message: msg})
}
