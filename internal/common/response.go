package common

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorBody is the payload under the "error" key of failed responses.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v as the response body.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Data writes v wrapped in a {"data": ...} envelope.
func Data(w http.ResponseWriter, status int, v any) {
	JSON(w, status, map[string]any{"data": v})
}

// List writes a 200 data envelope and reports the unpaged item count in
// X-Total-Count.
func List(w http.ResponseWriter, items any, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	Data(w, http.StatusOK, items)
}

// JSONError writes {"error": {"code", "message", "details"}}.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]ErrorBody{
		"error": {Code: code, Message: message, Details: details},
	})
}
