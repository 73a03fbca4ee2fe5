// Package httpx provides the JSON envelope and request helpers shared by handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Envelope is the success response body.
type Envelope struct {
	Message string `json:"message"`
	Result  any    `json:"result"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends a success envelope.
func OK(w http.ResponseWriter, status int, message string, result any) {
	JSON(w, status, Envelope{Message: message, Result: result})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return shared.BadRequest("Request body is required", nil)
		}
		return shared.Validation([]shared.FieldError{{Field: "body", Message: err.Error()}})
	}
	return nil
}
