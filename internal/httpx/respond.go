package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers are gone; all that is left is to log
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteYAML writes v as YAML. Field names follow the json tags, so both
// formats carry identical keys.
func WriteYAML(w http.ResponseWriter, status int, v any) {
	doc, err := toYAMLNode(v)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to render report", nil)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(status)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		slog.Error("failed to encode YAML response", "error", err)
	}
	_ = enc.Close()
}

// toYAMLNode round-trips through JSON so json tags and omitempty apply.
func toYAMLNode(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	WriteJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
}
