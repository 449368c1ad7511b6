package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// MaxBodyBytes bounds request bodies accepted by Decode.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the body written for failed requests.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// WriteError writes an error body. Descriptions of server errors are never
// exposed to the client.
func WriteError(w http.ResponseWriter, status int, code, description string) {
	resp := ErrorResponse{Error: code}
	if status < http.StatusInternalServerError {
		resp.Description = description
	}
	WriteJSON(w, status, resp)
}

// Decode reads a JSON body into T, rejecting unknown fields and oversized bodies.
func Decode[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var v T
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}
