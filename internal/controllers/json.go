package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/asofia888/self-care-guide/models"
)

// errorBody is the JSON error envelope. Details are attached only
// outside production.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func respondValue(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal response: %v", err)
		respondJSON(w, http.StatusInternalServerError, []byte(`{"error":"internal error"}`))
		return
	}
	respondJSON(w, status, body)
}

// respondError writes the envelope for any error, converting unknown
// errors into a generic 500.
func respondError(w http.ResponseWriter, err error, exposeDetails bool) int {
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		apiErr = &models.APIError{
			Status:  http.StatusInternalServerError,
			Code:    models.CodeInternal,
			Message: "An unexpected error occurred.",
		}
		if exposeDetails {
			apiErr.Details = err.Error()
		}
	}
	body := errorBody{Error: apiErr.Message}
	if exposeDetails {
		body.Details = apiErr.Details
	}
	respondValue(w, apiErr.Status, body)
	return apiErr.Status
}

// ClientKey derives the rate-limit key for a request: the first
// X-Forwarded-For entry, else X-Real-IP, else "unknown". Clients with
// no derivable address share the "unknown" bucket.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		if key := strings.TrimSpace(fwd); key != "" {
			return key
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return "unknown"
}

// MethodNotAllowed is the router-level 405 handler; the surface is
// POST/OPTIONS only.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	respondValue(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
}

// NotFound is the router-level 404 handler.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	respondValue(w, http.StatusNotFound, errorBody{Error: "Not found"})
}
