package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/models"
)

const maxRequestBody = 1 << 20

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteServiceError maps the error taxonomy onto HTTP status codes.
// Unclassified errors are logged and reported as 500 without detail.
func WriteServiceError(w http.ResponseWriter, logger arbor.ILogger, err error) {
	var validation *models.ValidationError
	switch {
	case errors.As(err, &validation):
		WriteJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error",
			"error":  validation.Error(),
			"field":  validation.Field,
		})
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrTerminal), errors.Is(err, models.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, err.Error())
	default:
		logger.Error().Err(err).Msg("Request failed")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// DecodeJSON reads a bounded JSON body into dst. Unknown fields are rejected.
// Returns false (and writes a 400) when the body is malformed.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// PathID returns the path segment after prefix, e.g. "/api/jobs/" + "{id}/cancel" -> "{id}".
func PathID(r *http.Request, prefix string) string {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// GetPaginationParams extracts 1-based page and page_size from the query string.
// Missing or malformed values are returned as 0 for the service to default.
func GetPaginationParams(r *http.Request) (page, pageSize int) {
	query := r.URL.Query()
	if p, err := strconv.Atoi(query.Get("page")); err == nil {
		page = p
	}
	if ps, err := strconv.Atoi(query.Get("page_size")); err == nil {
		pageSize = ps
	}
	return page, pageSize
}
