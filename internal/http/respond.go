// Package http exposes the expense tracker as a JSON API.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to HTTP outcomes.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"outgo/internal/core"
)

// ResponseBuilder provides a fluent API for writing JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
}

func Respond() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(key, value string) *ResponseBuilder {
	b.headers[key] = value
	return b
}

// JSON writes the response with the accumulated status and headers. A nil
// body writes no payload.
func (b *ResponseBuilder) JSON(w http.ResponseWriter, body any) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response body", "error", err)
	}
}

// errorBody is the uniform error envelope. Details is present only for
// validation failures.
type errorBody struct {
	Error   string            `json:"error"`
	Details []core.FieldError `json:"details,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, message string, details []core.FieldError) {
	Respond().Status(status).JSON(w, errorBody{Error: message, Details: details})
}

// writeDomainError maps a service error onto the wire. Storage failures are
// logged with the cause but reported as an opaque 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErrs core.FieldErrors
	if errors.As(err, &fieldErrs) {
		writeJSONError(w, http.StatusUnprocessableEntity, "Validation failed", fieldErrs)
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Not found", nil)
	case errors.Is(err, core.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, "Invalid credentials", nil)
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// writeBadRequest reports malformed request shapes: invalid JSON, wrong
// types, unparseable path ids.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusBadRequest, message, nil)
}
