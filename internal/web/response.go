// Package web holds the HTTP plumbing shared by the service handlers:
// response writers, error mapping and middleware.
package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"libradesk/internal/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Text writes a plain-text message.
func Text(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return library.NewProblem(library.ErrInvalidInput, "invalid request body")
	}
	return nil
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrEntityNotFound),
		errors.Is(err, library.ErrBookNotAvailable),
		errors.Is(err, library.ErrInvalidInput),
		errors.Is(err, library.ErrDuplicateKey):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrInUse):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text a caller may see for err. Unexpected errors get a
// generic message so no internal detail leaks.
func Message(err error) string {
	if !library.IsDomainError(err) {
		return "internal server error"
	}
	var p *library.Problem
	if errors.As(err, &p) {
		return p.Message
	}
	return err.Error()
}

// Error writes err as a plain-text response with the given status, logging it
// when it is a server-side failure.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		LogFailure(r, logger, err)
	}
	Text(w, status, Message(err))
}

// LogFailure records a request that failed on the server side.
func LogFailure(r *http.Request, logger *slog.Logger, err error) {
	logger.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}

// Fail writes err using StatusFor.
func Fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	Error(w, r, logger, StatusFor(err), err)
}
