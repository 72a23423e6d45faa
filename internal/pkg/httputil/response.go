package httputil

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ignite/ga4-loader/internal/report"
)

// ErrorResponse is the standard error envelope. Every body carries a status
// discriminator so callers can branch without inspecting HTTP codes.
type ErrorResponse struct {
	Status  report.Status `json:"status"`
	Message string        `json:"message"`
	Kind    report.Kind   `json:"error_kind,omitempty"`
	Details any           `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[httputil] JSON encode error: %v", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes a JSON error envelope with the given code.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Status: report.StatusError, Message: message})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// InternalError writes a 500 error. Logs the real error but returns a
// generic message to the client (never leak internals).
func InternalError(w http.ResponseWriter, err error) {
	log.Printf("[httputil] internal error: %v", err)
	Error(w, http.StatusInternalServerError, "internal server error")
}

// KindStatus maps a pipeline error classification to its HTTP code.
func KindStatus(kind report.Kind) int {
	switch kind {
	case report.KindValidation:
		return http.StatusBadRequest
	case report.KindNotFound:
		return http.StatusNotFound
	case report.KindAuth:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ReportError writes a classified pipeline error as a JSON envelope with the
// mapped HTTP code. Unclassified errors fall back to 500.
func ReportError(w http.ResponseWriter, err error) {
	var re *report.Error
	if !errors.As(err, &re) {
		InternalError(w, err)
		return
	}
	JSON(w, KindStatus(re.Kind), ErrorResponse{
		Status:  report.StatusError,
		Message: re.Error(),
		Kind:    re.Kind,
	})
}

// Decode reads JSON from the request body into dst.
// Returns false and writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
