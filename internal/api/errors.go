// Package api provides the HTTP handlers for ranking and scoring, including
// standardized error handling and JSON/CBOR content negotiation.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/oppscore/internal/middleware"
)

// Error codes returned in the "code" field of error bodies. Each code has one
// HTTP status; see Status.
const (
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidConfig    = "invalid_config"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeTooLarge         = "request_too_large"
	ErrCodeUnsupportedMedia = "unsupported_media_type"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
)

var codeStatus = map[string]int{
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeInvalidConfig:    http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrCodeTooLarge:         http.StatusRequestEntityTooLarge,
	ErrCodeUnsupportedMedia: http.StatusUnsupportedMediaType,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
	ErrCodeInternal:         http.StatusInternalServerError,
}

// Status returns the HTTP status sent with code. Unknown codes are 500.
func Status(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the body of every error reply:
// {"error": {"code": "...", "message": "..."}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a message for people.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError replies with the JSON error envelope and the status for code,
// and hands code to the logging middleware so the request line records it.
// Error bodies are JSON even when the caller negotiated CBOR.
func WriteError(w http.ResponseWriter, ctx context.Context, code, message string) {
	middleware.UpdateResponseContext(w, middleware.SetErrorCode(ctx, code))

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(Status(code))
	body := ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "code", code, "error", err)
	}
}

func writeErr(w http.ResponseWriter, r *http.Request, code, message string) {
	WriteError(w, r.Context(), code, message)
}
