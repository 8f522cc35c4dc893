package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"boombot/pkg/boombot"
)

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	// Hint is the text a chat user would see for the same failure.
	Hint      string `json:"hint,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorMessageSetter interface {
	SetErrorMessage(string)
}

// writeErrorResponse writes an error response. Structured errors choose their
// own HTTP status; fallbackStatus applies to everything else.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, fallbackStatus int, err error) {
	status := fallbackStatus
	response := ErrorResponse{
		Message:   err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	}

	var e *boombot.Error
	if errors.As(err, &e) {
		status = mapErrorCodeToHTTPStatus(e.Code)
		response.Message = e.Detail()
		response.ErrorCode = string(e.Code)
		response.Hint = boombot.ErrorMessage(e)
	}
	response.Code = status

	if setter, ok := w.(errorMessageSetter); ok {
		setter.SetErrorMessage(response.Message)
	}
	writeJSON(w, status, response)
}

// writeBadRequest reports malformed client input.
func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusBadRequest, boombot.NewError(boombot.ErrCodeInvalidInput, message))
}

// mapErrorCodeToHTTPStatus maps error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code boombot.ErrorCode) int {
	switch code {
	case boombot.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case boombot.ErrCodeInvalidSector:
		return http.StatusUnprocessableEntity
	case boombot.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case boombot.ErrCodeUpstream, boombot.ErrCodeEmptyResponse:
		return http.StatusBadGateway
	case boombot.ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
