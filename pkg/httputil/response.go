package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
	"github.com/utafrali/EcommerceGo/catalog/pkg/logger"
	"github.com/utafrali/EcommerceGo/catalog/pkg/validator"
)

// Response is the JSON envelope of every API response.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error member of Response.
type ErrorResponse struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	Fields    map[string]string  `json:"fields,omitempty"`
	Details   *apperrors.Details `json:"details,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
}

// WriteJSON writes v with the given status. Encoding errors are ignored since
// the header has already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and error body. Application errors keep
// their code, message and details; server errors are logged and masked.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	ctx := r.Context()
	l := logger.FromContext(ctx)
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	body := &ErrorResponse{RequestID: logger.CorrelationIDFromContext(ctx)}
	status := apperrors.HTTPStatus(err)

	var appErr *apperrors.AppError
	var valErr *validator.ValidationError
	switch {
	case errors.As(err, &appErr):
		body.Code, body.Message, body.Details = appErr.Code, appErr.Message, appErr.Details
		status = appErr.Status
	case errors.As(err, &valErr):
		body.Code, body.Message, body.Fields = "VALIDATION_ERROR", "request validation failed", valErr.Fields()
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		body.Code, body.Message = "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrConflict):
		body.Code, body.Message = "CONFLICT", "conflict"
	case errors.Is(err, apperrors.ErrInvalidInput):
		body.Code, body.Message = "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrUnprocessable):
		body.Code, body.Message = "UNPROCESSABLE_ENTITY", err.Error()
	default:
		body.Code, body.Message = "INTERNAL_ERROR", "an internal error occurred"
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(ctx, "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if appErr == nil || appErr.Message == "" {
			body.Message = "an internal error occurred"
		}
	}

	WriteJSON(w, status, Response{Error: body})
}

// ParseUUID validates an id path parameter. On failure it writes a 400
// response and returns false.
func ParseUUID(w http.ResponseWriter, param string) (string, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:    "INVALID_PARAMETER",
			Message: "invalid UUID: " + param,
		}})
		return "", false
	}
	return id.String(), true
}
