package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeDatabase         = "DATABASE_ERROR"
	CodeUpdateFailed     = "UPDATE_FAILED"
	CodeGenerationFailed = "GENERATION_FAILED"
	CodeExtractionFailed = "EXTRACTION_FAILED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

// ApiResponse is the envelope for successful responses.
type ApiResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// MessageResponse is the payload of operations that return only a confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// errorBody is the envelope for error responses.
type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(errorBody{
		Success: false,
		Code:    errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeSuccess wraps data in the success envelope.
func writeSuccess(w http.ResponseWriter, statusCode int, data any, logger *zap.Logger) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, statusCode int, code, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, statusCode, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// statusForError maps service errors to a status, code and client message.
// Storage and upstream details never reach the client except for generation
// failures, whose message is already sanitized.
func statusForError(err error) (int, string, string) {
	var validation *apperrors.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, CodeValidation, validation.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, "Resource not found"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized, "Authentication required"
	case errors.Is(err, apperrors.ErrUpdateFailed):
		return http.StatusInternalServerError, CodeUpdateFailed, "Failed to update resource"
	case errors.Is(err, apperrors.ErrGenerationFailed):
		return http.StatusBadGateway, CodeGenerationFailed, err.Error()
	case errors.Is(err, apperrors.ErrExtractionFailed):
		return http.StatusInternalServerError, CodeExtractionFailed, "Failed to extract context from image"
	case apperrors.IsDatabase(err):
		return http.StatusInternalServerError, CodeDatabase, "Database operation failed"
	default:
		return http.StatusInternalServerError, CodeInternal, "Internal server error"
	}
}

// writeServiceError logs err with op and writes the mapped error response.
// Client errors are logged at DEBUG, everything else at ERROR.
func writeServiceError(w http.ResponseWriter, op string, err error, logger *zap.Logger, fields ...zap.Field) {
	status, code, message := statusForError(err)
	fields = append(fields, zap.Error(err))
	if status < http.StatusInternalServerError {
		logger.Debug(op+" rejected", fields...)
	} else {
		logger.Error(op+" failed", fields...)
	}
	writeError(w, status, code, message, logger)
}
