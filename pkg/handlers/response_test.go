package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "validation",
			err:         apperrors.NewValidationError("name", "is required"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    CodeValidation,
			wantMessage: "name: is required",
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("load context: %w", apperrors.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
		},
		{
			name:       "unauthorized",
			err:        apperrors.ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantCode:   CodeUnauthorized,
		},
		{
			name:       "update failed",
			err:        fmt.Errorf("%w: %w", apperrors.ErrUpdateFailed, errors.New("conn reset")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeUpdateFailed,
		},
		{
			name:        "generation failed keeps message",
			err:         fmt.Errorf("%w: %s", apperrors.ErrGenerationFailed, "provider returned no image"),
			wantStatus:  http.StatusBadGateway,
			wantCode:    CodeGenerationFailed,
			wantMessage: "image generation failed: provider returned no image",
		},
		{
			name:       "extraction failed",
			err:        fmt.Errorf("%w: %w", apperrors.ErrExtractionFailed, errors.New("bad json")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeExtractionFailed,
		},
		{
			name:        "database",
			err:         apperrors.WrapDatabase("insert image", errors.New("password=hunter2 rejected")),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    CodeDatabase,
			wantMessage: "Database operation failed",
		},
		{
			name:        "unknown",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    CodeInternal,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := statusForError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, message)
			}
		})
	}
}

func TestWriteServiceError_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, "Get context", apperrors.ErrNotFound, zap.NewNop())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, CodeNotFound, body["code"])
	assert.Equal(t, "Resource not found", body["message"])
}

func TestWriteSuccess_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(rec, http.StatusCreated, MessageResponse{Message: "done"}, zap.NewNop())

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"message": "done"}, body["data"])
}
