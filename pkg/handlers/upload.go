package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
)

// multipartOverhead is allowed on top of the image limit for boundaries and
// the text fields.
const multipartOverhead = 1 << 20

// multipartMemory is how much of a form is buffered in memory before
// spilling to temporary files.
const multipartMemory = 12 << 20

// parseMultipart bounds and parses a multipart body. Any failure is a
// validation error.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.NewValidationError("image", "file exceeds the 10 MiB limit")
		}
		return apperrors.NewValidationError("", "malformed multipart body")
	}
	return nil
}

// formImage reads an optional image part. It returns nil, nil when the
// field is absent.
func formImage(r *http.Request, field string) (*models.UploadedImage, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewValidationError(field, "could not read upload")
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if err := models.ValidateImageUpload(mimeType, header.Size); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(file, models.MaxImageBytes+1))
	if err != nil {
		return nil, apperrors.NewValidationError(field, "could not read upload")
	}

	img := &models.UploadedImage{Data: data, MimeType: mimeType, Filename: header.Filename}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

// formBool accepts the usual spellings of a checkbox value.
func formBool(r *http.Request, field string) (bool, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return false, nil
	}
	if raw == "on" {
		return true, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidationError(field, fmt.Sprintf("must be a boolean, got %q", raw))
	}
	return b, nil
}
