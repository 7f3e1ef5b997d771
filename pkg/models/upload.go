package models

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
)

// MaxImageBytes is the largest accepted reference or extraction upload.
const MaxImageBytes = 10 << 20

// AllowedImageTypes are the declared MIME types accepted for uploads.
var AllowedImageTypes = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/gif",
	"image/heic",
	"image/heif",
}

// UploadedImage is an image received in a multipart form.
type UploadedImage struct {
	Data     []byte
	MimeType string
	Filename string
}

// Validate checks the declared type and the size.
func (u *UploadedImage) Validate() error {
	return ValidateImageUpload(u.MimeType, int64(len(u.Data)))
}

// BaseImageType returns the lower-cased media type without parameters, so
// "image/PNG; foo=bar" becomes "image/png".
func BaseImageType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// Base64DecodedSize is the exact byte length of standard, padded base64 data.
func Base64DecodedSize(encoded string) int64 {
	n := int64(len(encoded)) / 4 * 3
	switch {
	case strings.HasSuffix(encoded, "=="):
		n -= 2
	case strings.HasSuffix(encoded, "="):
		n--
	}
	if n < 0 {
		return 0
	}
	return n
}

// ValidateImageUpload checks a declared MIME type and byte size against the
// upload rules. Parameters such as "; charset" are ignored.
func ValidateImageUpload(mimeType string, size int64) error {
	base := BaseImageType(mimeType)

	allowed := false
	for _, t := range AllowedImageTypes {
		if base == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperrors.NewValidationError("image",
			fmt.Sprintf("unsupported type %q; allowed: %s", mimeType, strings.Join(AllowedImageTypes, ", ")))
	}
	if size == 0 {
		return apperrors.NewValidationError("image", "file is empty")
	}
	if size > MaxImageBytes {
		return apperrors.NewValidationError("image", "file exceeds the 10 MiB limit")
	}
	return nil
}
