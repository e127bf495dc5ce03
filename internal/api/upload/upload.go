// Package upload pulls files and typed parameters out of multipart requests.
package upload

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/compressor/internal/apperr"
	"github.com/aliskhannn/compressor/internal/model"
)

// maxMemory is the part of a multipart body kept in memory; the rest
// spills to temp files managed by net/http.
const maxMemory = 32 << 20

// BatchFields are the form fields accepted for multi-file uploads.
var BatchFields = []string{"files", "files[]", "images"}

func parse(c *ginext.Context) error {
	if c.Request.MultipartForm != nil {
		return nil
	}

	if err := c.Request.ParseMultipartForm(maxMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return apperr.Validation("No file provided")
		}
		return apperr.Validation("Invalid multipart form: %v", err)
	}

	return nil
}

// Single returns the one file sent under field.
func Single(c *ginext.Context, field string) (model.Upload, error) {
	if err := parse(c); err != nil {
		return model.Upload{}, err
	}

	headers := c.Request.MultipartForm.File[field]
	if len(headers) == 0 {
		return model.Upload{}, apperr.Validation("No file provided")
	}
	if headers[0].Filename == "" {
		return model.Upload{}, apperr.Validation("No file selected")
	}

	return model.UploadFromHeader(headers[0]), nil
}

// Multiple returns every file sent under the first of fields that has any.
func Multiple(c *ginext.Context, fields ...string) ([]model.Upload, error) {
	if err := parse(c); err != nil {
		return nil, err
	}

	for _, field := range fields {
		headers := c.Request.MultipartForm.File[field]
		if len(headers) == 0 {
			continue
		}

		uploads := make([]model.Upload, 0, len(headers))
		for _, h := range headers {
			uploads = append(uploads, model.UploadFromHeader(h))
		}
		return uploads, nil
	}

	return nil, apperr.Validation("No files provided")
}

// Int reads an optional integer form value. def is returned when the
// field is absent or blank.
func Int(c *ginext.Context, field string, def int) (int, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("Invalid %s: %q is not an integer", field, raw)
	}

	return n, nil
}

// Dimension reads an optional positive integer. 0 means not set.
func Dimension(c *ginext.Context, field string) (int, error) {
	n, err := Int(c, field, 0)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(c.PostForm(field)) != "" && n <= 0 {
		return 0, apperr.Validation("Invalid %s: must be a positive integer", field)
	}

	return n, nil
}

// Bool reads an optional boolean form value.
func Bool(c *ginext.Context, field string, def bool) (bool, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.Validation("Invalid %s: %q is not a boolean", field, raw)
	}

	return b, nil
}

// String reads an optional form value, lower-cased. def is returned when
// the field is absent or blank.
func String(c *ginext.Context, field, def string) string {
	raw := strings.ToLower(strings.TrimSpace(c.PostForm(field)))
	if raw == "" {
		return def
	}

	return raw
}

// ClampQuality bounds q to [10, 100].
func ClampQuality(q int) int {
	return min(max(q, 10), 100)
}
