package respond

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/apperr"
)

// Error represents the body of every failed request.
type Error struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// JSON sends a JSON response with the specified HTTP status code and data.
func JSON(c *ginext.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends data as a 200 OK JSON response.
func OK(c *ginext.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

// Fail sends an error JSON response with the specified HTTP status code.
func Fail(c *ginext.Context, status int, err error) {
	c.AbortWithStatusJSON(status, Error{Success: false, Error: apperr.Message(err)})
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	var tooBig *http.MaxBytesError

	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrPayloadTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperr.ErrToolUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Err classifies err, logs it and sends the matching error response.
// Unclassified internal errors are reported with a generic message.
func Err(c *ginext.Context, err error) {
	status := Status(err)

	if status >= http.StatusInternalServerError {
		zlog.Logger.Err(err).Str("path", c.FullPath()).Int("status", status).Msg("request failed")
	} else {
		zlog.Logger.Warn().Err(err).Str("path", c.FullPath()).Int("status", status).Msg("request rejected")
	}

	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		err = apperr.TooLarge("Request too large. Max: %d bytes", tooBig.Limit)
	case status == http.StatusInternalServerError && !errors.Is(err, apperr.ErrProcessing):
		err = errors.New("internal server error")
	}

	Fail(c, status, err)
}

// Attachment streams size bytes from r as a downloadable file.
// headers are added to the response before the body is written.
func Attachment(c *ginext.Context, name, contentType string, size int64, r io.Reader, headers map[string]string) {
	extra := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		extra[k] = v
	}
	extra["Content-Disposition"] = fmt.Sprintf("attachment; filename=%q", name)

	c.DataFromReader(http.StatusOK, size, contentType, r, extra)
}
