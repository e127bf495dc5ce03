package middleware

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// BodyLimit caps the request body at n bytes. Reads past the cap fail
// with *http.MaxBytesError.
func BodyLimit(n int64) func(c *ginext.Context) {
	return func(c *ginext.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
