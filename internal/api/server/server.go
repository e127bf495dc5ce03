package server

import (
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"
)

// Timeouts of the HTTP server. Write is long enough for a PDF job that
// runs up to the Ghostscript timeout.
type Timeouts struct {
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
	ReadHeader time.Duration
}

func New(addr string, router *ginext.Engine, t Timeouts) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
		ReadHeaderTimeout: t.ReadHeader,
	}
}
