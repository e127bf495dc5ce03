package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/afero"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/api/respond"
	"github.com/aliskhannn/compressor/internal/api/upload"
	"github.com/aliskhannn/compressor/internal/model"
	"github.com/aliskhannn/compressor/internal/service/download"
)

// service defines the PDF operations the handler relies on.
type service interface {
	Compress(ctx context.Context, u model.Upload, tier string) (model.PDFResult, error)
	Batch(ctx context.Context, uploads []model.Upload, tier string) (model.BatchResult, error)
}

// downloads defines the lookups for kept outputs.
type downloads interface {
	Single(id string) (download.Entry, error)
	Batch(id string) ([]download.Entry, error)
	Open(e download.Entry) (afero.File, error)
	WriteZip(w io.Writer, entries []download.Entry) error
}

// Handler provides HTTP handlers for PDF compression and for downloading
// kept outputs.
type Handler struct {
	service   service
	downloads downloads
}

// NewHandler creates a new Handler.
func NewHandler(s service, d downloads) *Handler {
	return &Handler{service: s, downloads: d}
}

// Compress handles POST /pdf/compress and answers with a JSON summary
// holding the download id of the output.
func (h *Handler) Compress(c *ginext.Context) {
	u, err := upload.Single(c, "file")
	if err != nil {
		respond.Err(c, err)
		return
	}

	res, err := h.service.Compress(c.Request.Context(), u, tier(c))
	if err != nil {
		respond.Err(c, err)
		return
	}

	respond.OK(c, res)
}

// CompressBatch handles POST /compress-batch.
func (h *Handler) CompressBatch(c *ginext.Context) {
	uploads, err := upload.Multiple(c, upload.BatchFields...)
	if err != nil {
		respond.Err(c, err)
		return
	}

	res, err := h.service.Batch(c.Request.Context(), uploads, tier(c))
	if err != nil {
		respond.Err(c, err)
		return
	}

	zlog.Logger.Info().
		Str("batch_id", res.BatchID).
		Int("files", res.TotalFiles).
		Int("successful", res.Successful).
		Msg("pdf batch finished")

	respond.OK(c, res)
}

// Download handles GET /download/:id.
func (h *Handler) Download(c *ginext.Context) {
	e, err := h.downloads.Single(c.Param("id"))
	if err != nil {
		respond.Err(c, err)
		return
	}

	f, err := h.downloads.Open(e)
	if err != nil {
		respond.Err(c, err)
		return
	}
	defer f.Close()

	respond.Attachment(c, e.Name, contentType(e.Name), e.Size, f, nil)
}

// DownloadBatch handles GET /download-batch/:id and streams a ZIP of every
// output kept for the batch.
func (h *Handler) DownloadBatch(c *ginext.Context) {
	id := c.Param("id")

	entries, err := h.downloads.Batch(id)
	if err != nil {
		respond.Err(c, err)
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "compressed_batch_"+id[:8]+".zip"))
	c.Status(http.StatusOK)

	// Headers are gone by now, so a failure can only be logged.
	if err := h.downloads.WriteZip(c.Writer, entries); err != nil {
		zlog.Logger.Err(err).Str("batch_id", id).Msg("failed to stream batch archive")
	}
}

// tier reads the PDF quality tier, default "screen".
func tier(c *ginext.Context) string {
	return strings.TrimPrefix(upload.String(c, "quality", model.DefaultPDFProfile), "/")
}

func contentType(name string) string {
	if model.IsPDFUpload(name) {
		return "application/pdf"
	}
	if f, ok := model.ParseImageFormat(model.Extension(name)); ok {
		return f.ContentType()
	}

	return "application/octet-stream"
}
