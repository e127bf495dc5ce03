package system

import (
	"context"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/api/respond"
	"github.com/aliskhannn/compressor/internal/capability"
	"github.com/aliskhannn/compressor/internal/model"
	"github.com/aliskhannn/compressor/internal/storage/file"
)

const (
	serviceName = "compressor"
	Version     = "2.0"
)

// checker reports on the PDF compressor's external tool.
type checker interface {
	Available() bool
	Check(ctx context.Context) (string, error)
}

// fileStorage reports on the temp roots.
type fileStorage interface {
	Usage(category string) (files int, bytes int64, err error)
	Writable() bool
}

// Limits are the configured values the info endpoints publish.
type Limits struct {
	MaxImageBytes int64
	MaxPDFBytes   int64
	Retention     time.Duration
}

// Handler serves the service description and health endpoints.
type Handler struct {
	caps    capability.Set
	pdf     checker
	storage fileStorage
	limits  Limits
	now     func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(caps capability.Set, pdf checker, s fileStorage, limits Limits) *Handler {
	return &Handler{caps: caps, pdf: pdf, storage: s, limits: limits, now: time.Now}
}

// Index handles GET /.
func (h *Handler) Index(c *ginext.Context) {
	respond.OK(c, gin.H{
		"service":           serviceName,
		"version":           Version,
		"status":            "running",
		"heic_support":      h.caps.HEICDecode(),
		"pdf_support":       h.pdf.Available(),
		"max_file_size":     h.limits.MaxImageBytes,
		"supported_formats": model.OutputFormats,
		"endpoints": gin.H{
			"compress":       "POST /compress",
			"convert":        "POST /convert",
			"heic_convert":   "POST /heic-convert",
			"resize":         "POST /resize",
			"batch_compress": "POST /batch-compress",
			"pdf_compress":   "POST /pdf/compress",
			"compress_batch": "POST /compress-batch",
			"download":       "GET /download/:id",
			"download_batch": "GET /download-batch/:id",
			"profiles":       "GET /profiles",
			"formats":        "GET /formats",
			"health":         "GET /health",
			"stats":          "GET /stats",
		},
	})
}

// Health handles GET /health. Ghostscript is checked again on every call;
// without it the service reports 503.
func (h *Handler) Health(c *ginext.Context) {
	version, err := h.pdf.Check(c.Request.Context())
	gsAvailable := err == nil
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("ghostscript health check failed")
	}

	writable := h.storage.Writable()

	status := "healthy"
	if !gsAvailable || !writable {
		status = "unhealthy"
	}

	code := http.StatusOK
	if !gsAvailable {
		code = http.StatusServiceUnavailable
	}

	respond.JSON(c, code, gin.H{
		"status":                  status,
		"service":                 serviceName,
		"version":                 Version,
		"ghostscript_available":   gsAvailable,
		"ghostscript_version":     version,
		"heic_support":            h.caps.HEICDecode(),
		"heic_encode":             h.caps.HEICEncode(),
		"temp_directory_writable": writable,
		"timestamp":               h.now().UTC().Format(time.RFC3339),
	})
}

// Profiles handles GET /profiles.
func (h *Handler) Profiles(c *ginext.Context) {
	profiles := make(map[string]model.PDFProfile)
	for _, p := range model.PDFProfiles() {
		profiles[p.Key] = p
	}

	respond.OK(c, gin.H{
		"success":        true,
		"profiles":       profiles,
		"default":        model.DefaultPDFProfile,
		"recommendation": "Use screen for maximum compression",
	})
}

// Formats handles GET /formats.
func (h *Handler) Formats(c *ginext.Context) {
	respond.OK(c, gin.H{
		"supported_formats":       model.OutputFormats,
		"max_file_size":           h.limits.MaxImageBytes,
		"max_file_size_formatted": model.FormatSize(h.limits.MaxImageBytes),
		"compression_modes":       model.CompressionModes,
		"heic_support":            h.caps.HEICDecode(),
	})
}

// Stats handles GET /stats.
func (h *Handler) Stats(c *ginext.Context) {
	files := gin.H{}
	usage := gin.H{}
	var total int64

	for _, cat := range file.Categories {
		n, size, err := h.storage.Usage(cat)
		if err != nil {
			respond.Err(c, err)
			return
		}
		files[cat] = n
		usage[cat] = size
		total += size
	}
	usage["total"] = total
	usage["total_formatted"] = humanize.IBytes(uint64(total))

	respond.OK(c, gin.H{
		"temp_files":              files,
		"disk_usage":              usage,
		"max_file_size":           h.limits.MaxPDFBytes,
		"max_file_size_formatted": model.FormatSize(h.limits.MaxPDFBytes),
		"retention_time":          h.limits.Retention.String(),
		"retention_seconds":       int(h.limits.Retention.Seconds()),
	})
}
