package image

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/api/respond"
	"github.com/aliskhannn/compressor/internal/api/upload"
	"github.com/aliskhannn/compressor/internal/apperr"
	"github.com/aliskhannn/compressor/internal/capability"
	"github.com/aliskhannn/compressor/internal/model"
	imgproc "github.com/aliskhannn/compressor/internal/processor/image"
	imagesvc "github.com/aliskhannn/compressor/internal/service/image"
)

const (
	defaultQuality = 85
	defaultFormat  = "jpeg"
)

// service defines the image operations the handler relies on.
type service interface {
	Transform(ctx context.Context, req imagesvc.Request) (*imagesvc.Artifact, error)
	Open(a *imagesvc.Artifact) (afero.File, error)
	Release(a *imagesvc.Artifact)
	Batch(ctx context.Context, uploads []model.Upload, opts imgproc.Options, mode string) (model.BatchResult, error)
}

// Handler provides HTTP handlers for the image endpoints.
type Handler struct {
	service  service
	validate *validator.Validate
	caps     capability.Set
}

// NewHandler creates a new Handler with the given service and the tool
// capabilities probed at startup.
func NewHandler(s service, caps capability.Set) *Handler {
	return &Handler{service: s, validate: validator.New(), caps: caps}
}

// Compress handles POST /compress: re-encodes the image at the requested
// quality, optionally shrinking it to max_width/max_height. A compression
// mode other than "standard" overrides the format.
func (h *Handler) Compress(c *ginext.Context) {
	u, err := upload.Single(c, "file")
	if err != nil {
		respond.Err(c, err)
		return
	}

	p, err := h.params(c, defaultFormat)
	if err != nil {
		respond.Err(c, err)
		return
	}

	format, _ := model.ParseImageFormat(p.Format)
	h.transform(c, imagesvc.Request{
		Operation: imagesvc.OpCompress,
		Upload:    u,
		Mode:      p.Mode,
		Options: imgproc.Options{
			Format:     model.FormatForMode(p.Mode, format),
			Quality:    p.Quality,
			MaxWidth:   p.MaxWidth,
			MaxHeight:  p.MaxHeight,
			KeepAspect: true,
		},
	})
}

// Convert handles POST /convert: changes the format only.
func (h *Handler) Convert(c *ginext.Context) {
	u, err := upload.Single(c, "file")
	if err != nil {
		respond.Err(c, err)
		return
	}

	p, err := h.params(c, defaultFormat)
	if err != nil {
		respond.Err(c, err)
		return
	}

	format, _ := model.ParseImageFormat(p.Format)
	h.transform(c, imagesvc.Request{
		Operation: imagesvc.OpConvert,
		Upload:    u,
		Mode:      model.ModeStandard,
		Options:   imgproc.Options{Format: format, Quality: p.Quality, KeepAspect: true},
	})
}

// HEICConvert handles POST /heic-convert: HEIC/HEIF in, JPEG out.
func (h *Handler) HEICConvert(c *ginext.Context) {
	if !h.caps.HEICDecode() {
		zlog.Logger.Warn().Msg("heic-convert requested without a HEIC decoder")
		respond.Fail(c, http.StatusNotImplemented, apperr.Unavailable("HEIC support not available"))
		return
	}

	u, err := upload.Single(c, "file")
	if err != nil {
		respond.Err(c, err)
		return
	}

	quality, err := upload.Int(c, "quality", defaultQuality)
	if err != nil {
		respond.Err(c, err)
		return
	}

	h.transform(c, imagesvc.Request{
		Operation: imagesvc.OpHEICConvert,
		Upload:    u,
		Mode:      model.ModeStandard,
		Options:   imgproc.Options{Format: model.FormatJPEG, Quality: upload.ClampQuality(quality), KeepAspect: true},
	})
}

// Resize handles POST /resize. At least one of width and height is
// required; unlike /compress the image may grow.
func (h *Handler) Resize(c *ginext.Context) {
	u, err := upload.Single(c, "file")
	if err != nil {
		respond.Err(c, err)
		return
	}

	def := defaultFormat
	if f, ok := model.ParseImageFormat(model.Extension(u.Filename)); ok {
		def = string(f)
	}

	p, err := h.params(c, def)
	if err != nil {
		respond.Err(c, err)
		return
	}

	width, err := upload.Dimension(c, "width")
	if err != nil {
		respond.Err(c, err)
		return
	}
	height, err := upload.Dimension(c, "height")
	if err != nil {
		respond.Err(c, err)
		return
	}
	if width == 0 && height == 0 {
		respond.Err(c, apperr.Validation("Width or height is required"))
		return
	}

	keepAspect, err := upload.Bool(c, "keep_aspect", true)
	if err != nil {
		respond.Err(c, err)
		return
	}

	format, _ := model.ParseImageFormat(p.Format)
	h.transform(c, imagesvc.Request{
		Operation: imagesvc.OpResize,
		Upload:    u,
		Mode:      model.ModeStandard,
		Options: imgproc.Options{
			Format:     format,
			Quality:    p.Quality,
			MaxWidth:   width,
			MaxHeight:  height,
			KeepAspect: keepAspect,
			Upscale:    true,
		},
	})
}

// BatchCompress handles POST /batch-compress and answers with a JSON
// summary. Successful outputs can be fetched as a ZIP archive.
func (h *Handler) BatchCompress(c *ginext.Context) {
	uploads, err := upload.Multiple(c, upload.BatchFields...)
	if err != nil {
		respond.Err(c, err)
		return
	}

	p, err := h.params(c, defaultFormat)
	if err != nil {
		respond.Err(c, err)
		return
	}

	format, _ := model.ParseImageFormat(p.Format)
	opts := imgproc.Options{
		Format:     model.FormatForMode(p.Mode, format),
		Quality:    p.Quality,
		MaxWidth:   p.MaxWidth,
		MaxHeight:  p.MaxHeight,
		KeepAspect: true,
	}

	res, err := h.service.Batch(c.Request.Context(), uploads, opts, p.Mode)
	if err != nil {
		respond.Err(c, err)
		return
	}

	zlog.Logger.Info().
		Str("batch_id", res.BatchID).
		Int("files", res.TotalFiles).
		Int("successful", res.Successful).
		Msg("image batch finished")

	respond.OK(c, res)
}

// params reads quality, format, mode and the max dimensions.
func (h *Handler) params(c *ginext.Context, defFormat string) (params, error) {
	quality, err := upload.Int(c, "quality", defaultQuality)
	if err != nil {
		return params{}, err
	}

	p := params{
		Quality: upload.ClampQuality(quality),
		Format:  upload.String(c, "format", defFormat),
		Mode:    upload.String(c, "mode", model.ModeStandard),
	}

	if p.MaxWidth, err = upload.Dimension(c, "max_width"); err != nil {
		return params{}, err
	}
	if p.MaxHeight, err = upload.Dimension(c, "max_height"); err != nil {
		return params{}, err
	}

	if err := check(h.validate, p); err != nil {
		return params{}, err
	}

	return p, nil
}

// transform runs req and streams the result with its metadata headers.
// Every temp file of the job is gone when transform returns.
func (h *Handler) transform(c *ginext.Context, req imagesvc.Request) {
	art, err := h.service.Transform(c.Request.Context(), req)
	if err != nil {
		respond.Err(c, err)
		return
	}
	defer h.service.Release(art)

	f, err := h.service.Open(art)
	if err != nil {
		respond.Err(c, fmt.Errorf("open result: %w", err))
		return
	}
	defer f.Close()

	res := art.Result
	respond.Attachment(c, res.DownloadName, res.OutputFormat.ContentType(), res.CompressedSize, f, headers(res))
}

// headers returns the X-* metadata headers describing res.
func headers(res model.ImageResult) map[string]string {
	return map[string]string{
		"X-Original-Size":       strconv.FormatInt(res.OriginalSize, 10),
		"X-Compressed-Size":     strconv.FormatInt(res.CompressedSize, 10),
		"X-Compression-Ratio":   strconv.FormatFloat(res.Ratio(), 'f', 1, 64),
		"X-Size-Reduction":      strconv.FormatInt(res.SizeReduction(), 10),
		"X-Original-Format":     res.OriginalFormat,
		"X-Output-Format":       string(res.OutputFormat),
		"X-Original-Dimensions": res.OriginalDimensions.String(),
		"X-Final-Dimensions":    res.FinalDimensions.String(),
		"X-Compression-Mode":    res.Mode,
		"X-Quality":             strconv.Itoa(res.Quality),
	}
}
