package image

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/apperr"
	"github.com/aliskhannn/compressor/internal/capability"
	"github.com/aliskhannn/compressor/internal/executil"
	"github.com/aliskhannn/compressor/internal/model"
)

const bytesPerPixel = 4

// Options controls a single image transform.
type Options struct {
	Format     model.ImageFormat
	Quality    int
	MaxWidth   int
	MaxHeight  int
	KeepAspect bool
	Upscale    bool
}

// Output describes what Process produced.
type Output struct {
	OriginalFormat     string // decoder name, upper-case
	Format             model.ImageFormat
	OriginalDimensions model.Dimensions
	FinalDimensions    model.Dimensions
}

// Processor decodes, resizes and re-encodes images. Codecs that live
// outside the process (libheif) are reached through the runner and only
// when the capability set says they exist.
type Processor struct {
	fs              afero.Fs
	runner          executil.Runner
	caps            capability.Set
	maxDecodedBytes int64
}

// New creates a Processor. maxDecodedBytes bounds the RGBA buffer of a
// decoded image; 0 disables the check.
func New(fs afero.Fs, r executil.Runner, caps capability.Set, maxDecodedBytes int64) *Processor {
	return &Processor{fs: fs, runner: r, caps: caps, maxDecodedBytes: maxDecodedBytes}
}

// Process reads srcPath, applies opts and writes the result to dstPath.
func (p *Processor) Process(ctx context.Context, srcPath, dstPath string, opts Options) (Output, error) {
	if _, ok := model.ParseImageFormat(string(opts.Format)); !ok {
		return Output{}, apperr.Validation("Target format not supported: %s", opts.Format)
	}

	img, origFormat, err := p.decode(ctx, srcPath, dstPath)
	if err != nil {
		return Output{}, err
	}

	out := Output{
		OriginalFormat:     origFormat,
		OriginalDimensions: dims(img),
	}

	w, h := TargetSize(img.Bounds().Dx(), img.Bounds().Dy(), opts.MaxWidth, opts.MaxHeight, opts.KeepAspect, opts.Upscale)
	if w != img.Bounds().Dx() || h != img.Bounds().Dy() {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	out.FinalDimensions = dims(img)

	if err := ctx.Err(); err != nil {
		return Output{}, fmt.Errorf("process image: %w", err)
	}

	format, err := p.encode(ctx, img, dstPath, opts.Format, opts.Quality)
	if err != nil {
		return Output{}, err
	}
	out.Format = format

	return out, nil
}

// decode loads srcPath into memory after checking its declared size.
func (p *Processor) decode(ctx context.Context, srcPath, dstPath string) (image.Image, string, error) {
	f, err := p.fs.Open(srcPath)
	if err != nil {
		return nil, "", fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, "", apperr.Processing("Invalid image file: %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("rewind source: %w", err)
	}

	if mtype.Is("image/heic") || mtype.Is("image/heif") || mtype.Is("image/heic-sequence") || mtype.Is("image/heif-sequence") {
		return p.decodeHEIC(ctx, srcPath, dstPath)
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, "", apperr.Processing("Invalid image file: %v", err)
	}
	if err := p.checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("rewind source: %w", err)
	}

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", apperr.Processing("Image processing failed: %v", err)
	}

	return img, strings.ToUpper(format), nil
}

// decodeHEIC converts the HEIC source to a PNG next to dstPath with
// heif-dec and decodes that.
func (p *Processor) decodeHEIC(ctx context.Context, srcPath, dstPath string) (image.Image, string, error) {
	if !p.caps.HEICDecode() {
		return nil, "", apperr.Unavailable("HEIC support not available")
	}

	tmp := dstPath + ".decoded.png"
	defer p.removeQuietly(tmp)

	res, err := p.runner.Run(ctx, executil.Command{
		Name: p.caps.HEICDecoder,
		Args: []string{srcPath, tmp},
	})
	if err != nil {
		return nil, "", apperr.Processing("HEIC decode failed: %v", err)
	}
	if res.ExitCode != 0 {
		return nil, "", apperr.Processing("HEIC decode failed: %s", strings.TrimSpace(res.Stderr))
	}

	f, err := p.fs.Open(tmp)
	if err != nil {
		return nil, "", apperr.Processing("HEIC decode produced no output")
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return nil, "", apperr.Processing("Invalid image file: %v", err)
	}
	if err := p.checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("rewind decoded: %w", err)
	}

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, "", apperr.Processing("Image processing failed: %v", err)
	}

	return img, "HEIC", nil
}

func (p *Processor) checkPixels(w, h int) error {
	if p.maxDecodedBytes <= 0 {
		return nil
	}
	if int64(w)*int64(h)*bytesPerPixel > p.maxDecodedBytes {
		return apperr.TooLarge("File too large for processing: decoded image exceeds %d bytes", p.maxDecodedBytes)
	}

	return nil
}

// encode writes img to dstPath and returns the format actually written.
func (p *Processor) encode(ctx context.Context, img image.Image, dstPath string, format model.ImageFormat, quality int) (model.ImageFormat, error) {
	if !format.SupportsAlpha() && !isOpaque(img) {
		img = flatten(img)
	}

	if format == model.FormatHEIC {
		if p.caps.HEICEncode() {
			return format, p.encodeHEIC(ctx, img, dstPath, quality)
		}
		zlog.Logger.Warn().Msg("heif-enc not available, writing jpeg instead of heic")
		format = model.FormatJPEG
	}

	dst, err := p.fs.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	defer dst.Close()

	if err := writeImage(dst, img, format, quality); err != nil {
		return "", apperr.Processing("Image processing failed: %v", err)
	}

	return format, nil
}

func writeImage(w io.Writer, img image.Image, format model.ImageFormat, quality int) error {
	switch format {
	case model.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case model.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case model.FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case model.FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case model.FormatWEBP:
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// encodeHEIC stages a lossless PNG and hands it to heif-enc.
func (p *Processor) encodeHEIC(ctx context.Context, img image.Image, dstPath string, quality int) error {
	staged := dstPath + ".staged.png"
	defer p.removeQuietly(staged)

	f, err := p.fs.Create(staged)
	if err != nil {
		return fmt.Errorf("create staged png: %w", err)
	}
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		return apperr.Processing("Image processing failed: %v", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close staged png: %w", err)
	}

	res, err := p.runner.Run(ctx, executil.Command{
		Name: p.caps.HEICEncoder,
		Args: []string{"-q", fmt.Sprint(quality), "-o", dstPath, staged},
	})
	if err != nil {
		return apperr.Processing("HEIC encode failed: %v", err)
	}
	if res.ExitCode != 0 {
		return apperr.Processing("HEIC encode failed: %s", strings.TrimSpace(res.Stderr))
	}

	if ok, _ := afero.Exists(p.fs, dstPath); !ok {
		return apperr.Processing("HEIC encode produced no output")
	}

	return nil
}

func (p *Processor) removeQuietly(path string) {
	if err := p.fs.Remove(path); err != nil && !errors.Is(err, afero.ErrFileNotFound) {
		zlog.Logger.Warn().Err(err).Str("path", path).Msg("failed to remove intermediate file")
	}
}

// flatten composites img onto an opaque white canvas.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)

	return dc.Image()
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}

	return false
}

func dims(img image.Image) model.Dimensions {
	return model.Dimensions{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
}
