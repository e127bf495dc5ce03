package model

import (
	"path/filepath"
	"strings"
)

// ImageFormat is an output format the image processor can produce.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
	FormatWEBP ImageFormat = "webp"
	FormatBMP  ImageFormat = "bmp"
	FormatTIFF ImageFormat = "tiff"
	FormatHEIC ImageFormat = "heic"
)

// OutputFormats lists the accepted values of the "format" form field.
var OutputFormats = []string{"png", "jpeg", "jpg", "webp", "bmp", "tiff", "heic", "heif"}

// uploadExtensions lists the image extensions accepted on upload.
var uploadExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "bmp": {},
	"webp": {}, "tiff": {}, "tif": {}, "heic": {}, "heif": {},
}

// ParseImageFormat normalizes a client-supplied format name.
func ParseImageFormat(s string) (ImageFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, true
	case "jpeg", "jpg":
		return FormatJPEG, true
	case "webp":
		return FormatWEBP, true
	case "bmp":
		return FormatBMP, true
	case "tiff", "tif":
		return FormatTIFF, true
	case "heic", "heif":
		return FormatHEIC, true
	default:
		return "", false
	}
}

// SupportsAlpha reports whether the format can carry transparency.
func (f ImageFormat) SupportsAlpha() bool {
	switch f {
	case FormatPNG, FormatWEBP, FormatTIFF:
		return true
	default:
		return false
	}
}

// Extension returns the file extension used for downloads, without the dot.
func (f ImageFormat) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}

	return string(f)
}

// ContentType returns the MIME type of the format.
func (f ImageFormat) ContentType() string {
	return "image/" + string(f)
}

// Extension returns the lower-cased extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// IsImageUpload reports whether filename has an accepted image extension.
func IsImageUpload(filename string) bool {
	_, ok := uploadExtensions[Extension(filename)]
	return ok
}

// IsHEICUpload reports whether filename looks like a HEIC/HEIF image.
func IsHEICUpload(filename string) bool {
	ext := Extension(filename)
	return ext == "heic" || ext == "heif"
}

// IsPDFUpload reports whether filename has a .pdf extension.
func IsPDFUpload(filename string) bool {
	return Extension(filename) == "pdf"
}

// Compression modes of the image compress endpoint.
const (
	ModeStandard   = "standard"
	ModeAggressive = "aggressive"
	ModeLossless   = "lossless"
	ModeWebP       = "webp"
)

// CompressionModes lists the accepted values of the "mode" form field.
var CompressionModes = []string{ModeStandard, ModeAggressive, ModeLossless, ModeWebP}

// FormatForMode returns the output format a compression mode forces.
// The standard mode keeps the requested format.
func FormatForMode(mode string, requested ImageFormat) ImageFormat {
	switch mode {
	case ModeAggressive:
		return FormatJPEG
	case ModeLossless:
		return FormatPNG
	case ModeWebP:
		return FormatWEBP
	default:
		return requested
	}
}
