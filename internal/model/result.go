package model

import "fmt"

// Dimensions is a width x height pair in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// ImageResult describes a produced image file.
type ImageResult struct {
	Path               string
	DownloadName       string
	OriginalSize       int64
	CompressedSize     int64
	OriginalFormat     string      // decoder name, e.g. "PNG"
	OutputFormat       ImageFormat // format actually written
	OriginalDimensions Dimensions
	FinalDimensions    Dimensions
	Mode               string
	Quality            int
}

// Ratio returns the compression ratio rounded to one decimal.
func (r ImageResult) Ratio() float64 {
	return RoundRatio(CompressionRatio(r.OriginalSize, r.CompressedSize))
}

// SizeReduction returns saved bytes, negative if the output grew.
func (r ImageResult) SizeReduction() int64 {
	return r.OriginalSize - r.CompressedSize
}

// PDFResult is the JSON summary of a single PDF compression.
type PDFResult struct {
	Success                 bool       `json:"success"`
	OriginalFilename        string     `json:"original_filename"`
	CompressedFilename      string     `json:"compressed_filename"`
	DownloadID              string     `json:"download_id"`
	QualityProfile          string     `json:"quality_profile"`
	OriginalSize            int64      `json:"original_size"`
	CompressedSize          int64      `json:"compressed_size"`
	OriginalSizeFormatted   string     `json:"original_size_formatted"`
	CompressedSizeFormatted string     `json:"compressed_size_formatted"`
	CompressionRatio        float64    `json:"compression_ratio"`
	SizeReduction           int64      `json:"size_reduction"`
	ExecutionTime           float64    `json:"execution_time"`
	APIProcessingTime       float64    `json:"api_processing_time"`
	ProfileInfo             PDFProfile `json:"profile_info"`
}

// BatchItem is the outcome of one file inside a batch.
type BatchItem struct {
	Filename         string  `json:"filename"`
	Status           string  `json:"status"` // "success" or "error"
	OriginalSize     int64   `json:"original_size,omitempty"`
	CompressedSize   int64   `json:"compressed_size,omitempty"`
	CompressionRatio float64 `json:"compression_ratio"`
	SizeReduction    int64   `json:"size_reduction,omitempty"`
	OutputFormat     string  `json:"output_format,omitempty"`
	Error            string  `json:"error,omitempty"`
}

const (
	BatchStatusSuccess = "success"
	BatchStatusError   = "error"
)

// BatchResult is the JSON summary of a batch request.
type BatchResult struct {
	Success                 bool        `json:"success"`
	BatchID                 string      `json:"batch_id"`
	Results                 []BatchItem `json:"results"`
	TotalFiles              int         `json:"total_files"`
	Successful              int         `json:"successful"`
	Failed                  int         `json:"failed"`
	TotalOriginalSize       int64       `json:"total_original_size"`
	TotalCompressedSize     int64       `json:"total_compressed_size"`
	OverallCompressionRatio float64     `json:"overall_compression_ratio"`
	DownloadBatchURL        string      `json:"download_batch_url,omitempty"`
}

// Add appends item and updates the counters and totals.
func (b *BatchResult) Add(item BatchItem) {
	b.Results = append(b.Results, item)
	b.TotalFiles++
	if item.Status != BatchStatusSuccess {
		b.Failed++
		return
	}

	b.Successful++
	b.TotalOriginalSize += item.OriginalSize
	b.TotalCompressedSize += item.CompressedSize
	b.OverallCompressionRatio = RoundRatio(CompressionRatio(b.TotalOriginalSize, b.TotalCompressedSize))
}
