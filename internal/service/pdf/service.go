package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/apperr"
	"github.com/aliskhannn/compressor/internal/model"
	pdfproc "github.com/aliskhannn/compressor/internal/processor/pdf"
	"github.com/aliskhannn/compressor/internal/storage/file"
)

// RoleCompressed marks the kept output of a single-file compression.
const RoleCompressed = "compressed"

// fileStorage defines the temp storage operations the service relies on.
type fileStorage interface {
	AllocateFor(category, id, role, suggestedName string) string
	Save(path string, src io.Reader) (int64, error)
	Open(path string) (afero.File, error)
	Remove(path string) error
}

// compressor defines the Ghostscript transform.
type compressor interface {
	Available() bool
	Compress(ctx context.Context, in, out, tier string) (pdfproc.Result, error)
}

// Service runs PDF compression jobs. The input is always removed when the
// job ends; the output is kept for download until the sweeper expires it.
type Service struct {
	storage    fileStorage
	compressor compressor
	maxBytes   int64
}

// NewService creates a new Service. maxBytes caps a single upload.
func NewService(s fileStorage, c compressor, maxBytes int64) *Service {
	return &Service{storage: s, compressor: c, maxBytes: maxBytes}
}

// MaxBytes returns the per-file upload limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Compress compresses one uploaded PDF. The output can later be fetched
// by the returned download id.
func (s *Service) Compress(ctx context.Context, u model.Upload, tier string) (model.PDFResult, error) {
	start := time.Now()

	job := model.NewJob(u.Filename)
	job.Quality = tier
	job.Format = "pdf"

	res, err := s.run(ctx, job, u, job.ID.String(), RoleCompressed)
	if err != nil {
		return model.PDFResult{}, err
	}
	if err := s.finish(job); err != nil {
		return model.PDFResult{}, err
	}

	clean := file.SecureFilename(u.Filename)
	return model.PDFResult{
		Success:                 true,
		OriginalFilename:        clean,
		CompressedFilename:      RoleCompressed + "_" + clean,
		DownloadID:              job.ID.String(),
		QualityProfile:          res.Profile.Key,
		OriginalSize:            res.OriginalSize,
		CompressedSize:          res.CompressedSize,
		OriginalSizeFormatted:   model.FormatSize(res.OriginalSize),
		CompressedSizeFormatted: model.FormatSize(res.CompressedSize),
		CompressionRatio:        model.RoundRatio(res.Ratio),
		SizeReduction:           res.OriginalSize - res.CompressedSize,
		ExecutionTime:           res.Duration.Seconds(),
		APIProcessingTime:       time.Since(start).Seconds(),
		ProfileInfo:             res.Profile,
	}, nil
}

// Batch compresses every upload with the same tier. Outputs are kept
// under the batch id for a ZIP download.
func (s *Service) Batch(ctx context.Context, uploads []model.Upload, tier string) (model.BatchResult, error) {
	if len(uploads) == 0 {
		return model.BatchResult{}, apperr.Validation("No files provided")
	}
	if !s.compressor.Available() {
		return model.BatchResult{}, apperr.Unavailable("PDF compressor not available. Please check Ghostscript installation.")
	}

	batchID := uuid.NewString()
	res := model.BatchResult{Success: true, BatchID: batchID, Results: []model.BatchItem{}}

	for i, u := range uploads {
		if err := ctx.Err(); err != nil {
			return model.BatchResult{}, fmt.Errorf("batch: %w", err)
		}

		job := model.NewJob(u.Filename)
		job.Quality = tier
		job.Format = "pdf"

		role := fmt.Sprintf("%03d", i)
		r, err := s.run(ctx, job, u, batchID, role)
		if err == nil {
			err = s.finish(job)
		}
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("batch_id", batchID).Str("file", u.Filename).Msg("batch item failed")
			res.Add(model.BatchItem{Filename: u.Filename, Status: model.BatchStatusError, Error: apperr.Message(err)})
			continue
		}

		res.Add(model.BatchItem{
			Filename:         u.Filename,
			Status:           model.BatchStatusSuccess,
			OriginalSize:     r.OriginalSize,
			CompressedSize:   r.CompressedSize,
			CompressionRatio: model.RoundRatio(r.Ratio),
			SizeReduction:    r.OriginalSize - r.CompressedSize,
			OutputFormat:     "pdf",
		})
	}

	if res.Successful > 0 {
		res.DownloadBatchURL = "/download-batch/" + batchID
	}

	return res, nil
}

// run validates, stores and compresses one upload. The output is written
// to "<id>_<role>_..." in the processed root. On error every file of the
// job is removed and the job is failed.
func (s *Service) run(ctx context.Context, job *model.Job, u model.Upload, id, role string) (_ pdfproc.Result, err error) {
	defer func() {
		if err != nil {
			s.fail(job, err)
		}
	}()

	if err := s.validate(u, job.Quality); err != nil {
		return pdfproc.Result{}, err
	}
	if err := job.Advance(model.StateValidated); err != nil {
		return pdfproc.Result{}, err
	}

	if err := s.store(job, u); err != nil {
		return pdfproc.Result{}, err
	}

	name := u.Filename
	if role != RoleCompressed {
		name = RoleCompressed + "_" + u.Filename
	}
	job.ResultPath = s.storage.AllocateFor(file.Processed, id, role, name)

	res, err := s.compressor.Compress(ctx, job.SourcePath, job.ResultPath, job.Quality)
	if err != nil {
		return pdfproc.Result{}, fmt.Errorf("compress %s: %w", job.Filename, err)
	}

	if err := job.Advance(model.StateTransformed); err != nil {
		return pdfproc.Result{}, err
	}

	return res, nil
}

// finish ends a successful job: the input goes away, the output stays.
func (s *Service) finish(job *model.Job) error {
	s.remove(job.SourcePath)
	job.SourcePath = ""

	return job.Advance(model.StateResponded)
}

func (s *Service) validate(u model.Upload, tier string) error {
	if !s.compressor.Available() {
		return apperr.Unavailable("PDF compressor not available. Please check Ghostscript installation.")
	}
	if u.Filename == "" {
		return apperr.Validation("No file selected")
	}
	if !model.IsPDFUpload(u.Filename) {
		return apperr.Validation("Only PDF files are allowed")
	}
	if s.maxBytes > 0 && u.Size > s.maxBytes {
		return apperr.TooLarge("File too large. Maximum size: %s", model.FormatSize(s.maxBytes))
	}
	if _, ok := model.LookupPDFProfile(tier); !ok {
		return apperr.Validation("Invalid quality. Choose from: %v", model.PDFProfileKeys())
	}

	return nil
}

func (s *Service) store(job *model.Job, u model.Upload) error {
	src, err := u.Open()
	if err != nil {
		return apperr.Validation("failed to retrieve the file")
	}
	defer src.Close()

	job.SourcePath = s.storage.AllocateFor(file.Uploads, job.ID.String(), "input", u.Filename)

	var r io.Reader = src
	if s.maxBytes > 0 {
		r = io.LimitReader(src, s.maxBytes+1)
	}

	n, err := s.storage.Save(job.SourcePath, r)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return apperr.TooLarge("File too large. Maximum size: %s", model.FormatSize(s.maxBytes))
	}
	if n == 0 {
		return apperr.Validation("Input file is empty or cannot be read")
	}

	f, err := s.storage.Open(job.SourcePath)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	mtype, err := mimetype.DetectReader(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("detect content type: %w", err)
	}
	if !mtype.Is("application/pdf") {
		return apperr.Validation("File content is not a PDF (%s)", mtype.String())
	}

	zlog.Logger.Info().Str("job_id", job.ID.String()).Str("file", job.Filename).Int64("size", n).Msg("pdf uploaded")

	return job.Advance(model.StateStored)
}

// fail moves the job to failed and removes its files.
func (s *Service) fail(job *model.Job, cause error) {
	if !job.Terminal() {
		_ = job.Advance(model.StateFailed)
	}
	for _, p := range job.Paths() {
		s.remove(p)
	}

	zlog.Logger.Err(cause).Str("job_id", job.ID.String()).Str("file", job.Filename).Msg("pdf job failed")
}

func (s *Service) remove(path string) {
	if path == "" {
		return
	}
	if err := s.storage.Remove(path); err != nil {
		zlog.Logger.Warn().Err(err).Str("path", path).Msg("failed to clean up temp file")
	}
}
