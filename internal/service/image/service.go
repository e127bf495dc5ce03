package image

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/apperr"
	"github.com/aliskhannn/compressor/internal/model"
	imgproc "github.com/aliskhannn/compressor/internal/processor/image"
	"github.com/aliskhannn/compressor/internal/storage/file"
)

// Operation selects what Transform does with an upload.
type Operation string

const (
	OpCompress    Operation = "compress"
	OpConvert     Operation = "convert"
	OpHEICConvert Operation = "heic-convert"
	OpResize      Operation = "resize"
)

// downloadPrefix is prepended to the client filename of the result.
func (op Operation) downloadPrefix() string {
	switch op {
	case OpCompress:
		return "compressed"
	case OpResize:
		return "resized"
	default:
		return "converted"
	}
}

// fileStorage defines the temp storage operations the service relies on.
type fileStorage interface {
	Allocate(category, suggestedName string) string
	AllocateFor(category, id, role, suggestedName string) string
	Save(path string, src io.Reader) (int64, error)
	Size(path string) (int64, error)
	Open(path string) (afero.File, error)
	Remove(path string) error
}

// processor defines the in-process image transform.
type processor interface {
	Process(ctx context.Context, srcPath, dstPath string, opts imgproc.Options) (imgproc.Output, error)
}

// Request describes one image transform.
type Request struct {
	Operation Operation
	Upload    model.Upload
	Options   imgproc.Options
	Mode      string
}

// Artifact is a produced image waiting to be streamed. The caller must
// call Service.Release once the response is written.
type Artifact struct {
	Job    *model.Job
	Result model.ImageResult
}

// Service runs image jobs: it validates uploads, stores them, calls the
// processor and cleans every temp file up when the job ends.
type Service struct {
	storage   fileStorage
	processor processor
	maxBytes  int64
}

// NewService creates a new Service. maxBytes caps a single upload.
func NewService(s fileStorage, p processor, maxBytes int64) *Service {
	return &Service{storage: s, processor: p, maxBytes: maxBytes}
}

// MaxBytes returns the per-file upload limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Transform runs req to completion. On error every file created for the
// job is already removed.
func (s *Service) Transform(ctx context.Context, req Request) (_ *Artifact, err error) {
	job := model.NewJob(req.Upload.Filename)
	job.Format = string(req.Options.Format)
	job.Quality = fmt.Sprint(req.Options.Quality)

	defer func() {
		if err != nil {
			s.fail(job, err)
		}
	}()

	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := job.Advance(model.StateValidated); err != nil {
		return nil, err
	}

	original, err := s.store(job, req.Upload)
	if err != nil {
		return nil, err
	}

	ext := req.Options.Format.Extension()
	job.ResultPath = s.storage.Allocate(file.Processed, job.ID.String()+"."+ext)

	out, err := s.processor.Process(ctx, job.SourcePath, job.ResultPath, req.Options)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Operation, job.Filename, err)
	}

	compressed, err := s.storage.Size(job.ResultPath)
	if err != nil {
		return nil, fmt.Errorf("stat result: %w", err)
	}

	// The source is no longer needed once the result exists.
	s.remove(job.SourcePath)
	job.SourcePath = ""

	if err := job.Advance(model.StateTransformed); err != nil {
		return nil, err
	}

	result := model.ImageResult{
		Path:               job.ResultPath,
		DownloadName:       fmt.Sprintf("%s_%s.%s", req.Operation.downloadPrefix(), file.BaseName(req.Upload.Filename), out.Format.Extension()),
		OriginalSize:       original,
		CompressedSize:     compressed,
		OriginalFormat:     out.OriginalFormat,
		OutputFormat:       out.Format,
		OriginalDimensions: out.OriginalDimensions,
		FinalDimensions:    out.FinalDimensions,
		Mode:               req.Mode,
		Quality:            req.Options.Quality,
	}

	zlog.Logger.Info().
		Str("operation", string(req.Operation)).
		Str("job_id", job.ID.String()).
		Str("file", job.Filename).
		Str("original", humanize.IBytes(uint64(original))).
		Str("result", humanize.IBytes(uint64(compressed))).
		Float64("ratio", result.Ratio()).
		Msg("image processed")

	return &Artifact{Job: job, Result: result}, nil
}

// Open opens the artifact for streaming.
func (s *Service) Open(a *Artifact) (afero.File, error) {
	return s.storage.Open(a.Result.Path)
}

// Release finishes the job after its response was written and removes
// the result file.
func (s *Service) Release(a *Artifact) {
	if err := a.Job.Advance(model.StateResponded); err != nil {
		zlog.Logger.Warn().Err(err).Str("job_id", a.Job.ID.String()).Msg("unexpected job state on release")
	}
	for _, p := range a.Job.Paths() {
		s.remove(p)
	}
}

// Batch compresses every upload and keeps the successful outputs under
// the returned batch id for a later ZIP download. Files are handled one
// after another.
func (s *Service) Batch(ctx context.Context, uploads []model.Upload, opts imgproc.Options, mode string) (model.BatchResult, error) {
	if len(uploads) == 0 {
		return model.BatchResult{}, apperr.Validation("No images provided")
	}

	batchID := uuid.NewString()
	res := model.BatchResult{Success: true, BatchID: batchID, Results: []model.BatchItem{}}

	for i, u := range uploads {
		if err := ctx.Err(); err != nil {
			return model.BatchResult{}, fmt.Errorf("batch: %w", err)
		}

		art, err := s.Transform(ctx, Request{Operation: OpCompress, Upload: u, Options: opts, Mode: mode})
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("batch_id", batchID).Str("file", u.Filename).Msg("batch item failed")
			res.Add(model.BatchItem{Filename: u.Filename, Status: model.BatchStatusError, Error: apperr.Message(err)})
			continue
		}

		if err := s.keep(art, batchID, i); err != nil {
			s.Release(art)
			res.Add(model.BatchItem{Filename: u.Filename, Status: model.BatchStatusError, Error: apperr.Message(err)})
			continue
		}

		res.Add(model.BatchItem{
			Filename:         u.Filename,
			Status:           model.BatchStatusSuccess,
			OriginalSize:     art.Result.OriginalSize,
			CompressedSize:   art.Result.CompressedSize,
			CompressionRatio: art.Result.Ratio(),
			SizeReduction:    art.Result.SizeReduction(),
			OutputFormat:     string(art.Result.OutputFormat),
		})
	}

	if res.Successful > 0 {
		res.DownloadBatchURL = "/download-batch/" + batchID
	}

	return res, nil
}

// keep moves a finished artifact to its batch location. The job ends as
// responded because its output is now owned by the batch.
func (s *Service) keep(a *Artifact, batchID string, index int) error {
	f, err := s.storage.Open(a.Result.Path)
	if err != nil {
		return fmt.Errorf("open result: %w", err)
	}
	defer f.Close()

	dst := s.storage.AllocateFor(file.Processed, batchID, fmt.Sprintf("%03d", index), a.Result.DownloadName)
	if _, err := s.storage.Save(dst, f); err != nil {
		s.remove(dst)
		return err
	}

	s.Release(a)
	return nil
}

func (s *Service) validate(req Request) error {
	u := req.Upload
	if u.Filename == "" {
		return apperr.Validation("No file selected")
	}

	if req.Operation == OpHEICConvert {
		if !model.IsHEICUpload(u.Filename) {
			return apperr.Validation("File type not supported")
		}
	} else if !model.IsImageUpload(u.Filename) {
		return apperr.Validation("File type not supported")
	}

	if s.maxBytes > 0 && u.Size > s.maxBytes {
		return apperr.TooLarge("File too large: %s. Max: %s", model.FormatSize(u.Size), model.FormatSize(s.maxBytes))
	}

	if req.Options.Quality < 10 || req.Options.Quality > 100 {
		return apperr.Validation("Quality must be between 10 and 100")
	}
	if _, ok := model.ParseImageFormat(string(req.Options.Format)); !ok {
		return apperr.Validation("Target format not supported: %s", req.Options.Format)
	}

	return nil
}

// store saves the upload, checks its content type and returns its size.
func (s *Service) store(job *model.Job, u model.Upload) (int64, error) {
	src, err := u.Open()
	if err != nil {
		return 0, apperr.Validation("failed to retrieve the file")
	}
	defer src.Close()

	job.SourcePath = s.storage.Allocate(file.Uploads, u.Filename)

	var limited io.Reader = src
	if s.maxBytes > 0 {
		limited = io.LimitReader(src, s.maxBytes+1)
	}

	n, err := s.storage.Save(job.SourcePath, limited)
	if err != nil {
		return 0, fmt.Errorf("upload: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return 0, apperr.TooLarge("File too large. Max: %s", model.FormatSize(s.maxBytes))
	}
	if n == 0 {
		return 0, apperr.Validation("Uploaded file is empty")
	}

	if err := s.sniff(job.SourcePath); err != nil {
		return 0, err
	}

	if err := job.Advance(model.StateStored); err != nil {
		return 0, err
	}

	return n, nil
}

func (s *Service) sniff(path string) error {
	f, err := s.storage.Open(path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return fmt.Errorf("detect content type: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return apperr.Validation("File content is not an image (%s)", mtype.String())
	}

	return nil
}

// fail moves the job to failed and removes its files.
func (s *Service) fail(job *model.Job, cause error) {
	if !job.Terminal() {
		_ = job.Advance(model.StateFailed)
	}
	for _, p := range job.Paths() {
		s.remove(p)
	}

	zlog.Logger.Err(cause).Str("job_id", job.ID.String()).Str("file", job.Filename).Msg("image job failed")
}

func (s *Service) remove(path string) {
	if err := s.storage.Remove(path); err != nil {
		zlog.Logger.Warn().Err(err).Str("path", path).Msg("failed to clean up temp file")
	}
}
