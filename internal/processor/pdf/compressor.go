package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/apperr"
	"github.com/aliskhannn/compressor/internal/executil"
	"github.com/aliskhannn/compressor/internal/model"
)

// DefaultTimeout bounds a single Ghostscript run.
const DefaultTimeout = 300 * time.Second

// Result holds the outcome of one compression.
type Result struct {
	OriginalSize   int64
	CompressedSize int64
	Ratio          float64
	Duration       time.Duration
	Profile        model.PDFProfile
}

// Compressor shrinks PDFs by running Ghostscript through a Runner.
type Compressor struct {
	fs      afero.Fs
	runner  executil.Runner
	gsPath  string
	timeout time.Duration
}

// New creates a Compressor. An empty gsPath means Ghostscript is not
// installed and every Compress call fails with ErrToolUnavailable.
func New(fs afero.Fs, r executil.Runner, gsPath string, timeout time.Duration) *Compressor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Compressor{fs: fs, runner: r, gsPath: gsPath, timeout: timeout}
}

// Available reports whether a Ghostscript binary is configured.
func (c *Compressor) Available() bool {
	return c.gsPath != ""
}

// Compress writes a compressed copy of in to out using the named tier.
func (c *Compressor) Compress(ctx context.Context, in, out, tier string) (Result, error) {
	if !c.Available() {
		return Result{}, apperr.Unavailable("PDF compressor not available. Please check Ghostscript installation.")
	}

	profile, ok := model.LookupPDFProfile(tier)
	if !ok {
		return Result{}, apperr.Validation("Invalid quality. Choose from: %s", strings.Join(model.PDFProfileKeys(), ", "))
	}

	info, err := c.fs.Stat(in)
	if err != nil {
		return Result{}, apperr.Validation("Input file not found")
	}
	if info.Size() == 0 {
		return Result{}, apperr.Validation("Input file is empty or cannot be read")
	}

	zlog.Logger.Info().
		Str("profile", profile.Name).
		Str("original_size", humanize.IBytes(uint64(info.Size()))).
		Msg("starting pdf compression")

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := c.runner.Run(runCtx, executil.Command{Name: c.gsPath, Args: Args(profile, in, out)})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, executil.ErrTimeout) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Result{}, apperr.Timeout("Compression timed out after %d seconds", int(c.timeout.Seconds()))
		}
		return Result{}, apperr.Processing("Ghostscript failed: %v", err)
	}
	if res.ExitCode != 0 {
		msg := fmt.Sprintf("Ghostscript failed with return code %d", res.ExitCode)
		if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
			msg += ": " + stderr
		}
		return Result{}, apperr.Processing("%s", msg)
	}

	outInfo, err := c.fs.Stat(out)
	if err != nil || !outInfo.Mode().IsRegular() {
		return Result{}, apperr.Processing("Ghostscript produced no output")
	}

	result := Result{
		OriginalSize:   info.Size(),
		CompressedSize: outInfo.Size(),
		Ratio:          model.CompressionRatio(info.Size(), outInfo.Size()),
		Duration:       elapsed,
		Profile:        profile,
	}

	zlog.Logger.Info().
		Str("compressed_size", humanize.IBytes(uint64(result.CompressedSize))).
		Float64("ratio", model.RoundRatio(result.Ratio)).
		Dur("elapsed", elapsed).
		Msg("pdf compression completed")

	return result, nil
}

// Check runs "gs --version" and returns the reported version.
func (c *Compressor) Check(ctx context.Context) (string, error) {
	if !c.Available() {
		return "", apperr.Unavailable("Ghostscript not installed")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := c.runner.Run(ctx, executil.Command{Name: c.gsPath, Args: []string{"--version"}})
	if err != nil {
		return "", apperr.Unavailable("Ghostscript check failed: %v", err)
	}
	if res.ExitCode != 0 {
		return "", apperr.Unavailable("Ghostscript check failed with return code %d", res.ExitCode)
	}

	return strings.TrimSpace(res.Stdout), nil
}
