package pdf

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/apperr"
	"github.com/aliskhannn/compressor/internal/executil"
	"github.com/aliskhannn/compressor/internal/model"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

func outputArg(args []string) string {
	for _, a := range args {
		if strings.HasPrefix(a, "-sOutputFile=") {
			return strings.TrimPrefix(a, "-sOutputFile=")
		}
	}
	return ""
}

// gsWriting fakes a Ghostscript run that writes size bytes to the output.
func gsWriting(fs afero.Fs, size int) *executil.FakeRunner {
	return &executil.FakeRunner{
		Handler: func(_ context.Context, cmd executil.Command) (executil.Result, error) {
			return executil.Result{}, afero.WriteFile(fs, outputArg(cmd.Args), make([]byte, size), 0o644)
		},
	}
}

func TestArgs(t *testing.T) {
	p, ok := model.LookupPDFProfile("screen")
	require.True(t, ok)

	args := Args(p, "/in.pdf", "/out.pdf")

	assert.Equal(t, "-sDEVICE=pdfwrite", args[0])
	assert.Contains(t, args, "-dPDFSETTINGS=/screen")
	assert.Contains(t, args, "-dColorImageResolution=72")
	assert.Contains(t, args, "-dGrayImageResolution=72")
	assert.Contains(t, args, "-dMonoImageResolution=300")
	assert.Contains(t, args, "-dJPEGQ=40")
	assert.Contains(t, args, "-dSAFER")
	assert.Equal(t, "-sOutputFile=/out.pdf", args[len(args)-2])
	assert.Equal(t, "/in.pdf", args[len(args)-1])

	prepress, _ := model.LookupPDFProfile("prepress")
	args = Args(prepress, "a", "b")
	assert.Contains(t, args, "-dMonoImageResolution=1200")
	assert.Contains(t, args, "-dJPEGQ=90")
}

func TestCompressScreen(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in.pdf", make([]byte, 1000), 0o644))
	r := gsWriting(fs, 250)

	c := New(fs, r, "/usr/bin/gs", time.Minute)
	res, err := c.Compress(context.Background(), "/in.pdf", "/out.pdf", "screen")
	require.NoError(t, err)

	assert.Equal(t, int64(1000), res.OriginalSize)
	assert.Equal(t, int64(250), res.CompressedSize)
	assert.Equal(t, 75.0, res.Ratio)
	assert.Equal(t, "screen", res.Profile.Key)

	require.Equal(t, 1, r.CallCount())
	assert.Equal(t, "/usr/bin/gs", r.Calls[0].Name)
}

func TestCompressNonZeroExit(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in.pdf", []byte("%PDF-1.4"), 0o644))
	r := &executil.FakeRunner{
		Handler: func(_ context.Context, cmd executil.Command) (executil.Result, error) {
			return executil.Result{ExitCode: 1, Stderr: "Unrecoverable error"}, nil
		},
	}

	_, err := New(fs, r, "gs", 0).Compress(context.Background(), "/in.pdf", "/out.pdf", "ebook")
	require.ErrorIs(t, err, apperr.ErrProcessing)
	assert.Contains(t, apperr.Message(err), "return code 1")
	assert.Contains(t, apperr.Message(err), "Unrecoverable error")
}

func TestCompressTimeout(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in.pdf", []byte("%PDF-1.4"), 0o644))
	r := &executil.FakeRunner{
		Handler: func(ctx context.Context, cmd executil.Command) (executil.Result, error) {
			<-ctx.Done()
			return executil.Result{}, executil.ErrTimeout
		},
	}

	_, err := New(fs, r, "gs", 20*time.Millisecond).Compress(context.Background(), "/in.pdf", "/out.pdf", "screen")
	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.ErrorIs(t, err, apperr.ErrProcessing)
}

func TestCompressNoOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in.pdf", []byte("%PDF-1.4"), 0o644))

	_, err := New(fs, &executil.FakeRunner{}, "gs", 0).Compress(context.Background(), "/in.pdf", "/out.pdf", "screen")
	require.ErrorIs(t, err, apperr.ErrProcessing)
	assert.Contains(t, apperr.Message(err), "no output")
}

func TestCompressValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/empty.pdf", nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/in.pdf", []byte("%PDF-1.4"), 0o644))
	c := New(fs, &executil.FakeRunner{}, "gs", 0)

	_, err := c.Compress(context.Background(), "/empty.pdf", "/out.pdf", "screen")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = c.Compress(context.Background(), "/in.pdf", "/out.pdf", "ultra")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCompressUnavailable(t *testing.T) {
	c := New(afero.NewMemMapFs(), &executil.FakeRunner{}, "", 0)

	assert.False(t, c.Available())
	_, err := c.Compress(context.Background(), "/in.pdf", "/out.pdf", "screen")
	assert.ErrorIs(t, err, apperr.ErrToolUnavailable)

	_, err = c.Check(context.Background())
	assert.ErrorIs(t, err, apperr.ErrToolUnavailable)
}

func TestCheck(t *testing.T) {
	r := &executil.FakeRunner{
		Handler: func(_ context.Context, cmd executil.Command) (executil.Result, error) {
			return executil.Result{Stdout: "10.02.1\n"}, nil
		},
	}

	v, err := New(afero.NewMemMapFs(), r, "gs", 0).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.02.1", v)
	assert.Equal(t, []string{"--version"}, r.Calls[0].Args)
}
