package pdf

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/apperr"
	"github.com/aliskhannn/compressor/internal/executil"
	"github.com/aliskhannn/compressor/internal/model"
	pdfproc "github.com/aliskhannn/compressor/internal/processor/pdf"
	"github.com/aliskhannn/compressor/internal/service/download"
	"github.com/aliskhannn/compressor/internal/storage/file"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func upload(name string, data []byte) model.Upload {
	return model.Upload{
		Filename: name,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// fakeGhostscript writes half of the input size to the output file.
func fakeGhostscript(fs afero.Fs) *executil.FakeRunner {
	return &executil.FakeRunner{
		Handler: func(_ context.Context, cmd executil.Command) (executil.Result, error) {
			in := cmd.Args[len(cmd.Args)-1]
			info, err := fs.Stat(in)
			if err != nil {
				return executil.Result{ExitCode: 1, Stderr: err.Error()}, nil
			}
			out := strings.TrimPrefix(cmd.Args[len(cmd.Args)-2], "-sOutputFile=")
			return executil.Result{}, afero.WriteFile(fs, out, make([]byte, info.Size()/2), 0o644)
		},
	}
}

func setup(t *testing.T, gsPath string) (*Service, *file.Storage, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	st, err := file.NewStorage(fs, "/tmp/c")
	require.NoError(t, err)

	c := pdfproc.New(fs, fakeGhostscript(fs), gsPath, 0)
	return NewService(st, c, 50<<20), st, fs
}

func files(t *testing.T, st *file.Storage, category string) int {
	t.Helper()
	n, _, err := st.Usage(category)
	require.NoError(t, err)
	return n
}

func TestCompress(t *testing.T) {
	s, st, _ := setup(t, "gs")

	res, err := s.Compress(context.Background(), upload("annual report.pdf", samplePDF), "screen")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "screen", res.QualityProfile)
	assert.Equal(t, int64(len(samplePDF)), res.OriginalSize)
	assert.Equal(t, int64(len(samplePDF)/2), res.CompressedSize)
	assert.InDelta(t, 50.0, res.CompressionRatio, 1.0)
	assert.Equal(t, "compressed_annual_report.pdf", res.CompressedFilename)
	assert.Equal(t, 72, res.ProfileInfo.DPIColor)

	// the input is gone, the output waits for download
	assert.Zero(t, files(t, st, file.Uploads))
	assert.Equal(t, 1, files(t, st, file.Processed))

	e, err := download.NewService(st).Single(res.DownloadID)
	require.NoError(t, err)
	assert.Equal(t, "compressed_annual_report.pdf", e.Name)
}

func TestCompressFailureCleansUp(t *testing.T) {
	fs := afero.NewMemMapFs()
	st, err := file.NewStorage(fs, "/tmp/c")
	require.NoError(t, err)

	r := &executil.FakeRunner{
		Handler: func(_ context.Context, cmd executil.Command) (executil.Result, error) {
			out := strings.TrimPrefix(cmd.Args[len(cmd.Args)-2], "-sOutputFile=")
			_ = afero.WriteFile(fs, out, []byte("partial"), 0o644)
			return executil.Result{ExitCode: 1, Stderr: "Error: /syntaxerror"}, nil
		},
	}
	s := NewService(st, pdfproc.New(fs, r, "gs", 0), 50<<20)

	_, err = s.Compress(context.Background(), upload("a.pdf", samplePDF), "ebook")
	require.ErrorIs(t, err, apperr.ErrProcessing)

	assert.Zero(t, files(t, st, file.Uploads))
	assert.Zero(t, files(t, st, file.Processed))
}

func TestCompressValidation(t *testing.T) {
	s, st, _ := setup(t, "gs")

	tests := []struct {
		name string
		u    model.Upload
		tier string
		kind error
	}{
		{"not pdf", upload("a.txt", samplePDF), "screen", apperr.ErrValidation},
		{"bad tier", upload("a.pdf", samplePDF), "ultra", apperr.ErrValidation},
		{"empty", upload("a.pdf", nil), "screen", apperr.ErrValidation},
		{"content mismatch", upload("a.pdf", []byte("hello world")), "screen", apperr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Compress(context.Background(), tt.u, tt.tier)
			assert.ErrorIs(t, err, tt.kind)
			assert.Zero(t, files(t, st, file.Uploads))
			assert.Zero(t, files(t, st, file.Processed))
		})
	}
}

func TestCompressTooLarge(t *testing.T) {
	fs := afero.NewMemMapFs()
	st, err := file.NewStorage(fs, "/tmp/c")
	require.NoError(t, err)
	s := NewService(st, pdfproc.New(fs, fakeGhostscript(fs), "gs", 0), 10)

	_, err = s.Compress(context.Background(), upload("a.pdf", samplePDF), "screen")
	assert.ErrorIs(t, err, apperr.ErrPayloadTooLarge)
}

func TestCompressWithoutGhostscript(t *testing.T) {
	s, _, _ := setup(t, "")

	_, err := s.Compress(context.Background(), upload("a.pdf", samplePDF), "screen")
	assert.ErrorIs(t, err, apperr.ErrToolUnavailable)

	_, err = s.Batch(context.Background(), []model.Upload{upload("a.pdf", samplePDF)}, "screen")
	assert.ErrorIs(t, err, apperr.ErrToolUnavailable)
}

func TestBatch(t *testing.T) {
	s, st, _ := setup(t, "gs")

	res, err := s.Batch(context.Background(), []model.Upload{
		upload("a.pdf", samplePDF),
		upload("b.docx", samplePDF),
		upload("c.pdf", samplePDF),
	}, "printer")
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalFiles)
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int64(2*len(samplePDF)), res.TotalOriginalSize)
	assert.Equal(t, "Only PDF files are allowed", res.Results[1].Error)

	entries, err := download.NewService(st).Batch(res.BatchID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "compressed_a.pdf", entries[0].Name)
	assert.Equal(t, "compressed_c.pdf", entries[1].Name)
	assert.Zero(t, files(t, st, file.Uploads))
}
