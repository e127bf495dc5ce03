package image

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"testing"

	"github.com/chai2010/webp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/apperr"
	"github.com/aliskhannn/compressor/internal/capability"
	"github.com/aliskhannn/compressor/internal/executil"
	"github.com/aliskhannn/compressor/internal/model"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

// writePNG stores a w x h PNG whose left half is transparent.
func writePNG(t *testing.T, fs afero.Fs, path string, w, h int) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, color.NRGBA{})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

func newProcessor(fs afero.Fs, r executil.Runner, caps capability.Set) *Processor {
	return New(fs, r, caps, 512<<20)
}

func TestProcessPNGToJPEG(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/in.png", 2000, 1000)

	p := newProcessor(fs, &executil.FakeRunner{}, capability.Set{})
	out, err := p.Process(context.Background(), "/in.png", "/out.jpg", Options{
		Format:     model.FormatJPEG,
		Quality:    50,
		KeepAspect: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "PNG", out.OriginalFormat)
	assert.Equal(t, model.FormatJPEG, out.Format)
	assert.Equal(t, model.Dimensions{Width: 2000, Height: 1000}, out.OriginalDimensions)
	assert.Equal(t, model.Dimensions{Width: 2000, Height: 1000}, out.FinalDimensions)

	data, err := afero.ReadFile(fs, "/out.jpg")
	require.NoError(t, err)
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2000, decoded.Bounds().Dx())

	// transparent pixels are flattened onto white
	r, g, b, _ := decoded.At(10, 10).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestProcessMaxWidthKeepsAspect(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/in.png", 1000, 333)

	p := newProcessor(fs, &executil.FakeRunner{}, capability.Set{})
	out, err := p.Process(context.Background(), "/in.png", "/out.png", Options{
		Format:     model.FormatPNG,
		Quality:    85,
		MaxWidth:   500,
		KeepAspect: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.Dimensions{Width: 500, Height: 166}, out.FinalDimensions)

	data, err := afero.ReadFile(fs, "/out.png")
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Width)
	assert.Equal(t, 166, cfg.Height)
}

func TestProcessIsDeterministic(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/in.png", 300, 200)
	p := newProcessor(fs, &executil.FakeRunner{}, capability.Set{})
	opts := Options{Format: model.FormatJPEG, Quality: 70, MaxWidth: 120, KeepAspect: true}

	first, err := p.Process(context.Background(), "/in.png", "/a.jpg", opts)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), "/in.png", "/b.jpg", opts)
	require.NoError(t, err)

	a, _ := afero.ReadFile(fs, "/a.jpg")
	b, _ := afero.ReadFile(fs, "/b.jpg")
	assert.Equal(t, first, second)
	assert.Equal(t, len(a), len(b))
}

func TestProcessWebP(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/in.png", 64, 32)

	p := newProcessor(fs, &executil.FakeRunner{}, capability.Set{})
	out, err := p.Process(context.Background(), "/in.png", "/out.webp", Options{Format: model.FormatWEBP, Quality: 80, KeepAspect: true})
	require.NoError(t, err)
	assert.Equal(t, model.FormatWEBP, out.Format)

	data, err := afero.ReadFile(fs, "/out.webp")
	require.NoError(t, err)
	img, err := webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestProcessHEICFallsBackToJPEG(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/in.png", 40, 40)

	p := newProcessor(fs, &executil.FakeRunner{}, capability.Set{})
	out, err := p.Process(context.Background(), "/in.png", "/out.heic", Options{Format: model.FormatHEIC, Quality: 60, KeepAspect: true})
	require.NoError(t, err)
	assert.Equal(t, model.FormatJPEG, out.Format)

	data, err := afero.ReadFile(fs, "/out.heic")
	require.NoError(t, err)
	_, err = jpeg.DecodeConfig(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestProcessHEICWithEncoder(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/in.png", 40, 40)

	r := &executil.FakeRunner{
		Handler: func(_ context.Context, cmd executil.Command) (executil.Result, error) {
			// heif-enc -q <q> -o <out> <in>
			return executil.Result{}, afero.WriteFile(fs, cmd.Args[3], []byte("heic"), 0o644)
		},
	}
	p := newProcessor(fs, r, capability.Set{HEICEncoder: "/usr/bin/heif-enc"})

	out, err := p.Process(context.Background(), "/in.png", "/out.heic", Options{Format: model.FormatHEIC, Quality: 55, KeepAspect: true})
	require.NoError(t, err)
	assert.Equal(t, model.FormatHEIC, out.Format)

	require.Equal(t, 1, r.CallCount())
	assert.Equal(t, []string{"-q", "55", "-o", "/out.heic", "/out.heic.staged.png"}, r.Calls[0].Args)

	staged, _ := afero.Exists(fs, "/out.heic.staged.png")
	assert.False(t, staged)
}

func TestProcessHEICEncoderFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/in.png", 10, 10)

	r := &executil.FakeRunner{
		Handler: func(_ context.Context, cmd executil.Command) (executil.Result, error) {
			return executil.Result{ExitCode: 1, Stderr: "boom"}, nil
		},
	}
	p := newProcessor(fs, r, capability.Set{HEICEncoder: "heif-enc"})

	_, err := p.Process(context.Background(), "/in.png", "/out.heic", Options{Format: model.FormatHEIC, Quality: 55})
	assert.ErrorIs(t, err, apperr.ErrProcessing)
}

func TestProcessHEICInputWithoutDecoder(t *testing.T) {
	fs := afero.NewMemMapFs()
	// minimal ISO-BMFF ftyp box with the heic brand
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic\x00\x00\x00\x00mif1heic")...)
	require.NoError(t, afero.WriteFile(fs, "/in.heic", heic, 0o644))

	p := newProcessor(fs, &executil.FakeRunner{}, capability.Set{})
	_, err := p.Process(context.Background(), "/in.heic", "/out.jpg", Options{Format: model.FormatJPEG, Quality: 85})
	assert.ErrorIs(t, err, apperr.ErrToolUnavailable)
}

func TestProcessHEICInputWithDecoder(t *testing.T) {
	fs := afero.NewMemMapFs()
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic\x00\x00\x00\x00mif1heic")...)
	require.NoError(t, afero.WriteFile(fs, "/in.heic", heic, 0o644))

	r := &executil.FakeRunner{
		Handler: func(_ context.Context, cmd executil.Command) (executil.Result, error) {
			writePNG(t, fs, cmd.Args[1], 30, 20)
			return executil.Result{}, nil
		},
	}
	p := newProcessor(fs, r, capability.Set{HEICDecoder: "heif-dec"})

	out, err := p.Process(context.Background(), "/in.heic", "/out.jpg", Options{Format: model.FormatJPEG, Quality: 85, KeepAspect: true})
	require.NoError(t, err)
	assert.Equal(t, "HEIC", out.OriginalFormat)
	assert.Equal(t, model.Dimensions{Width: 30, Height: 20}, out.FinalDimensions)

	leftover, _ := afero.Exists(fs, "/out.jpg.decoded.png")
	assert.False(t, leftover)
}

func TestProcessRejectsGarbage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in.png", []byte("definitely not an image"), 0o644))

	p := newProcessor(fs, &executil.FakeRunner{}, capability.Set{})
	_, err := p.Process(context.Background(), "/in.png", "/out.jpg", Options{Format: model.FormatJPEG, Quality: 85})
	assert.ErrorIs(t, err, apperr.ErrProcessing)
}

func TestProcessDecodedSizeLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/in.png", 100, 100)

	p := New(fs, &executil.FakeRunner{}, capability.Set{}, 100*100*4-1)
	_, err := p.Process(context.Background(), "/in.png", "/out.jpg", Options{Format: model.FormatJPEG, Quality: 85})
	assert.ErrorIs(t, err, apperr.ErrPayloadTooLarge)
	assert.Contains(t, apperr.Message(err), "39999 bytes")
}

func TestProcessUnsupportedFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/in.png", 10, 10)

	p := newProcessor(fs, &executil.FakeRunner{}, capability.Set{})
	_, err := p.Process(context.Background(), "/in.png", "/out.gif", Options{Format: "gif", Quality: 85})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
