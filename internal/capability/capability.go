package capability

import (
	"context"
	"strings"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/executil"
)

// Set records which optional external tools were found at startup.
// It is built once by Probe and never mutated afterwards.
type Set struct {
	GhostscriptPath    string
	GhostscriptVersion string
	HEICEncoder        string // heif-enc path
	HEICDecoder        string // heif-dec path
}

// Ghostscript reports whether a Ghostscript binary was found.
func (s Set) Ghostscript() bool { return s.GhostscriptPath != "" }

// HEICEncode reports whether HEIC output can be produced.
func (s Set) HEICEncode() bool { return s.HEICEncoder != "" }

// HEICDecode reports whether HEIC input can be read.
func (s Set) HEICDecode() bool { return s.HEICDecoder != "" }

// Tools names the binaries Probe looks for.
type Tools struct {
	Ghostscript []string // candidates in priority order
	HEIFEnc     string
	HEIFDec     string
}

const versionTimeout = 10 * time.Second

// Probe looks up every tool once. Missing tools leave their field empty.
func Probe(ctx context.Context, r executil.Runner, tools Tools) Set {
	var s Set

	for _, candidate := range tools.Ghostscript {
		if candidate == "" {
			continue
		}
		path, err := r.LookPath(candidate)
		if err != nil {
			continue
		}
		s.GhostscriptPath = path
		s.GhostscriptVersion = GhostscriptVersion(ctx, r, path)
		break
	}

	if path, err := r.LookPath(tools.HEIFEnc); err == nil && tools.HEIFEnc != "" {
		s.HEICEncoder = path
	}
	if path, err := r.LookPath(tools.HEIFDec); err == nil && tools.HEIFDec != "" {
		s.HEICDecoder = path
	}

	zlog.Logger.Info().
		Bool("ghostscript", s.Ghostscript()).
		Str("ghostscript_version", s.GhostscriptVersion).
		Bool("heic_encode", s.HEICEncode()).
		Bool("heic_decode", s.HEICDecode()).
		Msg("capabilities probed")

	return s
}

// GhostscriptVersion runs "gs --version" and returns the trimmed output,
// or an empty string if the command fails.
func GhostscriptVersion(ctx context.Context, r executil.Runner, path string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	res, err := r.Run(ctx, executil.Command{Name: path, Args: []string{"--version"}})
	if err != nil || res.ExitCode != 0 {
		return ""
	}

	return strings.TrimSpace(res.Stdout)
}
