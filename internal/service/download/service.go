package download

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/aliskhannn/compressor/internal/apperr"
	"github.com/aliskhannn/compressor/internal/storage/file"
)

// fileStorage defines the lookups the download service needs.
type fileStorage interface {
	List(category, prefix string) ([]string, error)
	Open(path string) (afero.File, error)
	Size(path string) (int64, error)
}

// Entry is a kept output ready to be served.
type Entry struct {
	Path string
	Name string // client-facing file name
	Size int64
}

// Service serves outputs kept in the processed root until the sweeper
// removes them.
type Service struct {
	storage fileStorage
}

// NewService creates a new download Service.
func NewService(s fileStorage) *Service {
	return &Service{storage: s}
}

// Single finds the output stored as "<id>_<name>".
func (s *Service) Single(id string) (Entry, error) {
	if err := checkID(id); err != nil {
		return Entry{}, err
	}

	paths, err := s.storage.List(file.Processed, id+"_")
	if err != nil {
		return Entry{}, fmt.Errorf("find download %s: %w", id, err)
	}
	if len(paths) == 0 {
		return Entry{}, apperr.NotFound("File not found or expired")
	}

	return s.entry(paths[0], strings.TrimPrefix(filepath.Base(paths[0]), id+"_"))
}

// Batch lists the outputs stored as "<id>_<index>_<name>".
func (s *Service) Batch(id string) ([]Entry, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	paths, err := s.storage.List(file.Processed, id+"_")
	if err != nil {
		return nil, fmt.Errorf("find batch %s: %w", id, err)
	}
	if len(paths) == 0 {
		return nil, apperr.NotFound("Batch not found or expired")
	}

	entries := make([]Entry, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		rest := strings.TrimPrefix(filepath.Base(p), id+"_")
		index, name, ok := strings.Cut(rest, "_")
		if !ok {
			name = rest
		}
		if seen[name] {
			name = index + "_" + name
		}
		seen[name] = true

		e, err := s.entry(p, name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// Open opens e for streaming.
func (s *Service) Open(e Entry) (afero.File, error) {
	f, err := s.storage.Open(e.Path)
	if err != nil {
		return nil, apperr.NotFound("File not found or expired")
	}

	return f, nil
}

// WriteZip writes entries as a ZIP archive to w.
func (s *Service) WriteZip(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)

	for _, e := range entries {
		if err := s.addToZip(zw, e); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}

	return nil
}

func (s *Service) addToZip(zw *zip.Writer, e Entry) error {
	src, err := s.storage.Open(e.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", e.Name, err)
	}
	defer src.Close()

	dst, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("add %s to zip: %w", e.Name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s to zip: %w", e.Name, err)
	}

	return nil
}

func (s *Service) entry(path, name string) (Entry, error) {
	size, err := s.storage.Size(path)
	if err != nil {
		return Entry{}, apperr.NotFound("File not found or expired")
	}

	return Entry{Path: path, Name: name, Size: size}, nil
}

// checkID rejects anything that is not a UUID, which also keeps path
// separators out of the lookup prefix.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("invalid id: %s", id)
	}

	return nil
}
