package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Categories of managed temp files. Each one has its own root directory.
const (
	Uploads   = "uploads"
	Processed = "processed"
)

// Categories lists every managed root in sweep order.
var Categories = []string{Uploads, Processed}

// Storage manages request-scoped temp files under per-category roots.
// Every path it hands out is unique per call, so two jobs never share a file.
type Storage struct {
	fs       afero.Fs
	basePath string
}

// NewStorage creates the category roots under basePath if they are missing.
func NewStorage(fs afero.Fs, basePath string) (*Storage, error) {
	s := &Storage{fs: fs, basePath: basePath}

	for _, category := range Categories {
		dir := s.Root(category)
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return s, nil
}

// Fs returns the underlying filesystem.
func (s *Storage) Fs() afero.Fs {
	return s.fs
}

// BasePath returns the directory holding the category roots.
func (s *Storage) BasePath() string {
	return s.basePath
}

// Root returns the directory of a category.
func (s *Storage) Root(category string) string {
	return filepath.Join(s.basePath, category)
}

// Allocate returns a fresh path "<uuid>_<name>" in the category root.
// Nothing is created on disk.
func (s *Storage) Allocate(category, suggestedName string) string {
	name := uuid.NewString() + "_" + SecureFilename(suggestedName)
	return filepath.Join(s.Root(category), name)
}

// AllocateFor returns the deterministic path "<id>_<role>_<name>" so the
// file can later be found by id.
func (s *Storage) AllocateFor(category, id, role, suggestedName string) string {
	name := id + "_" + role + "_" + SecureFilename(suggestedName)
	return filepath.Join(s.Root(category), name)
}

// Save copies src into path and returns the number of bytes written.
func (s *Storage) Save(path string, src io.Reader) (int64, error) {
	dst, err := s.fs.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return n, fmt.Errorf("failed to save file %s: %w", path, err)
	}

	return n, nil
}

// Write stores data at path.
func (s *Storage) Write(path string, data []byte) error {
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

// Read returns the whole content of path.
func (s *Storage) Read(path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return data, nil
}

// Open opens path for reading.
func (s *Storage) Open(path string) (afero.File, error) {
	return s.fs.Open(path)
}

// Size returns the size of path in bytes.
func (s *Storage) Size(path string) (int64, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file %s: %w", path, err)
	}

	return info.Size(), nil
}

// Exists reports whether path is a regular file.
func (s *Storage) Exists(path string) bool {
	info, err := s.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Remove deletes path. A missing file is not an error, so cleanup may run
// twice or race with the sweeper.
func (s *Storage) Remove(path string) error {
	if path == "" {
		return nil
	}

	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file %s: %w", path, err)
	}

	return nil
}

// List returns the paths of regular files in category whose name starts
// with prefix, sorted by name.
func (s *Storage) List(category, prefix string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.Root(category))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", category, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Mode().IsRegular() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		paths = append(paths, filepath.Join(s.Root(category), e.Name()))
	}
	sort.Strings(paths)

	return paths, nil
}

// Find returns the first file in category whose name starts with prefix.
func (s *Storage) Find(category, prefix string) (string, bool, error) {
	paths, err := s.List(category, prefix)
	if err != nil {
		return "", false, err
	}
	if len(paths) == 0 {
		return "", false, nil
	}

	return paths[0], true, nil
}

// Usage returns the number of files and their total size in category.
func (s *Storage) Usage(category string) (files int, bytes int64, err error) {
	entries, err := afero.ReadDir(s.fs, s.Root(category))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list %s: %w", category, err)
	}

	for _, e := range entries {
		if e.Mode().IsRegular() {
			files++
			bytes += e.Size()
		}
	}

	return files, bytes, nil
}

// Writable reports whether a file can be created in every category root.
func (s *Storage) Writable() bool {
	for _, category := range Categories {
		probe := s.Allocate(category, ".probe")
		if err := s.Write(probe, nil); err != nil {
			return false
		}
		_ = s.Remove(probe)
	}

	return true
}
