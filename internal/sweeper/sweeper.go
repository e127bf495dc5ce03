package sweeper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/wb-go/wbf/zlog"
)

// Sweeper deletes regular files older than the retention window from a
// fixed set of directories. It keeps no state between passes.
type Sweeper struct {
	fs        afero.Fs
	dirs      []string
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// New creates a Sweeper for dirs.
func New(fs afero.Fs, dirs []string, retention, interval time.Duration) *Sweeper {
	return &Sweeper{
		fs:        fs,
		dirs:      dirs,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Stats summarizes one pass.
type Stats struct {
	Removed int
	Failed  int
}

// Run sweeps every interval until ctx is canceled, then marks wg done.
func (s *Sweeper) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	zlog.Logger.Info().Dur("interval", s.interval).Dur("retention", s.retention).Msg("sweeper started")

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs a single pass. Failures on individual entries are logged and
// do not stop the pass.
func (s *Sweeper) Sweep() Stats {
	var st Stats
	cutoff := s.now().Add(-s.retention)

	for _, dir := range s.dirs {
		entries, err := afero.ReadDir(s.fs, dir)
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("dir", dir).Msg("failed to list directory")
			continue
		}

		for _, e := range entries {
			if !e.Mode().IsRegular() || !e.ModTime().Before(cutoff) {
				continue
			}

			path := filepath.Join(dir, e.Name())
			if err := s.fs.Remove(path); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				st.Failed++
				zlog.Logger.Warn().Err(err).Str("path", path).Msg("failed to remove expired file")
				continue
			}

			st.Removed++
			zlog.Logger.Info().Str("file", e.Name()).Msg("cleaned up")
		}
	}

	if st.Removed > 0 || st.Failed > 0 {
		zlog.Logger.Info().Int("removed", st.Removed).Int("failed", st.Failed).Msg("sweep finished")
	}

	return st
}
