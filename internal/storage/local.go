package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// LocalArchive writes artifacts under a directory on disk.
type LocalArchive struct {
	dir string
}

func NewLocalArchive(dir string) (*LocalArchive, error) {
	if dir == "" {
		dir = "archive"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &LocalArchive{dir: abs}, nil
}

func (a *LocalArchive) Kind() string { return "local" }

func (a *LocalArchive) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	p := filepath.Join(a.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(p), nil
}

func (a *LocalArchive) Ping(context.Context) error {
	fi, err := os.Stat(a.dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", a.dir)
	}
	return nil
}

// Cleanup removes archived files older than maxAge and returns how many
// were deleted.
func (a *LocalArchive) Cleanup(maxAge time.Duration) int {
	now := time.Now()
	removed := 0
	_ = filepath.Walk(a.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if now.Sub(info.ModTime()) >= maxAge {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	if removed > 0 {
		log.Info().Int("removed", removed).Dur("max_age", maxAge).Msg("archive cleanup")
	}
	return removed
}

// RunCleanup sweeps every interval until ctx is done.
func (a *LocalArchive) RunCleanup(ctx context.Context, maxAge, interval time.Duration) {
	if maxAge <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.Cleanup(maxAge)
		}
	}
}
