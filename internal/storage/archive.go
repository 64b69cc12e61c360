// Package storage archives conversion artifacts to local disk, S3 or GCS.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/config"
)

// Archive keeps a copy of each produced artifact.
type Archive interface {
	// Put stores data under name and returns a URL for it.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	// Ping checks the destination is reachable.
	Ping(ctx context.Context) error
	// Kind is "local", "s3" or "gcs".
	Kind() string
}

// Close releases clients held by a, if any. A nil archive is fine.
func Close(a Archive) error {
	if c, ok := a.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ObjectName builds prefix/YYYY/MM/DD/<uuid>-<kind><ext>.
func ObjectName(prefix, kind, ext string, now time.Time) string {
	return path.Join(prefix, now.UTC().Format("2006/01/02"), fmt.Sprintf("%s-%s%s", uuid.NewString(), kind, ext))
}

// New returns the configured archive, or nil when archiving is off.
func New(ctx context.Context, cfg config.ArchiveConfig) (Archive, error) {
	switch cfg.Backend {
	case "", "none", "off":
		return nil, nil
	case "local":
		a, err := NewLocalArchive(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "s3":
		a, err := NewS3Archive(ctx, S3Options{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "gcs":
		a, err := NewGCSArchive(ctx, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
}
