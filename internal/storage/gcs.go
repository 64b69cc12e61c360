package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
)

// GCSArchive writes artifacts to a Cloud Storage bucket. Objects are
// written once; an existing object is left alone.
type GCSArchive struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	name   string
}

func NewGCSArchive(ctx context.Context, bucket string) (*GCSArchive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs archive: bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSArchive{client: client, bucket: client.Bucket(bucket), name: bucket}, nil
}

func (a *GCSArchive) Kind() string { return "gcs" }

func (a *GCSArchive) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	w := a.bucket.Object(name).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	url := fmt.Sprintf("gs://%s/%s", a.name, name)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		if alreadyExists(err) {
			return url, nil
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		if alreadyExists(err) {
			log.Debug().Str("object", name).Msg("object already exists")
			return url, nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return url, nil
}

func (a *GCSArchive) Ping(ctx context.Context) error {
	_, err := a.bucket.Attrs(ctx)
	return err
}

func (a *GCSArchive) Close() error { return a.client.Close() }

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
