// Package archive stores a copy of each uploaded statement in a GCS bucket
// for audit. Archiving is optional; an unset bucket disables it.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// Archiver writes raw statement bytes to a bucket.
type Archiver interface {
	Archive(ctx context.Context, objectName string, data []byte) (uri string, err error)
}

// GCSArchiver archives statements to Google Cloud Storage. It assumes
// Application Default Credentials are configured.
type GCSArchiver struct {
	bucket string
}

// NewGCSArchiver creates an archiver for the given bucket.
func NewGCSArchiver(bucket string) *GCSArchiver {
	return &GCSArchiver{bucket: bucket}
}

// Archive uploads the statement under statements/YYYY/MM/DD/<objectName> and
// returns the resulting gs:// URI.
func (a *GCSArchiver) Archive(ctx context.Context, objectName string, data []byte) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	object := fmt.Sprintf("statements/%s/%s", time.Now().Format("2006/01/02"), objectName)
	w := client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy statement to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", a.bucket, object), nil
}

var _ Archiver = (*GCSArchiver)(nil)
