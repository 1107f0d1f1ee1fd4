// Package gcs holds receipt images in Google Cloud Storage between upload
// and pipeline processing.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// ObjectStore wraps an injected storage client for one bucket.
type ObjectStore struct {
	client *storage.Client
	bucket string
}

// NewObjectStore wraps an injected client. Credentials come from Application
// Default Credentials on the client the caller built.
func NewObjectStore(client *storage.Client, bucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket}
}

// Upload stores image bytes under a date-partitioned object name and returns
// the gs:// URI.
func (s *ObjectStore) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	objectName := fmt.Sprintf("receipts/%s/%s-%s", time.Now().Format("2006/01/02"), uuid.NewString(), path.Base(filename))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs: write object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: finalize object %q: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

// Fetch downloads the bytes behind a gs:// URI.
func (s *ObjectStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: open %s: %w", uri, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s: %w", uri, err)
	}

	return data, nil
}

// Delete removes the object behind a gs:// URI. Used for temp-image cleanup;
// callers treat failures as best-effort.
func (s *ObjectStore) Delete(ctx context.Context, uri string) error {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return err
	}

	if err := s.client.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		return fmt.Errorf("gcs: delete %s: %w", uri, err)
	}

	return nil
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("gcs: invalid URI: %s", uri)
	}

	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("gcs: invalid URI (no object path): %s", uri)
	}

	return parts[0], parts[1], nil
}
