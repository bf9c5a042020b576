package artifacts

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSFetcher reads artifacts out of Google Cloud Storage, for refs of the
// form "gs://bucket/object".
type GCSFetcher struct {
	client *storage.Client
}

// NewGCSFetcher builds a GCSFetcher using application default credentials.
func NewGCSFetcher(ctx context.Context) (*GCSFetcher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("artifacts: creating GCS client: %w", err)
	}
	return &GCSFetcher{client: client}, nil
}

// Fetch downloads the object at ref and returns its full contents.
func (f *GCSFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	bucket, object, err := splitBucketKey(ref, "gs://")
	if err != nil {
		return nil, err
	}

	r, err := f.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("artifacts: gcs get %s: %w", ref, err)
	}
	defer func() { _ = r.Close() }()

	return io.ReadAll(r)
}
