// Package artifacts resolves an artifact reference — a local path, an
// s3:// URI, or a gs:// URI — to the bytes receiptctl hashes into a
// receipt's artifact.sha256.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Fetcher retrieves the raw bytes a ref points to.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Resolve dispatches ref to the S3, GCS, or local-file fetcher based on its
// scheme ("s3://", "gs://", otherwise a filesystem path).
func Resolve(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "s3://"):
		f, err := NewS3Fetcher(ctx)
		if err != nil {
			return nil, err
		}
		return f.Fetch(ctx, ref)
	case strings.HasPrefix(ref, "gs://"):
		f, err := NewGCSFetcher(ctx)
		if err != nil {
			return nil, err
		}
		return f.Fetch(ctx, ref)
	default:
		f, err := os.Open(ref)
		if err != nil {
			return nil, fmt.Errorf("artifacts: opening %s: %w", ref, err)
		}
		defer func() { _ = f.Close() }()
		return io.ReadAll(f)
	}
}

// splitBucketKey parses "scheme://bucket/key/with/slashes" into bucket and
// key, the shape both s3:// and gs:// URIs share.
func splitBucketKey(ref, scheme string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(ref, scheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("artifacts: %q is not a valid %s.../ URI", ref, scheme)
	}
	return parts[0], parts[1], nil
}
