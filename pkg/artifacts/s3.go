package artifacts

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Fetcher reads artifacts out of AWS S3, for refs of the form
// "s3://bucket/key".
type S3Fetcher struct {
	client *s3.Client
}

// NewS3Fetcher builds an S3Fetcher from the standard AWS config chain
// (environment, shared config file, instance role).
func NewS3Fetcher(ctx context.Context) (*S3Fetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("artifacts: loading AWS config: %w", err)
	}
	return &S3Fetcher{client: s3.NewFromConfig(cfg)}, nil
}

// Fetch downloads the object at ref and returns its full contents.
func (f *S3Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := splitBucketKey(ref, "s3://")
	if err != nil {
		return nil, err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("artifacts: s3 get %s: %w", ref, err)
	}
	defer func() { _ = out.Body.Close() }()

	return io.ReadAll(out.Body)
}
