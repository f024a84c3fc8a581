package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MediaStore holds campaign media (images, video) in an S3-compatible bucket
// and hands out public URLs for the gateway to fetch.
type MediaStore struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

// NewMediaStore builds a store against the given bucket. publicBase is the
// URL prefix under which uploaded keys are reachable; when empty, the
// standard S3 virtual-hosted URL is used.
func NewMediaStore(ctx context.Context, bucket, region, publicBase string) (*MediaStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &MediaStore{
		client:     s3.NewFromConfig(cfg),
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Upload stores the object under key. Callers upload media and take its URL
// before writing the campaign row, so a failed upload never leaves a
// campaign pointing at nothing.
func (s *MediaStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the address under which an uploaded key is served.
func (s *MediaStore) PublicURL(key string) string {
	return s.publicBase + "/" + strings.TrimLeft(key, "/")
}
