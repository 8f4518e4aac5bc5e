package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOPresigner implements Presigner using minio-go against any
// S3-compatible store (MinIO, LocalStack, AWS).
type MinIOPresigner struct {
	client *minio.Client
	bucket string
}

// NewMinIOPresigner creates a presigner for the configured bucket.
func NewMinIOPresigner(cfg Config) (*MinIOPresigner, error) {
	endpoint, err := cleanEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOPresigner{client: client, bucket: cfg.Bucket}, nil
}

// cleanEndpoint removes protocol and path from endpoint URL to get host:port format
func cleanEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if strings.Contains(endpoint, "/") {
			return "", fmt.Errorf("endpoint contains path but no protocol")
		}
		return endpoint, nil
	}

	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint URL: %w", err)
	}

	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return "", fmt.Errorf("endpoint URL cannot have paths, only host:port is allowed (got path: %s)", parsedURL.Path)
	}

	return parsedURL.Host, nil
}

// PresignPut issues a presigned single-object PUT URL.
func (p *MinIOPresigner) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := p.client.PresignedPutObject(ctx, p.bucket, key, expires)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// InitMultipart opens a multipart session via the core API.
func (p *MinIOPresigner) InitMultipart(ctx context.Context, key, contentType string) (string, error) {
	core := &minio.Core{Client: p.client}
	return core.NewMultipartUpload(ctx, p.bucket, key, minio.PutObjectOptions{
		ContentType: contentType,
	})
}

// PresignPart issues a presigned part PUT URL carrying the uploadId and
// partNumber query parameters the store expects.
func (p *MinIOPresigner) PresignPart(ctx context.Context, key, uploadID string, partNumber int, expires time.Duration) (string, error) {
	params := url.Values{}
	params.Set("uploadId", uploadID)
	params.Set("partNumber", strconv.Itoa(partNumber))

	u, err := p.client.Presign(ctx, http.MethodPut, p.bucket, key, expires, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// CompleteMultipart reassembles the object via the core API.
func (p *MinIOPresigner) CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error {
	minioParts := make([]minio.CompletePart, len(parts))
	for i, part := range parts {
		minioParts[i] = minio.CompletePart{
			PartNumber: part.PartNumber,
			ETag:       part.ETag,
		}
	}

	core := &minio.Core{Client: p.client}
	_, err := core.CompleteMultipartUpload(ctx, p.bucket, key, uploadID, minioParts, minio.PutObjectOptions{})
	return err
}

// AbortMultipart discards an open session via the core API.
func (p *MinIOPresigner) AbortMultipart(ctx context.Context, key, uploadID string) error {
	core := &minio.Core{Client: p.client}
	return core.AbortMultipartUpload(ctx, p.bucket, key, uploadID)
}
