package storage

import (
	"context"
	"time"
)

// Presigner issues time-limited write capabilities against the object store
// and manages multipart sessions on behalf of the API server. Clients never
// see storage credentials; they only receive pre-authorized URLs.
type Presigner interface {
	// PresignPut issues a URL granting one direct object write.
	PresignPut(ctx context.Context, key string, expires time.Duration) (string, error)

	// InitMultipart opens a multipart session for key.
	InitMultipart(ctx context.Context, key, contentType string) (uploadID string, err error)

	// PresignPart issues a URL granting one part write within a session.
	PresignPart(ctx context.Context, key, uploadID string, partNumber int, expires time.Duration) (string, error)

	// CompleteMultipart reassembles the object from its parts, ordered by
	// part number.
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error

	// AbortMultipart discards an open session and its uploaded parts.
	AbortMultipart(ctx context.Context, key, uploadID string) error
}

// CompletedPart pairs a part number with the ETag the store returned for it.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// Config contains object store client configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}
