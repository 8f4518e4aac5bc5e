package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zaitanabil/galerly-sub009/internal/api"
	"go.uber.org/zap"
)

// abortTimeout bounds the best-effort multipart abort issued after an
// unrecoverable failure or cancellation.
const abortTimeout = 30 * time.Second

// uploadChunked transfers a large file as contiguous parts of the shared
// chunk size. Parts upload sequentially within the task, each under retry
// control; cumulative progress is weighted by part size across 0-90%. The
// complete call passes the completion tokens ordered by part number, which
// is the order the backend reassembles in.
func (p *processor) uploadChunked(ctx context.Context, t *Task, digest string) (string, error) {
	s := p.sched

	var init *api.MultipartInit
	err := s.retrier.Do(ctx, "init multipart", func(ctx context.Context) error {
		var err error
		init, err = s.backend.InitMultipart(ctx, api.MultipartInitRequest{
			GalleryID: s.opts.GalleryID,
			Filename:  t.Filename,
			FileSize:  t.Size,
			FileType:  t.ContentType,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to init multipart upload: %w", err)
	}

	size := t.Size
	parts := Partition(size, s.opts.ChunkSize)

	// Match backend-issued destinations to parts. A part with no
	// destination is a fatal protocol error: skipping it would reassemble a
	// corrupt object.
	urls := make(map[int]string, len(init.Parts))
	for _, d := range init.Parts {
		urls[d.PartNumber] = d.URL
	}
	for i := range parts {
		url, ok := urls[parts[i].Number]
		if !ok || url == "" {
			p.abort(ctx, init)
			return "", fmt.Errorf("backend issued no destination for part %d of %d", parts[i].Number, len(parts))
		}
		parts[i].URL = url
	}

	var transferred int64
	for i := range parts {
		part := &parts[i]
		err := s.retrier.Do(ctx, fmt.Sprintf("upload part %d", part.Number), func(ctx context.Context) error {
			f, err := os.Open(t.Path)
			if err != nil {
				return err
			}
			defer f.Close()

			section := io.NewSectionReader(f, part.Offset, part.Length)
			body := &progressReader{r: section, fn: func(read int64) {
				s.setProgress(t, p.cb, int(float64(transferred+read)/float64(size)*transferShare))
			}}
			etag, err := s.blobs.UploadToURL(ctx, part.URL, body, part.Length, "application/octet-stream")
			if err != nil {
				return err
			}
			if etag == "" {
				return fmt.Errorf("object store returned no completion token for part %d", part.Number)
			}
			part.ETag = etag
			return nil
		})
		if err != nil {
			p.abort(ctx, init)
			return "", fmt.Errorf("failed to upload part %d: %w", part.Number, err)
		}
		transferred += part.Length
	}

	s.setStatus(t, p.cb, StatusProcessing, transferShare)

	completed := make([]api.CompletedPart, len(parts))
	for i, part := range parts {
		completed[i] = api.CompletedPart{PartNumber: part.Number, ETag: part.ETag}
	}

	var res *api.Resource
	err = s.retrier.Do(ctx, "complete multipart", func(ctx context.Context) error {
		var err error
		res, err = s.backend.CompleteMultipart(ctx, api.MultipartCompleteRequest{
			UploadID:   init.UploadID,
			ResourceID: init.ResourceID,
			StorageKey: init.StorageKey,
			Parts:      completed,
			Digest:     digest,
		})
		return err
	})
	if err != nil {
		p.abort(ctx, init)
		return "", fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	return res.ID, nil
}

// abort cleans up server-side multipart state for a task that will not be
// retried. It must run even when the batch context is cancelled, so it gets
// a detached context with its own deadline.
func (p *processor) abort(ctx context.Context, init *api.MultipartInit) {
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	err := p.sched.backend.AbortMultipart(abortCtx, api.MultipartAbortRequest{
		UploadID:   init.UploadID,
		ResourceID: init.ResourceID,
	})
	if err != nil {
		p.logger.Warn("Failed to abort multipart upload, parts may leak server-side",
			zap.String("upload_id", init.UploadID),
			zap.Error(err))
	}
}
