package upload

import (
	"context"
	"fmt"
	"os"

	"github.com/zaitanabil/galerly-sub009/internal/api"
)

// uploadDirect transfers a file in a single PUT: destination issuance, byte
// transfer mapped to 0-90% of task progress, then the confirm handshake at
// 90-100%. Only a confirmed upload is durable server-side.
func (p *processor) uploadDirect(ctx context.Context, t *Task, digest string) (string, error) {
	s := p.sched

	var dest *api.DirectUpload
	err := s.retrier.Do(ctx, "create direct upload", func(ctx context.Context) error {
		var err error
		dest, err = s.backend.CreateDirectUpload(ctx, api.DirectUploadRequest{
			GalleryID: s.opts.GalleryID,
			Filename:  t.Filename,
			FileSize:  t.Size,
			FileType:  t.ContentType,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to get upload destination: %w", err)
	}

	size := t.Size
	err = s.retrier.Do(ctx, "direct upload", func(ctx context.Context) error {
		f, err := os.Open(t.Path)
		if err != nil {
			return err
		}
		defer f.Close()

		body := &progressReader{r: f, fn: func(read int64) {
			s.setProgress(t, p.cb, int(float64(read)/float64(size)*transferShare))
		}}
		_, err = s.blobs.UploadToURL(ctx, dest.UploadURL, body, size, t.ContentType)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", t.Filename, err)
	}

	s.setStatus(t, p.cb, StatusProcessing, transferShare)

	var res *api.Resource
	err = s.retrier.Do(ctx, "confirm upload", func(ctx context.Context) error {
		var err error
		res, err = s.backend.ConfirmUpload(ctx, api.ConfirmRequest{
			ResourceID: dest.ResourceID,
			StorageKey: dest.StorageKey,
			Filename:   t.Filename,
			FileSize:   size,
			Digest:     digest,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to confirm upload: %w", err)
	}

	return res.ID, nil
}
