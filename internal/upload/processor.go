package upload

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/zaitanabil/galerly-sub009/internal/api"
	"github.com/zaitanabil/galerly-sub009/internal/format"
	"github.com/zaitanabil/galerly-sub009/internal/hashing"
)

// transferShare is how much of a task's progress scale the byte transfer
// occupies; the remaining share is the finalize call.
const transferShare = 90

// processor drives one task at a time through the pipeline. Each worker
// owns one processor.
type processor struct {
	sched  *Scheduler
	cb     Callbacks
	logger *zap.Logger
}

func (p *processor) process(ctx context.Context, t *Task) {
	started := time.Now()
	s := p.sched

	// Validation happens before any network call.
	if !format.IsSupported(t.Filename) {
		p.fail(t, fmt.Errorf("unsupported file type %q", t.Filename))
		return
	}

	// Normalization may swap the file for a converted copy; conversion
	// failure falls back to the original inside Normalize.
	file, err := s.normalizer.Normalize(ctx, t.Path)
	if err != nil {
		p.fail(t, err)
		return
	}
	s.updateFile(t, p.cb, file)

	// The digest covers the final, post-normalization bytes. Without it the
	// finalize handshake cannot run, so a hashing failure is fatal.
	digest, err := hashing.SumFile(file.Path)
	if err != nil {
		p.fail(t, err)
		return
	}

	if skipped := p.checkDuplicate(ctx, t); skipped {
		return
	}

	s.trackInflight(1)
	defer s.trackInflight(-1)
	s.setStatus(t, p.cb, StatusUploading, 0)

	var resourceID string
	strategy := SelectStrategy(file.Size, s.opts.ChunkSize)
	switch strategy {
	case StrategyDirect:
		resourceID, err = p.uploadDirect(ctx, t, digest)
	default:
		resourceID, err = p.uploadChunked(ctx, t, digest)
	}
	if err != nil {
		p.fail(t, err)
		return
	}

	s.complete(t, p.cb, resourceID, started)
	p.logger.Info("Upload completed",
		zap.String("file", t.Filename),
		zap.Int64("size", file.Size),
		zap.String("strategy", strategy.String()),
		zap.Duration("duration", time.Since(started)),
	)
}

// checkDuplicate asks the backend whether a matching resource exists and
// gives the caller the chance to skip. A failed check never blocks the
// upload.
func (p *processor) checkDuplicate(ctx context.Context, t *Task) bool {
	s := p.sched

	var check *api.DuplicateCheck
	err := s.retrier.Do(ctx, "check duplicates", func(ctx context.Context) error {
		var err error
		check, err = s.backend.CheckDuplicates(ctx, api.DuplicateCheckRequest{
			GalleryID: s.opts.GalleryID,
			Filename:  t.Filename,
			FileSize:  t.Size,
		})
		return err
	})
	if err != nil {
		p.logger.Warn("Duplicate check failed, uploading anyway",
			zap.String("file", t.Filename),
			zap.Error(err))
		return false
	}
	if !check.Duplicate {
		return false
	}

	skip := s.opts.SkipDuplicates
	if p.cb.OnDuplicate != nil {
		skip = p.cb.OnDuplicate(t.Filename, check.Matches)
	}
	if !skip {
		return false
	}

	p.logger.Info("Skipping duplicate file",
		zap.String("file", t.Filename),
		zap.Int("matches", len(check.Matches)))
	s.remove(t, p.cb)
	return true
}

func (p *processor) fail(t *Task, err error) {
	p.sched.fail(t, p.cb, err)
	p.logger.Error("Upload failed",
		zap.String("file", t.Filename),
		zap.Error(err),
	)
}

// progressReader reports cumulative bytes read to fn. A fresh reader is
// created per attempt, so a retried transfer restarts its byte count
// instead of double counting.
type progressReader struct {
	r    io.Reader
	read int64
	fn   func(read int64)
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	if n > 0 {
		pr.read += int64(n)
		pr.fn(pr.read)
	}
	return n, err
}
