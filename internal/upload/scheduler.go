// Package upload drives batches of files through the gallery upload
// pipeline: normalize, hash, duplicate check, direct or chunked transfer,
// finalize.
package upload

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zaitanabil/galerly-sub009/internal/api"
	"github.com/zaitanabil/galerly-sub009/internal/format"
	"github.com/zaitanabil/galerly-sub009/internal/metrics"
	"github.com/zaitanabil/galerly-sub009/internal/retry"
)

// Backend is the gallery API collaborator.
type Backend interface {
	CreateDirectUpload(ctx context.Context, req api.DirectUploadRequest) (*api.DirectUpload, error)
	ConfirmUpload(ctx context.Context, req api.ConfirmRequest) (*api.Resource, error)
	CheckDuplicates(ctx context.Context, req api.DuplicateCheckRequest) (*api.DuplicateCheck, error)
	InitMultipart(ctx context.Context, req api.MultipartInitRequest) (*api.MultipartInit, error)
	CompleteMultipart(ctx context.Context, req api.MultipartCompleteRequest) (*api.Resource, error)
	AbortMultipart(ctx context.Context, req api.MultipartAbortRequest) error
}

// BlobStore is the object-store collaborator: a plain PUT to a
// pre-authorized URL, returning a completion token.
type BlobStore interface {
	UploadToURL(ctx context.Context, url string, body io.Reader, size int64, contentType string) (string, error)
}

// Callbacks notify the caller while a batch is in flight. OnProgress always
// receives a snapshot of every tracked task, so observers can render the
// whole batch from the latest callback alone.
type Callbacks struct {
	OnProgress func(tasks []Task)
	OnComplete func(resourceIDs []string)
	OnError    func(msg string)
	// OnDuplicate decides whether to skip a file the backend reports as
	// already uploaded. Nil falls back to the SkipDuplicates option.
	OnDuplicate func(filename string, matches []api.Resource) bool
}

// Options configures a scheduler.
type Options struct {
	GalleryID      string
	Concurrency    int
	ChunkSize      int64
	SkipDuplicates bool
}

// Scheduler fans a batch of files out across a bounded worker pool and
// owns the task registry. It is constructed explicitly and injected where
// needed; there is no package-level instance.
type Scheduler struct {
	opts       Options
	backend    Backend
	blobs      BlobStore
	normalizer *format.Normalizer
	retrier    *retry.Controller
	metrics    *metrics.Collector
	logger     *zap.Logger

	mu       sync.Mutex
	tasks    map[string]*Task
	order    []string
	inflight int
	cancel   context.CancelFunc
}

// NewScheduler creates a scheduler. metrics may be nil.
func NewScheduler(opts Options, backend Backend, blobs BlobStore, normalizer *format.Normalizer,
	retrier *retry.Controller, collector *metrics.Collector, logger *zap.Logger) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Scheduler{
		opts:       opts,
		backend:    backend,
		blobs:      blobs,
		normalizer: normalizer,
		retrier:    retrier,
		metrics:    collector,
		logger:     logger,
		tasks:      make(map[string]*Task),
	}
}

// Submit uploads the given files and blocks until every task in the batch
// has reached a terminal state. It returns the server resource ids of the
// tasks that completed; failed tasks are reported through cb.OnError and in
// the task snapshots, never by aborting the batch.
func (s *Scheduler) Submit(ctx context.Context, paths []string, cb Callbacks) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	batchIDs := make([]string, 0, len(paths))
	for _, path := range paths {
		t := &Task{
			ID:       uuid.NewString(),
			Path:     path,
			Filename: baseName(path),
			Status:   StatusPending,
		}
		s.tasks[t.ID] = t
		s.order = append(s.order, t.ID)
		batchIDs = append(batchIDs, t.ID)
	}
	s.mu.Unlock()
	s.notify(cb)

	queue := make(chan string, len(batchIDs))
	for _, id := range batchIDs {
		queue <- id
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			logger := s.logger.With(zap.Int("worker_id", workerID))
			p := &processor{sched: s, cb: cb, logger: logger}
			for id := range queue {
				t, ok := s.lookup(id)
				if !ok {
					continue // removed by CancelAll
				}
				p.process(batchCtx, t)
			}
		}(i)
	}
	wg.Wait()

	// Every task is terminal (or removed) by now; the batch resolves here
	// and only here.
	completed := make([]string, 0, len(batchIDs))
	s.mu.Lock()
	for _, id := range batchIDs {
		if t, ok := s.tasks[id]; ok && t.Status == StatusCompleted {
			completed = append(completed, t.ResourceID)
		}
	}
	s.mu.Unlock()

	if cb.OnComplete != nil {
		cb.OnComplete(completed)
	}
	return completed, nil
}

// GetProgress returns a snapshot of all tracked tasks in submission order.
func (s *Scheduler) GetProgress() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ClearCompleted drops completed tasks from the registry. Calling it twice
// in a row is a no-op the second time.
func (s *Scheduler) ClearCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	for _, id := range s.order {
		if t, ok := s.tasks[id]; ok && t.Status == StatusCompleted {
			delete(s.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// CancelAll cancels the in-flight batch and clears all tracked task state.
// Workers observe the cancelled context, abort any open chunked transfer
// server-side and drain; a subsequent Submit starts a fresh batch.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.tasks = make(map[string]*Task)
	s.order = nil
	s.inflight = 0
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.metrics != nil {
		s.metrics.SetInflight(0)
	}
}

func (s *Scheduler) lookup(id string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// snapshotLocked copies all tasks in submission order. Callers hold s.mu.
func (s *Scheduler) snapshotLocked() []Task {
	out := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		if t, ok := s.tasks[id]; ok {
			out = append(out, *t)
		}
	}
	return out
}

// notify fires OnProgress with a full snapshot. Fired on every state or
// percentage change.
func (s *Scheduler) notify(cb Callbacks) {
	if cb.OnProgress == nil {
		return
	}
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	cb.OnProgress(snapshot)
}

func (s *Scheduler) setStatus(t *Task, cb Callbacks, status Status, progress int) {
	s.mu.Lock()
	if _, ok := s.tasks[t.ID]; !ok {
		s.mu.Unlock()
		return
	}
	t.Status = status
	t.Progress = progress
	s.mu.Unlock()
	s.notify(cb)
}

func (s *Scheduler) setProgress(t *Task, cb Callbacks, progress int) {
	s.mu.Lock()
	if _, ok := s.tasks[t.ID]; !ok || t.Progress == progress {
		s.mu.Unlock()
		return
	}
	t.Progress = progress
	s.mu.Unlock()
	s.notify(cb)
}

func (s *Scheduler) updateFile(t *Task, cb Callbacks, f format.File) {
	s.mu.Lock()
	t.Path = f.Path
	t.Filename = f.Filename
	t.Size = f.Size
	t.ContentType = f.ContentType
	s.mu.Unlock()
	s.notify(cb)
}

func (s *Scheduler) complete(t *Task, cb Callbacks, resourceID string, started time.Time) {
	s.mu.Lock()
	if _, ok := s.tasks[t.ID]; !ok {
		s.mu.Unlock()
		return
	}
	t.Status = StatusCompleted
	t.Progress = 100
	t.ResourceID = resourceID
	size := t.Size
	s.mu.Unlock()
	s.notify(cb)

	if s.metrics != nil {
		s.metrics.IncCompleted(size)
		s.metrics.ObserveDuration(time.Since(started))
	}
}

func (s *Scheduler) fail(t *Task, cb Callbacks, err error) {
	s.mu.Lock()
	if _, ok := s.tasks[t.ID]; !ok {
		s.mu.Unlock()
		return
	}
	t.Status = StatusError
	t.Error = err.Error()
	filename := t.Filename
	s.mu.Unlock()
	s.notify(cb)

	if s.metrics != nil {
		s.metrics.IncFailed()
	}
	if cb.OnError != nil {
		cb.OnError(fmt.Sprintf("%s: %s", filename, err.Error()))
	}
}

// remove drops a task from the active batch without error, used when the
// caller elects to skip a duplicate.
func (s *Scheduler) remove(t *Task, cb Callbacks) {
	s.mu.Lock()
	delete(s.tasks, t.ID)
	for i, id := range s.order {
		if id == t.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notify(cb)

	if s.metrics != nil {
		s.metrics.IncSkipped()
	}
}

func (s *Scheduler) trackInflight(delta int) {
	s.mu.Lock()
	s.inflight += delta
	n := s.inflight
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SetInflight(n)
	}
}
