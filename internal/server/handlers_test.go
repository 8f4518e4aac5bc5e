package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zaitanabil/galerly-sub009/internal/api"
	"github.com/zaitanabil/galerly-sub009/internal/storage"
	"github.com/zaitanabil/galerly-sub009/internal/store"
)

// fakePresigner records presign traffic instead of talking to an object
// store.
type fakePresigner struct {
	mu             sync.Mutex
	presignedPuts  []string
	initedUploads  []string
	presignedParts map[string][]int
	completed      map[string][]storage.CompletedPart
	aborted        []string
	nextUploadID   int
}

func newFakePresigner() *fakePresigner {
	return &fakePresigner{
		presignedParts: make(map[string][]int),
		completed:      make(map[string][]storage.CompletedPart),
	}
}

func (f *fakePresigner) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presignedPuts = append(f.presignedPuts, key)
	return "https://store.example.com/" + key, nil
}

func (f *fakePresigner) InitMultipart(_ context.Context, key, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextUploadID++
	id := fmt.Sprintf("mpu-%d", f.nextUploadID)
	f.initedUploads = append(f.initedUploads, id)
	return id, nil
}

func (f *fakePresigner) PresignPart(_ context.Context, key, uploadID string, partNumber int, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presignedParts[uploadID] = append(f.presignedParts[uploadID], partNumber)
	return fmt.Sprintf("https://store.example.com/%s?uploadId=%s&partNumber=%d", key, uploadID, partNumber), nil
}

func (f *fakePresigner) CompleteMultipart(_ context.Context, key, uploadID string, parts []storage.CompletedPart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[uploadID] = parts
	return nil
}

func (f *fakePresigner) AbortMultipart(_ context.Context, key, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, uploadID)
	return nil
}

type testServer struct {
	srv       *Server
	router    http.Handler
	store     *store.SQLiteStore
	presigner *fakePresigner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	presigner := newFakePresigner()
	srv := New(Options{
		URLExpiry:      15 * time.Minute,
		MaxUploadBytes: 100 * 1024 * 1024,
		ChunkSize:      10 * 1024 * 1024,
	}, st, presigner, zap.NewNop())

	return &testServer{
		srv:       srv,
		router:    srv.Router(),
		store:     st,
		presigner: presigner,
	}
}

func (ts *testServer) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestDirectUploadIssuesDestination(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, "/api/uploads/direct", api.DirectUploadRequest{
		GalleryID: "g1",
		Filename:  "IMG_0001.jpg",
		FileSize:  2048,
		FileType:  "image/jpeg",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[api.DirectUpload](t, w)
	assert.NotEmpty(t, resp.ResourceID)
	assert.Contains(t, resp.UploadURL, resp.StorageKey)
	assert.Contains(t, resp.StorageKey, "galleries/g1/")

	rec, err := ts.store.GetPhoto(resp.ResourceID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, store.StatusPending, rec.Status)
}

func TestDirectUploadValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		req  api.DirectUploadRequest
		want string
	}{
		{"missing gallery", api.DirectUploadRequest{Filename: "a.jpg", FileSize: 10}, "gallery_id is required"},
		{"missing filename", api.DirectUploadRequest{GalleryID: "g1", FileSize: 10}, "filename is required"},
		{"zero size", api.DirectUploadRequest{GalleryID: "g1", Filename: "a.jpg"}, "file_size must be positive"},
		{"oversize", api.DirectUploadRequest{GalleryID: "g1", Filename: "a.jpg", FileSize: 1 << 40}, "exceeds limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.post(t, "/api/uploads/direct", tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestConfirmUpload(t *testing.T) {
	ts := newTestServer(t)

	created := decode[api.DirectUpload](t, ts.post(t, "/api/uploads/direct", api.DirectUploadRequest{
		GalleryID: "g1", Filename: "IMG_0002.jpg", FileSize: 512, FileType: "image/jpeg",
	}))

	w := ts.post(t, "/api/uploads/confirm", api.ConfirmRequest{
		ResourceID: created.ResourceID,
		StorageKey: created.StorageKey,
		Filename:   "IMG_0002.jpg",
		FileSize:   512,
		Digest:     "deadbeef",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[api.Resource](t, w)
	assert.Equal(t, created.ResourceID, res.ID)
	assert.Equal(t, "deadbeef", res.Digest)

	rec, err := ts.store.GetPhoto(created.ResourceID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusConfirmed, rec.Status)
}

func TestConfirmUnknownResource(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, "/api/uploads/confirm", api.ConfirmRequest{
		ResourceID: "no-such-id",
		Digest:     "deadbeef",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown resource")
}

func TestCheckDuplicates(t *testing.T) {
	ts := newTestServer(t)

	created := decode[api.DirectUpload](t, ts.post(t, "/api/uploads/direct", api.DirectUploadRequest{
		GalleryID: "g1", Filename: "IMG_0003.jpg", FileSize: 777, FileType: "image/jpeg",
	}))

	// Pending records are not duplicates yet.
	w := ts.post(t, "/api/uploads/duplicates", api.DuplicateCheckRequest{
		GalleryID: "g1", Filename: "IMG_0003.jpg", FileSize: 777,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[api.DuplicateCheck](t, w).Duplicate)

	ts.post(t, "/api/uploads/confirm", api.ConfirmRequest{
		ResourceID: created.ResourceID, Digest: "cafe",
	})

	w = ts.post(t, "/api/uploads/duplicates", api.DuplicateCheckRequest{
		GalleryID: "g1", Filename: "IMG_0003.jpg", FileSize: 777,
	})
	require.Equal(t, http.StatusOK, w.Code)
	check := decode[api.DuplicateCheck](t, w)
	assert.True(t, check.Duplicate)
	require.Len(t, check.Matches, 1)
	assert.Equal(t, created.ResourceID, check.Matches[0].ID)
}

func TestMultipartInitIssuesAllPartDestinations(t *testing.T) {
	ts := newTestServer(t)

	// 25MiB at a 10MiB chunk -> 3 parts
	w := ts.post(t, "/api/uploads/multipart/init", api.MultipartInitRequest{
		GalleryID: "g1", Filename: "IMG_0004.jpg", FileSize: 25 * 1024 * 1024, FileType: "image/jpeg",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	init := decode[api.MultipartInit](t, w)
	assert.NotEmpty(t, init.UploadID)
	require.Len(t, init.Parts, 3)
	for i, p := range init.Parts {
		assert.Equal(t, i+1, p.PartNumber)
		assert.NotEmpty(t, p.URL)
	}

	sess, err := ts.store.GetSession(init.UploadID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, 3, sess.PartCount)
	assert.Equal(t, init.ResourceID, sess.PhotoID)
}

func TestMultipartCompleteHappyPath(t *testing.T) {
	ts := newTestServer(t)

	init := decode[api.MultipartInit](t, ts.post(t, "/api/uploads/multipart/init", api.MultipartInitRequest{
		GalleryID: "g1", Filename: "IMG_0005.jpg", FileSize: 25 * 1024 * 1024, FileType: "image/jpeg",
	}))

	// Tokens submitted out of order are reassembled by part number.
	w := ts.post(t, "/api/uploads/multipart/complete", api.MultipartCompleteRequest{
		UploadID:   init.UploadID,
		ResourceID: init.ResourceID,
		StorageKey: init.StorageKey,
		Parts: []api.CompletedPart{
			{PartNumber: 3, ETag: "e3"},
			{PartNumber: 1, ETag: "e1"},
			{PartNumber: 2, ETag: "e2"},
		},
		Digest: "feedface",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[api.Resource](t, w)
	assert.Equal(t, init.ResourceID, res.ID)
	assert.Equal(t, "feedface", res.Digest)

	completed := ts.presigner.completed[init.UploadID]
	require.Len(t, completed, 3)
	for i, p := range completed {
		assert.Equal(t, i+1, p.PartNumber)
	}

	sess, err := ts.store.GetSession(init.UploadID)
	require.NoError(t, err)
	assert.Nil(t, sess, "session removed after completion")
}

func TestMultipartCompletePartCountMismatch(t *testing.T) {
	ts := newTestServer(t)

	init := decode[api.MultipartInit](t, ts.post(t, "/api/uploads/multipart/init", api.MultipartInitRequest{
		GalleryID: "g1", Filename: "IMG_0006.jpg", FileSize: 25 * 1024 * 1024, FileType: "image/jpeg",
	}))

	w := ts.post(t, "/api/uploads/multipart/complete", api.MultipartCompleteRequest{
		UploadID:   init.UploadID,
		ResourceID: init.ResourceID,
		Parts:      []api.CompletedPart{{PartNumber: 1, ETag: "e1"}},
		Digest:     "feedface",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "expected 3 parts, got 1")
}

func TestMultipartCompleteUnknownUpload(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, "/api/uploads/multipart/complete", api.MultipartCompleteRequest{
		UploadID: "mpu-ghost",
		Digest:   "feedface",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMultipartAbortCleansUp(t *testing.T) {
	ts := newTestServer(t)

	init := decode[api.MultipartInit](t, ts.post(t, "/api/uploads/multipart/init", api.MultipartInitRequest{
		GalleryID: "g1", Filename: "IMG_0007.jpg", FileSize: 25 * 1024 * 1024, FileType: "image/jpeg",
	}))

	w := ts.post(t, "/api/uploads/multipart/abort", api.MultipartAbortRequest{
		UploadID:   init.UploadID,
		ResourceID: init.ResourceID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, ts.presigner.aborted, init.UploadID)

	sess, err := ts.store.GetSession(init.UploadID)
	require.NoError(t, err)
	assert.Nil(t, sess)

	rec, err := ts.store.GetPhoto(init.ResourceID)
	require.NoError(t, err)
	assert.Nil(t, rec, "pending record removed on abort")
}

func TestMultipartAbortUnknownUpload(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, "/api/uploads/multipart/abort", api.MultipartAbortRequest{UploadID: "mpu-ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
