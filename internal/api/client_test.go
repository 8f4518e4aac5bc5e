package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsSessionCookie(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("galerly_session"); err == nil {
			gotCookie = c.Value
		}
		json.NewEncoder(w).Encode(DuplicateCheck{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-123", time.Second)
	_, err := c.CheckDuplicates(context.Background(), DuplicateCheckRequest{GalleryID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, "tok-123", gotCookie)
}

func TestClientSurfacesServerErrorVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "gallery_id is required"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.CreateDirectUpload(context.Background(), DirectUploadRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gallery_id is required")
	assert.Contains(t, err.Error(), "400")
}

func TestClientFallsBackToRawBodyWithoutErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	err := c.AbortMultipart(context.Background(), MultipartAbortRequest{UploadID: "mpu-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestUploadToURLReturnsTrimmedETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, int64(5), r.ContentLength)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	etag, err := c.UploadToURL(context.Background(), srv.URL+"/blob/x", strings.NewReader("hello"), 5, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "abc123", etag)
}

func TestUploadToURLToleratesMissingETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	etag, err := c.UploadToURL(context.Background(), srv.URL+"/blob/x", strings.NewReader("hi"), 2, "image/png")
	require.NoError(t, err)
	assert.Empty(t, etag)
}

func TestUploadToURLReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.UploadToURL(context.Background(), srv.URL+"/blob/x", strings.NewReader("hi"), 2, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "access denied")
}
