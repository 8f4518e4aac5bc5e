// Package api implements the HTTP client for the gallery backend and the
// presigned-destination PUTs against the object store.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// sessionCookie carries the backend session; every backend call is
// authenticated with it.
const sessionCookie = "galerly_session"

// Client talks to the gallery backend over JSON/HTTP and uploads bytes to
// pre-authorized destination URLs.
type Client struct {
	baseURL      string
	sessionToken string
	httpClient   *http.Client
}

// NewClient creates a backend client. timeout applies to every request,
// including destination PUTs.
func NewClient(baseURL, sessionToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		sessionToken: sessionToken,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// CreateDirectUpload requests a pre-authorized destination and a provisional
// resource id for a single-shot upload.
func (c *Client) CreateDirectUpload(ctx context.Context, req DirectUploadRequest) (*DirectUpload, error) {
	var resp DirectUpload
	if err := c.post(ctx, "/api/uploads/direct", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmUpload makes a transferred object durable server-side. An object
// that reaches its destination but is never confirmed is orphaned.
func (c *Client) ConfirmUpload(ctx context.Context, req ConfirmRequest) (*Resource, error) {
	var resp Resource
	if err := c.post(ctx, "/api/uploads/confirm", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckDuplicates asks whether a matching resource already exists.
func (c *Client) CheckDuplicates(ctx context.Context, req DuplicateCheckRequest) (*DuplicateCheck, error) {
	var resp DuplicateCheck
	if err := c.post(ctx, "/api/uploads/duplicates", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InitMultipart initiates a chunked transfer and returns per-part
// destinations.
func (c *Client) InitMultipart(ctx context.Context, req MultipartInitRequest) (*MultipartInit, error) {
	var resp MultipartInit
	if err := c.post(ctx, "/api/uploads/multipart/init", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteMultipart finalizes a chunked transfer from its ordered completion
// tokens.
func (c *Client) CompleteMultipart(ctx context.Context, req MultipartCompleteRequest) (*Resource, error) {
	var resp Resource
	if err := c.post(ctx, "/api/uploads/multipart/complete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AbortMultipart discards server-side state for an abandoned chunked
// transfer.
func (c *Client) AbortMultipart(ctx context.Context, req MultipartAbortRequest) error {
	return c.post(ctx, "/api/uploads/multipart/abort", req, nil)
}

// UploadToURL PUTs bytes to a pre-authorized destination URL and returns the
// completion token from the response ETag header.
func (c *Client) UploadToURL(ctx context.Context, url string, body io.Reader, size int64, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to build destination request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("destination PUT failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("destination PUT returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	// Direct uploads don't need the token; the chunked executor enforces
	// its presence per part.
	return strings.Trim(resp.Header.Get("ETag"), `"`), nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.sessionToken})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, serverMessage(resp.Body))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}

// serverMessage extracts the backend's error message so it can be surfaced
// verbatim to the caller.
func serverMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
