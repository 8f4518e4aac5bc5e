package api

import "encoding/json"

// Resource is a confirmed photo/video record returned by the backend.
type Resource struct {
	ID          string `json:"id"`
	GalleryID   string `json:"gallery_id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"file_size"`
	ContentType string `json:"file_type"`
	StorageKey  string `json:"storage_key"`
	Digest      string `json:"digest"`
}

// DirectUploadRequest asks the backend for a pre-authorized destination.
type DirectUploadRequest struct {
	GalleryID string `json:"gallery_id"`
	Filename  string `json:"filename"`
	FileSize  int64  `json:"file_size"`
	FileType  string `json:"file_type"`
}

// DirectUpload is the issued destination plus the provisional resource id.
type DirectUpload struct {
	UploadURL  string `json:"upload_url"`
	ResourceID string `json:"resource_id"`
	StorageKey string `json:"storage_key"`
}

// ConfirmRequest makes a transferred object durable and visible server-side.
type ConfirmRequest struct {
	ResourceID string `json:"resource_id"`
	StorageKey string `json:"storage_key"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"file_size"`
	Digest     string `json:"digest"`
}

// DuplicateCheckRequest asks whether a file looks already uploaded.
type DuplicateCheckRequest struct {
	GalleryID string `json:"gallery_id"`
	Filename  string `json:"filename"`
	FileSize  int64  `json:"file_size"`
}

// DuplicateCheck reports matching existing resources.
type DuplicateCheck struct {
	Duplicate bool       `json:"duplicate"`
	Matches   []Resource `json:"matches"`
}

// MultipartInitRequest initiates a chunked transfer.
type MultipartInitRequest struct {
	GalleryID string `json:"gallery_id"`
	Filename  string `json:"filename"`
	FileSize  int64  `json:"file_size"`
	FileType  string `json:"file_type"`
}

// PartDestination is a pre-authorized destination for one part.
type PartDestination struct {
	PartNumber int    `json:"part_number"`
	URL        string `json:"url"`
}

// MultipartInit is the backend's answer to an init request. The canonical
// transfer-id field is "upload_id"; older backends emit
// "multipart_upload_id", which is accepted as a deprecated alias and
// resolved here, at the wire boundary, so business logic only ever sees
// UploadID.
type MultipartInit struct {
	UploadID   string
	ResourceID string
	StorageKey string
	Parts      []PartDestination
}

func (m *MultipartInit) UnmarshalJSON(data []byte) error {
	var raw struct {
		UploadID          string            `json:"upload_id"`
		MultipartUploadID string            `json:"multipart_upload_id"` // deprecated alias
		ResourceID        string            `json:"resource_id"`
		StorageKey        string            `json:"storage_key"`
		Parts             []PartDestination `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.UploadID = raw.UploadID
	if m.UploadID == "" {
		m.UploadID = raw.MultipartUploadID
	}
	m.ResourceID = raw.ResourceID
	m.StorageKey = raw.StorageKey
	m.Parts = raw.Parts
	return nil
}

func (m MultipartInit) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		UploadID   string            `json:"upload_id"`
		ResourceID string            `json:"resource_id"`
		StorageKey string            `json:"storage_key"`
		Parts      []PartDestination `json:"parts"`
	}{m.UploadID, m.ResourceID, m.StorageKey, m.Parts})
}

// CompletedPart pairs a part number with the completion token returned by
// the object store for that part.
type CompletedPart struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"completion_token"`
}

// MultipartCompleteRequest finalizes a chunked transfer. Parts must be
// ordered by part number; the backend reassembles strictly by that order.
type MultipartCompleteRequest struct {
	UploadID   string          `json:"upload_id"`
	ResourceID string          `json:"resource_id"`
	StorageKey string          `json:"storage_key"`
	Parts      []CompletedPart `json:"parts"`
	Digest     string          `json:"digest"`
}

// MultipartAbortRequest discards server-side state for a transfer that will
// not be retried.
type MultipartAbortRequest struct {
	UploadID   string `json:"upload_id"`
	ResourceID string `json:"resource_id"`
}
