package store

import (
	"time"
)

// PhotoStatus tracks whether an upload has been finalized.
type PhotoStatus string

const (
	// StatusPending means a destination was issued but the upload is not
	// yet confirmed; the object may be orphaned.
	StatusPending PhotoStatus = "pending"
	// StatusConfirmed means the confirm/complete handshake finished and the
	// record is visible to clients.
	StatusConfirmed PhotoStatus = "confirmed"
)

// PhotoRecord is one photo/video row.
type PhotoRecord struct {
	ID          string      `json:"id"`
	GalleryID   string      `json:"gallery_id"`
	Filename    string      `json:"filename"`
	Size        int64       `json:"file_size"`
	ContentType string      `json:"file_type"`
	StorageKey  string      `json:"storage_key"`
	Digest      string      `json:"digest,omitempty"`
	Status      PhotoStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// UploadSession is an open multipart transfer.
type UploadSession struct {
	UploadID   string    `json:"upload_id"`
	PhotoID    string    `json:"photo_id"`
	StorageKey string    `json:"storage_key"`
	PartCount  int       `json:"part_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the interface for photo-record persistence
type Store interface {
	// Photo operations
	CreatePhoto(record *PhotoRecord) error
	GetPhoto(id string) (*PhotoRecord, error)
	ConfirmPhoto(id, digest string) (*PhotoRecord, error)
	DeletePhoto(id string) error
	FindDuplicates(galleryID, filename string, size int64) ([]*PhotoRecord, error)

	// Multipart session operations
	CreateSession(session *UploadSession) error
	GetSession(uploadID string) (*UploadSession, error)
	DeleteSession(uploadID string) error

	// Cleanup
	Close() error
}
