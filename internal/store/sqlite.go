package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db      *sql.DB
	closed  bool
	writeMu sync.Mutex
}

// NewSQLiteStore creates a new SQLite photo store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite for concurrent access
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=2000&_foreign_keys=on&_busy_timeout=60000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		gallery_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		file_type TEXT NOT NULL,
		storage_key TEXT NOT NULL,
		digest TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_photos_gallery ON photos(gallery_id);
	CREATE INDEX IF NOT EXISTS idx_photos_dup ON photos(gallery_id, filename, file_size);
	CREATE INDEX IF NOT EXISTS idx_photos_status ON photos(status);

	CREATE TABLE IF NOT EXISTS upload_sessions (
		upload_id TEXT PRIMARY KEY,
		photo_id TEXT NOT NULL,
		storage_key TEXT NOT NULL,
		part_count INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(query)
	return err
}

// CreatePhoto inserts a new photo record in pending state.
func (s *SQLiteStore) CreatePhoto(record *PhotoRecord) error {
	if s.closed {
		return fmt.Errorf("database store is closed")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = StatusPending
	}

	return s.retryOnBusy(func() error {
		_, err := s.db.Exec(`
		INSERT INTO photos (id, gallery_id, filename, file_size, file_type, storage_key, digest, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, record.GalleryID, record.Filename, record.Size, record.ContentType,
			record.StorageKey, record.Digest, record.Status, record.CreatedAt, record.UpdatedAt,
		)
		return err
	})
}

// GetPhoto retrieves a photo record by id. Returns nil when absent.
func (s *SQLiteStore) GetPhoto(id string) (*PhotoRecord, error) {
	if s.closed {
		return nil, fmt.Errorf("database store is closed")
	}

	var result *PhotoRecord
	err := s.retryOnBusy(func() error {
		var err error
		result, err = s.getPhotoInternal(id)
		return err
	})
	return result, err
}

func (s *SQLiteStore) getPhotoInternal(id string) (*PhotoRecord, error) {
	row := s.db.QueryRow(`
	SELECT id, gallery_id, filename, file_size, file_type, storage_key, digest, status, created_at, updated_at
	FROM photos WHERE id = ?`, id)

	var record PhotoRecord
	var digest sql.NullString

	err := row.Scan(
		&record.ID,
		&record.GalleryID,
		&record.Filename,
		&record.Size,
		&record.ContentType,
		&record.StorageKey,
		&digest,
		&record.Status,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if digest.Valid {
		record.Digest = digest.String
	}
	return &record, nil
}

// ConfirmPhoto marks a pending record as confirmed and stores its digest.
func (s *SQLiteStore) ConfirmPhoto(id, digest string) (*PhotoRecord, error) {
	if s.closed {
		return nil, fmt.Errorf("database store is closed")
	}

	s.writeMu.Lock()
	err := s.retryOnBusy(func() error {
		res, err := s.db.Exec(`
		UPDATE photos SET status = ?, digest = ?, updated_at = ? WHERE id = ?`,
			StatusConfirmed, digest, time.Now().UTC(), id,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("photo %s not found", id)
		}
		return nil
	})
	s.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	return s.GetPhoto(id)
}

// DeletePhoto removes a photo record.
func (s *SQLiteStore) DeletePhoto(id string) error {
	if s.closed {
		return fmt.Errorf("database store is closed")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.retryOnBusy(func() error {
		_, err := s.db.Exec(`DELETE FROM photos WHERE id = ?`, id)
		return err
	})
}

// FindDuplicates returns confirmed records in the gallery matching filename
// and size.
func (s *SQLiteStore) FindDuplicates(galleryID, filename string, size int64) ([]*PhotoRecord, error) {
	if s.closed {
		return nil, fmt.Errorf("database store is closed")
	}

	var result []*PhotoRecord
	err := s.retryOnBusy(func() error {
		rows, err := s.db.Query(`
		SELECT id, gallery_id, filename, file_size, file_type, storage_key, digest, status, created_at, updated_at
		FROM photos WHERE gallery_id = ? AND filename = ? AND file_size = ? AND status = ?`,
			galleryID, filename, size, StatusConfirmed,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			var record PhotoRecord
			var digest sql.NullString
			if err := rows.Scan(
				&record.ID, &record.GalleryID, &record.Filename, &record.Size, &record.ContentType,
				&record.StorageKey, &digest, &record.Status, &record.CreatedAt, &record.UpdatedAt,
			); err != nil {
				return err
			}
			if digest.Valid {
				record.Digest = digest.String
			}
			result = append(result, &record)
		}
		return rows.Err()
	})
	return result, err
}

// CreateSession records an open multipart transfer.
func (s *SQLiteStore) CreateSession(session *UploadSession) error {
	if s.closed {
		return fmt.Errorf("database store is closed")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	session.CreatedAt = time.Now().UTC()
	return s.retryOnBusy(func() error {
		_, err := s.db.Exec(`
		INSERT INTO upload_sessions (upload_id, photo_id, storage_key, part_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
			session.UploadID, session.PhotoID, session.StorageKey, session.PartCount, session.CreatedAt,
		)
		return err
	})
}

// GetSession retrieves an open session by upload id. Returns nil when absent.
func (s *SQLiteStore) GetSession(uploadID string) (*UploadSession, error) {
	if s.closed {
		return nil, fmt.Errorf("database store is closed")
	}

	var result *UploadSession
	err := s.retryOnBusy(func() error {
		row := s.db.QueryRow(`
		SELECT upload_id, photo_id, storage_key, part_count, created_at
		FROM upload_sessions WHERE upload_id = ?`, uploadID)

		var session UploadSession
		err := row.Scan(&session.UploadID, &session.PhotoID, &session.StorageKey, &session.PartCount, &session.CreatedAt)
		if err == sql.ErrNoRows {
			result = nil
			return nil
		}
		if err != nil {
			return err
		}
		result = &session
		return nil
	})
	return result, err
}

// DeleteSession removes a session after complete or abort.
func (s *SQLiteStore) DeleteSession(uploadID string) error {
	if s.closed {
		return fmt.Errorf("database store is closed")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.retryOnBusy(func() error {
		_, err := s.db.Exec(`DELETE FROM upload_sessions WHERE upload_id = ?`, uploadID)
		return err
	})
}

// retryOnBusy retries an operation when SQLite reports lock contention.
func (s *SQLiteStore) retryOnBusy(op func() error) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		msg := strings.ToLower(err.Error())
		if !strings.Contains(msg, "busy") && !strings.Contains(msg, "locked") {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
