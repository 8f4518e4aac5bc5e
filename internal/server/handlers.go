package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zaitanabil/galerly-sub009/internal/api"
	"github.com/zaitanabil/galerly-sub009/internal/storage"
	"github.com/zaitanabil/galerly-sub009/internal/store"
)

func (s *Server) handleDirectUpload(c *gin.Context) {
	var req api.DirectUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := s.validateUploadRequest(req.GalleryID, req.Filename, req.FileSize); msg != "" {
		abortError(c, http.StatusBadRequest, msg)
		return
	}

	record := &store.PhotoRecord{
		ID:          uuid.NewString(),
		GalleryID:   req.GalleryID,
		Filename:    req.Filename,
		Size:        req.FileSize,
		ContentType: req.FileType,
		Status:      store.StatusPending,
	}
	record.StorageKey = storageKey(record)

	url, err := s.presigner.PresignPut(c.Request.Context(), record.StorageKey, s.opts.URLExpiry)
	if err != nil {
		s.logger.Error("Failed to presign upload URL", zap.Error(err))
		abortError(c, http.StatusBadGateway, "failed to issue upload destination")
		return
	}

	if err := s.store.CreatePhoto(record); err != nil {
		s.logger.Error("Failed to create photo record", zap.Error(err))
		abortError(c, http.StatusInternalServerError, "failed to create photo record")
		return
	}

	c.JSON(http.StatusOK, api.DirectUpload{
		UploadURL:  url,
		ResourceID: record.ID,
		StorageKey: record.StorageKey,
	})
}

func (s *Server) handleConfirmUpload(c *gin.Context) {
	var req api.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResourceID == "" || req.Digest == "" {
		abortError(c, http.StatusBadRequest, "resource_id and digest are required")
		return
	}

	record, err := s.store.GetPhoto(req.ResourceID)
	if err != nil {
		s.logger.Error("Failed to load photo record", zap.Error(err))
		abortError(c, http.StatusInternalServerError, "failed to load photo record")
		return
	}
	if record == nil {
		abortError(c, http.StatusNotFound, fmt.Sprintf("unknown resource %s", req.ResourceID))
		return
	}

	confirmed, err := s.store.ConfirmPhoto(req.ResourceID, req.Digest)
	if err != nil {
		s.logger.Error("Failed to confirm photo", zap.Error(err))
		abortError(c, http.StatusInternalServerError, "failed to confirm photo")
		return
	}

	c.JSON(http.StatusOK, resourceFromRecord(confirmed))
}

func (s *Server) handleCheckDuplicates(c *gin.Context) {
	var req api.DuplicateCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	records, err := s.store.FindDuplicates(req.GalleryID, req.Filename, req.FileSize)
	if err != nil {
		s.logger.Error("Failed to query duplicates", zap.Error(err))
		abortError(c, http.StatusInternalServerError, "failed to query duplicates")
		return
	}

	matches := make([]api.Resource, 0, len(records))
	for _, r := range records {
		matches = append(matches, resourceFromRecord(r))
	}
	c.JSON(http.StatusOK, api.DuplicateCheck{
		Duplicate: len(matches) > 0,
		Matches:   matches,
	})
}

func (s *Server) handleMultipartInit(c *gin.Context) {
	var req api.MultipartInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := s.validateUploadRequest(req.GalleryID, req.Filename, req.FileSize); msg != "" {
		abortError(c, http.StatusBadRequest, msg)
		return
	}

	record := &store.PhotoRecord{
		ID:          uuid.NewString(),
		GalleryID:   req.GalleryID,
		Filename:    req.Filename,
		Size:        req.FileSize,
		ContentType: req.FileType,
		Status:      store.StatusPending,
	}
	record.StorageKey = storageKey(record)

	ctx := c.Request.Context()
	uploadID, err := s.presigner.InitMultipart(ctx, record.StorageKey, req.FileType)
	if err != nil {
		s.logger.Error("Failed to init multipart upload", zap.Error(err))
		abortError(c, http.StatusBadGateway, "failed to init multipart upload")
		return
	}

	// One destination per part, issued upfront. Part count derives from the
	// same chunk size the client partitions with.
	partCount := int((req.FileSize + s.opts.ChunkSize - 1) / s.opts.ChunkSize)
	parts := make([]api.PartDestination, 0, partCount)
	for n := 1; n <= partCount; n++ {
		url, err := s.presigner.PresignPart(ctx, record.StorageKey, uploadID, n, s.opts.URLExpiry)
		if err != nil {
			s.logger.Error("Failed to presign part URL",
				zap.Int("part", n),
				zap.Error(err))
			s.presigner.AbortMultipart(ctx, record.StorageKey, uploadID)
			abortError(c, http.StatusBadGateway, "failed to issue part destinations")
			return
		}
		parts = append(parts, api.PartDestination{PartNumber: n, URL: url})
	}

	if err := s.store.CreatePhoto(record); err != nil {
		s.logger.Error("Failed to create photo record", zap.Error(err))
		s.presigner.AbortMultipart(ctx, record.StorageKey, uploadID)
		abortError(c, http.StatusInternalServerError, "failed to create photo record")
		return
	}
	if err := s.store.CreateSession(&store.UploadSession{
		UploadID:   uploadID,
		PhotoID:    record.ID,
		StorageKey: record.StorageKey,
		PartCount:  partCount,
	}); err != nil {
		s.logger.Error("Failed to create upload session", zap.Error(err))
		s.presigner.AbortMultipart(ctx, record.StorageKey, uploadID)
		abortError(c, http.StatusInternalServerError, "failed to create upload session")
		return
	}

	c.JSON(http.StatusOK, api.MultipartInit{
		UploadID:   uploadID,
		ResourceID: record.ID,
		StorageKey: record.StorageKey,
		Parts:      parts,
	})
}

func (s *Server) handleMultipartComplete(c *gin.Context) {
	var req api.MultipartCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.store.GetSession(req.UploadID)
	if err != nil {
		s.logger.Error("Failed to load upload session", zap.Error(err))
		abortError(c, http.StatusInternalServerError, "failed to load upload session")
		return
	}
	if session == nil {
		abortError(c, http.StatusNotFound, fmt.Sprintf("unknown upload %s", req.UploadID))
		return
	}
	if len(req.Parts) != session.PartCount {
		abortError(c, http.StatusBadRequest,
			fmt.Sprintf("expected %d parts, got %d", session.PartCount, len(req.Parts)))
		return
	}
	if req.Digest == "" {
		abortError(c, http.StatusBadRequest, "digest is required")
		return
	}

	// Reassembly is strictly ordered by part number regardless of upload
	// order.
	parts := make([]storage.CompletedPart, len(req.Parts))
	for i, p := range req.Parts {
		parts[i] = storage.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })

	if err := s.presigner.CompleteMultipart(c.Request.Context(), session.StorageKey, req.UploadID, parts); err != nil {
		s.logger.Error("Failed to complete multipart upload", zap.Error(err))
		abortError(c, http.StatusBadGateway, "failed to complete multipart upload")
		return
	}

	confirmed, err := s.store.ConfirmPhoto(session.PhotoID, req.Digest)
	if err != nil {
		s.logger.Error("Failed to confirm photo", zap.Error(err))
		abortError(c, http.StatusInternalServerError, "failed to confirm photo")
		return
	}
	if err := s.store.DeleteSession(req.UploadID); err != nil {
		s.logger.Warn("Failed to delete upload session", zap.Error(err))
	}

	c.JSON(http.StatusOK, resourceFromRecord(confirmed))
}

func (s *Server) handleMultipartAbort(c *gin.Context) {
	var req api.MultipartAbortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.store.GetSession(req.UploadID)
	if err != nil {
		s.logger.Error("Failed to load upload session", zap.Error(err))
		abortError(c, http.StatusInternalServerError, "failed to load upload session")
		return
	}
	if session == nil {
		abortError(c, http.StatusNotFound, fmt.Sprintf("unknown upload %s", req.UploadID))
		return
	}

	if err := s.presigner.AbortMultipart(c.Request.Context(), session.StorageKey, req.UploadID); err != nil {
		s.logger.Warn("Failed to abort multipart upload in object store", zap.Error(err))
	}
	if err := s.store.DeleteSession(req.UploadID); err != nil {
		s.logger.Warn("Failed to delete upload session", zap.Error(err))
	}
	if err := s.store.DeletePhoto(session.PhotoID); err != nil {
		s.logger.Warn("Failed to delete pending photo record", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "aborted"})
}

func (s *Server) validateUploadRequest(galleryID, filename string, size int64) string {
	if galleryID == "" {
		return "gallery_id is required"
	}
	if filename == "" {
		return "filename is required"
	}
	if size <= 0 {
		return "file_size must be positive"
	}
	if s.opts.MaxUploadBytes > 0 && size > s.opts.MaxUploadBytes {
		return fmt.Sprintf("file_size %d exceeds limit %d", size, s.opts.MaxUploadBytes)
	}
	return ""
}

func storageKey(r *store.PhotoRecord) string {
	return fmt.Sprintf("galleries/%s/%s/%s", r.GalleryID, r.ID, r.Filename)
}

func resourceFromRecord(r *store.PhotoRecord) api.Resource {
	return api.Resource{
		ID:          r.ID,
		GalleryID:   r.GalleryID,
		Filename:    r.Filename,
		Size:        r.Size,
		ContentType: r.ContentType,
		StorageKey:  r.StorageKey,
		Digest:      r.Digest,
	}
}

func abortError(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
