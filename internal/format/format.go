// Package format detects non-web-safe image containers and normalizes them
// to a universally displayable format before transfer.
package format

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// supportedExtensions lists the media types galleries accept.
var supportedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
}

// IsSupported reports whether the filename has a supported media extension.
func IsSupported(filename string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// TypeForName returns the MIME type hint for a filename, falling back to
// application/octet-stream for unknown extensions.
func TypeForName(filename string) string {
	if t, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return "application/octet-stream"
}

// Converter converts a HEIC/HEIF file to JPEG and returns the path of the
// converted file. Implementations are optional; a nil converter means
// originals are uploaded as-is.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// File describes the normalized input handed to the rest of the pipeline.
type File struct {
	Path        string
	Filename    string
	Size        int64
	ContentType string
	Converted   bool
}

// Normalizer converts non-web-safe containers ahead of upload. Conversion
// failure is non-fatal: the original file is used instead.
type Normalizer struct {
	converter Converter
	logger    *zap.Logger
}

// NewNormalizer creates a normalizer with an optional converter.
func NewNormalizer(converter Converter, logger *zap.Logger) *Normalizer {
	return &Normalizer{converter: converter, logger: logger}
}

// Normalize returns the file to upload. HEIC/HEIF inputs are converted to
// JPEG when a converter is available; everything else passes through
// unchanged. The returned filename carries the extension matching the actual
// content, so a converted IMG_0001.heic becomes IMG_0001.jpg.
func (n *Normalizer) Normalize(ctx context.Context, path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat file: %w", err)
	}

	filename := filepath.Base(path)
	out := File{
		Path:        path,
		Filename:    filename,
		Size:        info.Size(),
		ContentType: TypeForName(filename),
	}

	if !isHEIC(path) {
		return out, nil
	}

	if n.converter == nil {
		n.logger.Debug("No HEIC converter configured, uploading original",
			zap.String("file", filename))
		return out, nil
	}

	converted, err := n.converter.Convert(ctx, path)
	if err != nil {
		// The backend may still accept the original container.
		n.logger.Warn("HEIC conversion failed, falling back to original file",
			zap.String("file", filename),
			zap.Error(err),
		)
		return out, nil
	}

	convInfo, err := os.Stat(converted)
	if err != nil {
		n.logger.Warn("Converted file unreadable, falling back to original file",
			zap.String("file", filename),
			zap.Error(err),
		)
		return out, nil
	}

	ext := filepath.Ext(filename)
	out.Path = converted
	out.Filename = strings.TrimSuffix(filename, ext) + ".jpg"
	out.Size = convInfo.Size()
	out.ContentType = "image/jpeg"
	out.Converted = true
	return out, nil
}

// isHEIC checks both the extension and the container magic, since phone
// exports frequently arrive with a generic or wrong extension.
func isHEIC(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic", ".heif":
		return true
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	return mtype.Is("image/heic") || mtype.Is("image/heif") ||
		mtype.Is("image/heic-sequence") || mtype.Is("image/heif-sequence")
}
