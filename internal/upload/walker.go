package upload

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/zaitanabil/galerly-sub009/internal/format"
)

// Walker expands the caller's path arguments into the flat file list a
// batch is built from.
type Walker struct {
	logger *zap.Logger
}

// NewWalker creates a walker.
func NewWalker(logger *zap.Logger) *Walker {
	return &Walker{logger: logger}
}

// Expand resolves files and directories into upload candidates. Directories
// are walked recursively and unsupported entries are silently filtered;
// explicitly named files are always included, so an unsupported one surfaces
// as a per-task validation error instead of vanishing. Returns the paths and
// the total byte count for progress totals.
func (w *Walker) Expand(args []string) ([]string, int64, error) {
	var paths []string
	var totalBytes int64

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to stat %s: %w", arg, err)
		}

		if !info.IsDir() {
			paths = append(paths, arg)
			totalBytes += info.Size()
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if !format.IsSupported(d.Name()) {
				w.logger.Debug("Skipping unsupported file", zap.String("path", path))
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			paths = append(paths, path)
			totalBytes += fi.Size()
			return nil
		})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}

	return paths, totalBytes, nil
}

func baseName(path string) string {
	return filepath.Base(path)
}
