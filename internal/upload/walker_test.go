package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExpandIncludesExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	jpg := filepath.Join(dir, "a.jpg")
	txt := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(jpg, make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(txt, make([]byte, 50), 0o644))

	w := NewWalker(zap.NewNop())
	paths, total, err := w.Expand([]string{jpg, txt})
	require.NoError(t, err)

	assert.Equal(t, []string{jpg, txt}, paths, "named files included even when unsupported")
	assert.Equal(t, int64(150), total)
}

func TestExpandWalksDirectoriesFilteringUnsupported(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), make([]byte, 10), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), make([]byte, 99), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.png"), make([]byte, 20), 0o644))

	w := NewWalker(zap.NewNop())
	paths, total, err := w.Expand([]string{dir})
	require.NoError(t, err)

	assert.Len(t, paths, 2, "unsupported directory entries filtered")
	assert.Equal(t, int64(30), total)
	for _, p := range paths {
		assert.NotContains(t, p, "skip.txt")
	}
}

func TestExpandMissingPath(t *testing.T) {
	w := NewWalker(zap.NewNop())
	_, _, err := w.Expand([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestExpandMixedArgs(t *testing.T) {
	dir := t.TempDir()
	loose := filepath.Join(dir, "loose.mov")
	album := filepath.Join(dir, "album")
	require.NoError(t, os.MkdirAll(album, 0o755))
	require.NoError(t, os.WriteFile(loose, make([]byte, 5), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(album, "c.webp"), make([]byte, 7), 0o644))

	w := NewWalker(zap.NewNop())
	paths, total, err := w.Expand([]string{loose, album})
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	assert.Equal(t, int64(12), total)
}
