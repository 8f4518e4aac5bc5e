package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 60, cfg.API.TimeoutSec)
	assert.Equal(t, 3, cfg.Upload.Concurrency)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.ChunkSize)
	assert.Equal(t, 3, cfg.Upload.Retries)
	assert.Equal(t, 500, cfg.Upload.RetryBackoffMs)
	assert.True(t, cfg.Upload.ShowProgress)
	assert.False(t, cfg.Upload.SkipDuplicates)
	assert.Equal(t, ":8480", cfg.Server.Addr)
	assert.Equal(t, "galerly-media", cfg.Storage.Bucket)
}

func TestLoadFromFile(t *testing.T) {
	content := `
api:
  base_url: https://gallery.example.com
  gallery_id: g-42
upload:
  concurrency: 8
  chunk_size: 5242880
log_level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://gallery.example.com", cfg.API.BaseURL)
	assert.Equal(t, "g-42", cfg.API.GalleryID)
	assert.Equal(t, 8, cfg.Upload.Concurrency)
	assert.Equal(t, int64(5242880), cfg.Upload.ChunkSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched sections keep their defaults
	assert.Equal(t, 3, cfg.Upload.Retries)
	assert.Equal(t, ":8480", cfg.Server.Addr)
}

func TestFlagsOverrideFile(t *testing.T) {
	content := `
api:
  base_url: https://from-file.example.com
upload:
  concurrency: 8
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api-url", "", "")
	flags.Int("concurrency", 0, "")
	flags.String("gallery", "", "")
	require.NoError(t, flags.Parse([]string{"--api-url=https://from-flag.example.com", "--gallery=g-1"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "https://from-flag.example.com", cfg.API.BaseURL, "changed flag wins over file")
	assert.Equal(t, "g-1", cfg.API.GalleryID)
	assert.Equal(t, 8, cfg.Upload.Concurrency, "unchanged flag leaves file value alone")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidateUpload(t *testing.T) {
	valid := func() *Config {
		cfg, _ := Load("", nil)
		cfg.API.BaseURL = "https://gallery.example.com"
		cfg.API.GalleryID = "g-1"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().ValidateUpload())
	})

	t.Run("missing base url", func(t *testing.T) {
		cfg := valid()
		cfg.API.BaseURL = ""
		assert.Error(t, cfg.ValidateUpload())
	})

	t.Run("missing gallery", func(t *testing.T) {
		cfg := valid()
		cfg.API.GalleryID = ""
		assert.Error(t, cfg.ValidateUpload())
	})

	t.Run("chunk below part minimum", func(t *testing.T) {
		cfg := valid()
		cfg.Upload.ChunkSize = 1024
		assert.Error(t, cfg.ValidateUpload())
	})

	t.Run("zero concurrency", func(t *testing.T) {
		cfg := valid()
		cfg.Upload.Concurrency = 0
		assert.Error(t, cfg.ValidateUpload())
	})
}

func TestValidateServe(t *testing.T) {
	valid := func() *Config {
		cfg, _ := Load("", nil)
		cfg.Storage.Endpoint = "localhost:9000"
		cfg.Storage.AccessKey = "ak"
		cfg.Storage.SecretKey = "sk"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().ValidateServe())
	})

	t.Run("missing endpoint", func(t *testing.T) {
		cfg := valid()
		cfg.Storage.Endpoint = ""
		assert.Error(t, cfg.ValidateServe())
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := valid()
		cfg.Storage.SecretKey = ""
		assert.Error(t, cfg.ValidateServe())
	})
}
