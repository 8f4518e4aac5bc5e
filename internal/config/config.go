package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	API      API     `yaml:"api"`
	Upload   Upload  `yaml:"upload"`
	Server   Server  `yaml:"server"`
	Storage  Storage `yaml:"storage"`
	LogLevel string  `yaml:"log_level"`
}

// API represents the gallery backend the client talks to
type API struct {
	BaseURL      string `yaml:"base_url"`
	GalleryID    string `yaml:"gallery_id"`
	SessionToken string `yaml:"session_token"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// Upload represents upload pipeline configuration
type Upload struct {
	Concurrency    int    `yaml:"concurrency"`
	ChunkSize      int64  `yaml:"chunk_size"`
	Retries        int    `yaml:"retries"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms"`
	SkipDuplicates bool   `yaml:"skip_duplicates"`
	ShowProgress   bool   `yaml:"show_progress"`
	MetricsAddr    string `yaml:"metrics_addr"`
}

// Server represents the API server configuration
type Server struct {
	Addr           string `yaml:"addr"`
	Database       string `yaml:"database"`
	URLExpiryMin   int    `yaml:"url_expiry_min"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// Storage represents the S3-compatible object store behind the server
type Storage struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// Load loads configuration from file and command line flags
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		API: API{
			TimeoutSec: 60,
		},
		Upload: Upload{
			Concurrency:    3,
			ChunkSize:      10 * 1024 * 1024, // 10MiB
			Retries:        3,
			RetryBackoffMs: 500,
			SkipDuplicates: false,
			ShowProgress:   true,
		},
		Server: Server{
			Addr:           ":8480",
			Database:       "./galerly.db",
			URLExpiryMin:   15,
			MaxUploadBytes: 5 * 1024 * 1024 * 1024, // 5GiB
		},
		Storage: Storage{
			Bucket: "galerly-media",
			Secure: true,
		},
	}

	// Load from YAML file if provided
	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with command line flags
	if err := loadFromFlags(cfg, flags); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	if flags.Changed("api-url") {
		cfg.API.BaseURL, _ = flags.GetString("api-url")
	}
	if flags.Changed("gallery") {
		cfg.API.GalleryID, _ = flags.GetString("gallery")
	}
	if flags.Changed("session-token") {
		cfg.API.SessionToken, _ = flags.GetString("session-token")
	}
	if flags.Changed("timeout") {
		cfg.API.TimeoutSec, _ = flags.GetInt("timeout")
	}

	if flags.Changed("concurrency") {
		cfg.Upload.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("chunk-size") {
		cfg.Upload.ChunkSize, _ = flags.GetInt64("chunk-size")
	}
	if flags.Changed("retries") {
		cfg.Upload.Retries, _ = flags.GetInt("retries")
	}
	if flags.Changed("retry-backoff-ms") {
		cfg.Upload.RetryBackoffMs, _ = flags.GetInt("retry-backoff-ms")
	}
	if flags.Changed("skip-duplicates") {
		cfg.Upload.SkipDuplicates, _ = flags.GetBool("skip-duplicates")
	}
	if flags.Changed("show-progress") {
		cfg.Upload.ShowProgress, _ = flags.GetBool("show-progress")
	}
	if flags.Changed("metrics-addr") {
		cfg.Upload.MetricsAddr, _ = flags.GetString("metrics-addr")
	}

	if flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("db") {
		cfg.Server.Database, _ = flags.GetString("db")
	}
	if flags.Changed("url-expiry-min") {
		cfg.Server.URLExpiryMin, _ = flags.GetInt("url-expiry-min")
	}

	if flags.Changed("s3-endpoint") {
		cfg.Storage.Endpoint, _ = flags.GetString("s3-endpoint")
	}
	if flags.Changed("s3-access-key") {
		cfg.Storage.AccessKey, _ = flags.GetString("s3-access-key")
	}
	if flags.Changed("s3-secret-key") {
		cfg.Storage.SecretKey, _ = flags.GetString("s3-secret-key")
	}
	if flags.Changed("s3-bucket") {
		cfg.Storage.Bucket, _ = flags.GetString("s3-bucket")
	}
	if flags.Changed("s3-secure") {
		cfg.Storage.Secure, _ = flags.GetBool("s3-secure")
	}

	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return nil
}

// Timeout returns the HTTP client timeout for backend calls
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// ValidateUpload validates the configuration needed by the upload command
func (c *Config) ValidateUpload() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base URL is required")
	}
	if c.API.GalleryID == "" {
		return fmt.Errorf("gallery id is required")
	}
	if c.Upload.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Upload.ChunkSize < 5*1024*1024 { // 5MB minimum for S3 parts
		return fmt.Errorf("chunk size must be at least 5MB")
	}
	if c.Upload.Retries <= 0 {
		return fmt.Errorf("retries must be positive")
	}
	return nil
}

// ValidateServe validates the configuration needed by the serve command
func (c *Config) ValidateServe() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Server.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Storage.Endpoint == "" {
		return fmt.Errorf("storage endpoint is required")
	}
	if c.Storage.AccessKey == "" {
		return fmt.Errorf("storage access key is required")
	}
	if c.Storage.SecretKey == "" {
		return fmt.Errorf("storage secret key is required")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	return nil
}
