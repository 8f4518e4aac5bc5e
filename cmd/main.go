package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zaitanabil/galerly-sub009/internal/api"
	"github.com/zaitanabil/galerly-sub009/internal/config"
	"github.com/zaitanabil/galerly-sub009/internal/format"
	"github.com/zaitanabil/galerly-sub009/internal/logger"
	"github.com/zaitanabil/galerly-sub009/internal/metrics"
	"github.com/zaitanabil/galerly-sub009/internal/progress"
	"github.com/zaitanabil/galerly-sub009/internal/retry"
	"github.com/zaitanabil/galerly-sub009/internal/server"
	"github.com/zaitanabil/galerly-sub009/internal/storage"
	"github.com/zaitanabil/galerly-sub009/internal/store"
	"github.com/zaitanabil/galerly-sub009/internal/upload"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "galerly",
	Short: "Photo gallery upload pipeline",
	Long:  `Uploads photos and videos to galerly galleries with duplicate detection, chunked transfer for large files and resumable-by-abort multipart handling, and serves the upload API backing it.`,
}

var uploadCmd = &cobra.Command{
	Use:   "upload [files or directories...]",
	Short: "Upload files to a gallery",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload API server",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug/info/warn/error)")

	uploadCmd.Flags().String("api-url", "", "Gallery API base URL")
	uploadCmd.Flags().String("gallery", "", "Target gallery id (required)")
	uploadCmd.Flags().String("session-token", "", "Session token for backend auth")
	uploadCmd.Flags().Int("timeout", 60, "HTTP timeout in seconds")
	uploadCmd.Flags().Int("concurrency", 3, "Number of concurrent uploads")
	uploadCmd.Flags().Int64("chunk-size", upload.DefaultChunkSize, "Chunked transfer threshold and part size in bytes")
	uploadCmd.Flags().Int("retries", 3, "Maximum retry attempts per network call")
	uploadCmd.Flags().Int("retry-backoff-ms", 500, "Initial retry backoff in milliseconds")
	uploadCmd.Flags().Bool("skip-duplicates", false, "Skip files the backend reports as already uploaded")
	uploadCmd.Flags().Bool("show-progress", true, "Show progress display")
	uploadCmd.Flags().String("metrics-addr", "", "Expose Prometheus metrics on this address (disabled when empty)")

	serveCmd.Flags().String("addr", ":8480", "Listen address")
	serveCmd.Flags().String("db", "./galerly.db", "Photo record database file")
	serveCmd.Flags().Int("url-expiry-min", 15, "Presigned URL expiry in minutes")
	serveCmd.Flags().String("s3-endpoint", "", "Object store endpoint")
	serveCmd.Flags().String("s3-access-key", "", "Object store access key")
	serveCmd.Flags().String("s3-secret-key", "", "Object store secret key")
	serveCmd.Flags().String("s3-bucket", "galerly-media", "Object store bucket")
	serveCmd.Flags().Bool("s3-secure", true, "Use HTTPS for the object store")

	rootCmd.AddCommand(uploadCmd, serveCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateUpload(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := signalContext(log)
	defer cancel()

	client := api.NewClient(cfg.API.BaseURL, cfg.API.SessionToken, cfg.Timeout())
	retrier := retry.New(cfg.Upload.Retries, time.Duration(cfg.Upload.RetryBackoffMs)*time.Millisecond, log)
	normalizer := format.NewNormalizer(nil, log)
	collector := metrics.New()

	if cfg.Upload.MetricsAddr != "" {
		go func() {
			if err := collector.StartServer(cfg.Upload.MetricsAddr); err != nil {
				log.Error("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	scheduler := upload.NewScheduler(upload.Options{
		GalleryID:      cfg.API.GalleryID,
		Concurrency:    cfg.Upload.Concurrency,
		ChunkSize:      cfg.Upload.ChunkSize,
		SkipDuplicates: cfg.Upload.SkipDuplicates,
	}, client, client, normalizer, retrier, collector, log)

	walker := upload.NewWalker(log)
	paths, totalBytes, err := walker.Expand(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Info("Nothing to upload")
		return nil
	}

	log.Info("Starting upload",
		zap.String("gallery", cfg.API.GalleryID),
		zap.Int("files", len(paths)),
		zap.String("total_size", progress.FormatBytes(totalBytes)),
		zap.Int("concurrency", cfg.Upload.Concurrency),
	)

	tracker := progress.NewTracker()
	tracker.SetTotal(len(paths), totalBytes)

	var display *progress.Display
	if cfg.Upload.ShowProgress && progress.IsTerminalSupported() {
		display = progress.NewDisplay(tracker, 2*time.Second)
		display.Start()
	}

	var failures []string
	completed, err := scheduler.Submit(ctx, paths, upload.Callbacks{
		OnProgress: tracker.Update,
		OnError: func(msg string) {
			failures = append(failures, msg)
		},
	})

	if display != nil {
		display.Stop()
	}
	if err != nil {
		return err
	}

	for _, msg := range failures {
		log.Error("Upload failed", zap.String("file_error", msg))
	}
	log.Info("Upload finished",
		zap.Int("uploaded", len(completed)),
		zap.Int("failed", len(failures)),
	)
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d files failed", len(failures), len(paths))
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := signalContext(log)
	defer cancel()

	st, err := store.NewSQLiteStore(cfg.Server.Database)
	if err != nil {
		return fmt.Errorf("failed to open photo store: %w", err)
	}
	defer st.Close()

	presigner, err := storage.NewMinIOPresigner(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Secure:    cfg.Storage.Secure,
	})
	if err != nil {
		return fmt.Errorf("failed to create object store client: %w", err)
	}

	srv := server.New(server.Options{
		Addr:           cfg.Server.Addr,
		URLExpiry:      time.Duration(cfg.Server.URLExpiryMin) * time.Minute,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ChunkSize:      cfg.Upload.ChunkSize,
	}, st, presigner, log)

	return srv.Run(ctx)
}

func signalContext(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Received shutdown signal, gracefully stopping...")
		cancel()
	}()

	return ctx, cancel
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
