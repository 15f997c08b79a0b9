package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/database"
	"github.com/vodarr/vodarr/internal/ffmpeg"
	internalhttp "github.com/vodarr/vodarr/internal/http"
	"github.com/vodarr/vodarr/internal/http/handlers"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/service"
	"github.com/vodarr/vodarr/internal/streaming"
	"github.com/vodarr/vodarr/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vodarr server",
	Long: `Start the vodarr HTTP server and API.

The server provides:
- REST API for playback negotiation, transcode jobs, and sessions
- Raw media routes for byte serving, remuxing, and HLS delivery
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8096, "Port to listen on")
	serveCmd.Flags().String("database", "vodarr.db", "Database DSN")
	serveCmd.Flags().String("data-dir", "data", "Data directory for transcode and session files")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
	mustBindPFlag("storage.data_dir", serveCmd.Flags().Lookup("data-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.Storage.DataDir, cfg.Storage.TranscodeDir, cfg.Storage.HLSDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	// Database
	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	fileRepo := repository.NewMediaFileRepository(db.DB)
	jobRepo := repository.NewTranscodeJobRepository(db.DB)

	// Pipeline binaries
	detector := ffmpeg.NewBinaryDetector().
		WithPaths(cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath)

	binInfo, err := detector.Detect(cmd.Context())
	if err != nil {
		return fmt.Errorf("detecting ffmpeg: %w", err)
	}
	logger.Info("ffmpeg detected",
		slog.String("version", binInfo.Version),
		slog.String("ffmpeg", binInfo.FFmpegPath),
		slog.String("ffprobe", binInfo.FFprobePath),
	)

	prober := ffmpeg.NewProber(binInfo.FFprobePath)
	launcher := streaming.NewPipelineLauncher(binInfo.FFmpegPath, cfg.Streaming.ShutdownGrace, logger)

	// Core services
	library := service.NewLibraryService(fileRepo, logger)
	classifier := streaming.NewClassifier(prober, fileRepo, logger)

	jobManager := streaming.NewJobManager(jobRepo, fileRepo, launcher, cfg.Storage.TranscodeDir, cfg.Streaming.Presets, logger)
	hlsManager := streaming.NewHLSManager(launcher, cfg.Storage.HLSDir, cfg.Streaming, cfg.Streaming.Presets["720p"], logger)
	directManager := streaming.NewDirectPlayManager(cfg.Streaming.HeartbeatTTL, logger)
	router := streaming.NewRouter(classifier, hlsManager, logger)

	// Jobs orphaned by a previous run fail now rather than sitting in
	// transcoding forever.
	if err := jobManager.RecoverOrphans(cmd.Context()); err != nil {
		return fmt.Errorf("recovering orphaned jobs: %w", err)
	}

	reaper, err := streaming.NewCacheReaper(jobRepo, cfg.Streaming.CacheLimit, cfg.Streaming.ReaperSchedule, logger)
	if err != nil {
		return fmt.Errorf("initializing cache reaper: %w", err)
	}
	reaper.Start()
	defer reaper.Stop()

	// HTTP server
	serverConfig := internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	healthHandler := handlers.NewHealthHandler(version.Version).
		WithDB(db.DB).
		WithBinaryDetector(detector).
		WithManagers(jobManager, hlsManager)
	healthHandler.Register(server.API())

	libraryHandler := handlers.NewLibraryHandler(library)
	libraryHandler.Register(server.API())

	playbackHandler := handlers.NewPlaybackHandler(library, classifier)
	playbackHandler.Register(server.API())

	transcodeHandler := handlers.NewTranscodeHandler(jobManager, logger)
	transcodeHandler.Register(server.API())
	transcodeHandler.RegisterRoutes(server.Router())

	sessionsHandler := handlers.NewSessionsHandler(library, hlsManager, directManager)
	sessionsHandler.Register(server.API())

	streamHandler := handlers.NewStreamHandler(library, router, detector, logger)
	streamHandler.RegisterRoutes(server.Router())

	hlsHandler := handlers.NewHLSHandler(hlsManager, logger)
	hlsHandler.RegisterRoutes(server.Router())

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting vodarr server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
	)

	serveErr := server.ListenAndServe(ctx)

	// Stop pipelines after the listener closes; in-flight jobs are
	// recovered as failed on the next boot.
	hlsManager.StopAll()
	directManager.Shutdown()
	jobManager.Shutdown()

	return serveErr
}
