package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/rs/cors"

	"github.com/bisicus/segreteriacanti-api/internal/api"
	"github.com/bisicus/segreteriacanti-api/internal/archive"
	"github.com/bisicus/segreteriacanti-api/internal/assets"
	"github.com/bisicus/segreteriacanti-api/internal/config"
	"github.com/bisicus/segreteriacanti-api/internal/db"
	"github.com/bisicus/segreteriacanti-api/internal/export"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
	"github.com/bisicus/segreteriacanti-api/internal/middleware"
	"github.com/bisicus/segreteriacanti-api/internal/repository"
	"github.com/bisicus/segreteriacanti-api/internal/storage"
	"github.com/bisicus/segreteriacanti-api/internal/tracing"
)

func main() {
	cfg, err := config.Load(config.Flags("server"), os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(cfg.Tracing, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("Flushing trace spans failed", "error", err)
		}
	}()

	// Run migrations
	if cfg.Database.Migrate {
		if err := db.RunMigrations(cfg.Database, logger); err != nil {
			return err
		}
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	// Create repositories
	repos := archive.Repositories{
		Songs:        repository.NewSongRepository(conn.Pool),
		Authors:      repository.NewAuthorRepository(conn.Pool),
		Recordings:   repository.NewRecordingRepository(conn.Pool),
		Events:       repository.NewEventRepository(conn.Pool),
		Deeds:        repository.NewDeedRepository(conn.Pool),
		Moments:      repository.NewMomentRepository(conn.Pool),
		Translations: repository.NewTranslationRepository(conn.Pool),
	}

	archiveService := archive.NewService(repos, filter.New(cfg.Filters))
	assetsService := assets.NewService(repos.Songs, repos.Recordings, repos.Translations, store,
		assets.WithFilenameSeparator(cfg.Translations.FilenameSeparator))
	exportService := export.NewService(archiveService)

	router := api.NewRouter(api.Deps{
		Archive: archiveService,
		Assets:  assetsService,
		Export:  exportService,
		Store:   store,
		Uploads: cfg.Uploads,
		Ping:    conn.Ping,
	})

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader},
	})

	handler := middleware.Chain(router,
		corsHandler.Handler,
		middleware.RequestContext(logger),
		middleware.LoggingMiddleware,
		middleware.Recover,
		middleware.DataLoaderMiddleware(repos.LoaderSources()),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	logger.Info("Server exited")
	return nil
}
