package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/article-generation-api/internal/api"
	"github.com/article-generation-api/internal/config"
	"github.com/article-generation-api/internal/database"
	"github.com/article-generation-api/internal/events"
	"github.com/article-generation-api/internal/generator"
	"github.com/article-generation-api/internal/images"
	"github.com/article-generation-api/internal/repository"
	"github.com/article-generation-api/internal/service"
	"github.com/article-generation-api/internal/store"
	"github.com/article-generation-api/pkg/logger"
	"github.com/article-generation-api/pkg/tracing"
	"github.com/rs/zerolog"
	cli "github.com/urfave/cli/v3"
)

func serve(ctx context.Context, cmd *cli.Command) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	log := logger.New(cfg.Log)
	log.Info().Msg("Starting Article Generation API server...")

	// Tracing
	tracer, shutdownTracing, err := tracing.New(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to flush traces")
		}
	}()

	// Article store, optionally backed by postgres
	var (
		db     *database.DB
		health api.HealthChecker
		opts   []store.Option
	)
	if cfg.Database.Driver == config.DriverPostgres {
		db, err = database.New(&cfg.Database, log)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.RunMigrations(cmd.String("migrations-path")); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}

		repos := repository.New(db)
		opts = append(opts, store.WithRepository(repos.Article))
		health = db
	}

	st := store.New(log, opts...)
	if err := st.Load(ctx); err != nil {
		return err
	}
	if ids := st.RecoverInterrupted(); len(ids) > 0 {
		log.Warn().Int("count", len(ids)).Msg("Marked interrupted generations as failed")
	}

	gen, err := newGenerator(cfg, log)
	if err != nil {
		return err
	}

	fileStorage, err := newFileStorage(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Initialize services
	services := service.NewServices(service.Dependencies{
		Store:     st,
		Generator: gen,
		Images:    images.NewTracker(fileStorage, cfg.Images.MaxUploadSize, log),
		Publisher: publisher,
		Tracer:    tracer,
	}, cfg, log)

	// Initialize router
	router := api.NewRouter(services, cfg, log, health)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop generation; in-flight articles are recorded as failed
	if err := services.Generation.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Generation tasks did not finish in time")
	}

	// Flush pending repository writes
	st.Close()

	log.Info().Msg("Server exited gracefully")
	return nil
}

func newGenerator(cfg *config.Config, log zerolog.Logger) (generator.Generator, error) {
	switch cfg.Generation.Provider {
	case config.ProviderLLM:
		gen, err := generator.NewLLM(cfg.Generation.LLM, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize llm generator: %w", err)
		}
		return gen, nil
	default:
		log.Info().Dur("delay", cfg.Generation.TemplateDelay).Msg("Using template generator")
		return generator.NewTemplate(cfg.Generation.TemplateDelay), nil
	}
}

func newFileStorage(ctx context.Context, cfg *config.Config) (images.FileStorage, error) {
	switch cfg.Images.Storage {
	case config.ImageStorageS3:
		storage, err := images.NewS3Storage(ctx, cfg.Images)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		return storage, nil
	default:
		storage, err := images.NewLocalStorage(cfg.Images.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize upload directory: %w", err)
		}
		return storage, nil
	}
}

func newPublisher(cfg *config.Config, log zerolog.Logger) (events.Publisher, error) {
	if cfg.Events.RedisAddr == "" {
		return events.NopPublisher{}, nil
	}
	publisher, err := events.NewRedisPublisher(cfg.Events, log)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}
