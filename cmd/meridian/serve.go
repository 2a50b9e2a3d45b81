package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/UnknownOlympus/meridian/internal/api"
	"github.com/UnknownOlympus/meridian/internal/cache"
	"github.com/UnknownOlympus/meridian/internal/config"
	"github.com/UnknownOlympus/meridian/internal/geocoding"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/repository"
	"github.com/UnknownOlympus/meridian/internal/service"
	"github.com/UnknownOlympus/meridian/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	// googleRateLimit is the request budget per second for the Google provider.
	googleRateLimit = 50
)

var errUnknownStorage = errors.New("unknown storage backend")

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and the monitoring server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := loadConfig(os.Stdout)
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Create a separate registry for metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	// Initialize the database connection.
	dtb, err := repository.NewDatabase(
		ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer dtb.Close()

	repo := repository.NewRepository(dtb, logger)
	if err = repo.EnsureSchema(ctx); err != nil {
		return err
	}

	images, err := newImageStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Image store initialized", "backend", cfg.Storage.Backend)

	listCache, closeCache, err := newCache(ctx, cfg.Cache, logger, appMetrics)
	if err != nil {
		return err
	}
	defer closeCache()

	// Create geocoding provider using factory pattern based on configuration.
	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Geocoder.Provider),
		APIKey:    cfg.Geocoder.APIKey,
		RateLimit: googleRateLimit,
		BaseURL:   cfg.Geocoder.BaseURL,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create geocoding provider: %w", err)
	}
	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Geocoder.Provider)
	geoService := service.NewGeocodingService(logger, geoProvider, cfg.Geocoder.Provider, appMetrics, listCache)

	server := api.NewServer(logger, repo, images, geoService, listCache, appMetrics)
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      server.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	monitoring := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HealthPort),
		Handler:      newMonitoringHandler(logger, reg, dtb),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return listen(gctx, logger, "api", apiServer) })
	group.Go(func() error { return listen(gctx, logger, "monitoring", monitoring) })
	if err = group.Wait(); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Application stopped gracefully.")
	return nil
}

// listen runs server until ctx is done, then shuts it down gracefully.
func listen(ctx context.Context, log *slog.Logger, name string, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "Starting server", "name", name, "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server failed: %w", name, err)
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "Shutdown signal received. Stopping server...", "name", name)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down %s server: %w", name, err)
	}
	return nil
}

func newImageStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case "s3":
		client, err := storage.NewMinioClient(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.UseSSL)
		if err != nil {
			return nil, err
		}
		store, err := storage.NewS3(ctx, client, cfg.Bucket, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "disk", "":
		store, err := storage.NewDisk(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownStorage, cfg.Backend)
	}
}

// newCache connects to redis when an address is configured and falls back to
// no caching otherwise.
func newCache(
	ctx context.Context,
	cfg config.CacheConfig,
	log *slog.Logger,
	appMetrics *metrics.Metrics,
) (cache.Cache, func(), error) {
	if cfg.Addr == "" {
		log.InfoContext(ctx, "Cache disabled")
		return cache.Nop{}, func() {}, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	log.InfoContext(ctx, "Cache initialized", "addr", cfg.Addr, "ttl", cfg.TTL)
	closeClient := func() {
		if errClose := client.Close(); errClose != nil {
			log.ErrorContext(ctx, "Failed to close redis client", "error", errClose)
		}
	}
	return cache.NewRedis(client, cfg.TTL, log, appMetrics), closeClient, nil
}
