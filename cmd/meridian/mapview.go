package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/UnknownOlympus/meridian/internal/apiclient"
	"github.com/UnknownOlympus/meridian/internal/config"
	"github.com/UnknownOlympus/meridian/internal/locations"
	"github.com/UnknownOlympus/meridian/internal/mapview"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/tui"
	"github.com/gdamore/tcell/v2"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// mapHome is the initial view center, 20 degrees north of the prime meridian.
var mapHome = orb.Point{0, 20}

func newMapViewCmd() *cobra.Command {
	var (
		apiBase     string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "mapview",
		Short: "Show the animated world map in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.MustLoad()
			if apiBase != "" {
				cfg.MapView.APIBase = apiBase
			}
			return runMapView(cmd.Context(), cfg, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&apiBase, "api", "", "REST API base URL (defaults to MERIDIAN_API_BASE)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics on this address, e.g. :9100")
	return cmd
}

func runMapView(ctx context.Context, cfg *config.Config, metricsAddr string) error {
	// The terminal belongs to the map, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if cfg.MapView.LogFile != "" {
		file, err := os.OpenFile(cfg.MapView.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer file.Close()
		out = file
	}
	logger := setupLogger(cfg.Env, out)

	mode, err := mapview.ParseMode(cfg.MapView.AmbientMode)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(reg)

	client := apiclient.New(cfg.MapView.APIBase, logger)
	store := locations.NewStore(client, logger, appMetrics)
	store.SetEnabled(models.KindOffice, cfg.MapView.OfficesEnabled)
	store.SetEnabled(models.KindClient, cfg.MapView.ClientsEnabled)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err = screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	app := tui.New(screen, tui.Config{
		Store:     store,
		Details:   client,
		Images:    client,
		Metrics:   appMetrics,
		Logger:    logger,
		IdleDelay: cfg.MapView.IdleDelay,
		Mode:      mode,
		Home:      mapHome,
	})
	logger.InfoContext(ctx, "Map view started", "api", cfg.MapView.APIBase, "mode", mode.String())

	if metricsAddr == "" {
		return app.Run(ctx)
	}

	group, gctx := errgroup.WithContext(ctx)
	runCtx, stopMetrics := context.WithCancel(gctx)
	group.Go(func() error {
		defer stopMetrics()
		return app.Run(runCtx)
	})
	group.Go(func() error {
		server := &http.Server{
			Addr:         metricsAddr,
			Handler:      newMonitoringHandler(logger, reg, nil),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		}
		return listen(runCtx, logger, "metrics", server)
	})
	return group.Wait()
}
