package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/UnknownOlympus/meridian/internal/config"
	"github.com/spf13/cobra"
)

// Logger profiles selected by MERIDIAN_ENV.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "meridian",
		Short:         "World map of offices, clients and the visits between them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd(), newSeedCmd(), newMapViewCmd())
	return cmd
}

// loadConfig reads the configuration and builds the logger writing to out.
func loadConfig(out io.Writer) (*config.Config, *slog.Logger) {
	cfg := config.MustLoad()
	return cfg, setupLogger(cfg.Env, out)
}

// setupLogger returns the logger profile for env. Unknown environments get
// errors only, after a complaint listing the valid ones.
func setupLogger(env string, out io.Writer) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true}))
	case envDev:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case envProd:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelWarn, ReplaceAttr: dropTime}))
	}

	log := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelError, ReplaceAttr: dropTime}))
	log.Error("Unknown environment, only errors will be logged",
		slog.String("env", env),
		slog.String("available_envs", strings.Join([]string{envLocal, envDev, envProd}, ", ")))
	return log
}

// dropTime removes the timestamp attribute.
func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
