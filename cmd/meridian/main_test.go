package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/meridian/internal/cache"
	"github.com/UnknownOlympus/meridian/internal/config"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		env   string
		level slog.Level
	}{
		{envLocal, slog.LevelDebug},
		{envDev, slog.LevelInfo},
		{envProd, slog.LevelWarn},
		{"", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := setupLogger(tt.env, &buf)
			assert.True(t, log.Enabled(context.Background(), tt.level))
			assert.False(t, log.Enabled(context.Background(), tt.level-1))
		})
	}

	var buf bytes.Buffer
	setupLogger("staging", &buf)
	assert.Contains(t, buf.String(), "available_envs")
	assert.NotContains(t, buf.String(), `"time"`)
}

func TestMonitoringHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewMetrics(reg).ObserveLeg("completed")

	tests := []struct {
		name   string
		db     pinger
		status int
		body   string
	}{
		{"healthy", stubPinger{}, http.StatusOK, "OK"},
		{"database down", stubPinger{err: errors.New("refused")}, http.StatusServiceUnavailable, "DB ping failed"},
		{"no database", nil, http.StatusOK, "OK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newMonitoringHandler(discard(), reg, tt.db)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}

	rec := httptest.NewRecorder()
	newMonitoringHandler(discard(), reg, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `meridian_animation_legs_total{status="completed"} 1`)
}

func TestNewImageStore(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")

	store, err := newImageStore(context.Background(), config.StorageConfig{Backend: "disk", UploadDir: dir}, discard())
	require.NoError(t, err)
	assert.IsType(t, &storage.Disk{}, store)

	_, err = newImageStore(context.Background(), config.StorageConfig{Backend: "ftp"}, discard())
	require.ErrorIs(t, err, errUnknownStorage)
}

func TestNewCache_Disabled(t *testing.T) {
	c, closeCache, err := newCache(context.Background(), config.CacheConfig{}, discard(), nil)
	require.NoError(t, err)
	defer closeCache()
	assert.Equal(t, cache.Nop{}, c)
}

func TestSampleData(t *testing.T) {
	data := sampleData()
	require.Len(t, data.Offices, 3)
	require.Len(t, data.Clients, 3)
	require.Len(t, data.Visits, 2)

	for _, office := range data.Offices {
		require.NoError(t, office.Coordinates.Validate(), office.Name)
	}
	for _, client := range data.Clients {
		require.NoError(t, client.Coordinates.Validate(), client.Name)
	}
	for _, visit := range data.Visits {
		assert.Less(t, visit.Office, len(data.Offices))
		assert.Less(t, visit.Client, len(data.Clients))
	}
	assert.Equal(t, "London", data.Offices[1].City)
	assert.Equal(t, "Paris", data.Clients[2].City)
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()
	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "seed", "mapview"}, names)

	mapCmd, _, err := cmd.Find([]string{"mapview"})
	require.NoError(t, err)
	assert.NotNil(t, mapCmd.Flags().Lookup("api"))
	assert.NotNil(t, mapCmd.Flags().Lookup("metrics-addr"))
}
