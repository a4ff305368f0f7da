package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subwaytime/mtapi/internal/appconf"
	"github.com/subwaytime/mtapi/internal/feed/feedtest"
	"github.com/subwaytime/mtapi/internal/logging"
	"github.com/subwaytime/mtapi/internal/restapi"
)

const testStations = `[
  {"name": "Van Cortlandt Park-242 St", "location": [40.889248, -73.898583], "stops": {"101": [40.889248, -73.898583]}},
  {"name": "Nowhere", "location": [40.7, -73.9], "stops": {"X99": [40.7, -73.9]}}
]`

const testStopTimes = `trip_id,arrival_time,departure_time,stop_id,stop_sequence
A20111204WKD_000800_1..N01R,08:00:00,08:00:00,101N,1
A20111204SAT_000800_1..N01R,08:00:00,08:00:00,101N,1
A20111204SUN_000800_1..N01R,08:00:00,08:00:00,101N,1
`

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"-config", "other.yml", "-port", "8080", "-api-keys", " a, b ,,c"})
	require.NoError(t, err)
	assert.Equal(t, "other.yml", f.configPath)

	cfg := appconf.Default()
	cfg.Server.APIKeys = []string{"from-file"}
	applyFlags(&cfg, f)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Server.APIKeys)

	t.Run("defaults leave config untouched", func(t *testing.T) {
		f, err := parseFlags(nil)
		require.NoError(t, err)
		assert.Equal(t, "config.yml", f.configPath)

		cfg := appconf.Default()
		cfg.Server.APIKeys = []string{"from-file"}
		applyFlags(&cfg, f)
		assert.Equal(t, appconf.Default().Server.Port, cfg.Server.Port)
		assert.Equal(t, []string{"from-file"}, cfg.Server.APIKeys)
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := parseFlags([]string{"-bogus"})
		assert.Error(t, err)
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(t *testing.T, feedURL string) appconf.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := appconf.Default()
	cfg.Server.Env = "test"
	cfg.Feed.URLs = []string{feedURL}
	cfg.Cache.Threaded = false
	cfg.Data.StationsFile = writeFile(t, dir, "stations.json", testStations)
	cfg.Data.StopTimesFile = writeFile(t, dir, "stop_times.txt", testStopTimes)
	cfg.Data.Timezone = "UTC"
	return cfg
}

func TestBuildApplication(t *testing.T) {
	server := feedtest.NewServer(feedtest.MustBuild(time.Now()))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	application, err := buildApplication(testConfig(t, server.URL), logger)
	require.NoError(t, err)
	t.Cleanup(application.Transit.Shutdown)

	assert.Equal(t, []string{"1"}, application.Transit.Routes())
	assert.Len(t, application.Transit.Snapshot().Stations, 2)
	assert.EqualValues(t, 1, server.Requests())

	api := restapi.NewRestAPI(application)
	t.Cleanup(api.Close)
	handler := routes(api, application)

	t.Run("api mounted", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/by-route/1", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("debug pages outside production", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug?dataType=routes", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no debug pages in production", func(t *testing.T) {
		application.Config.Server.Env = "production"
		w := httptest.NewRecorder()
		routes(api, application).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBuildApplicationErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("missing stations", func(t *testing.T) {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Data.StationsFile = filepath.Join(t.TempDir(), "missing.json")
		_, err := buildApplication(cfg, logger)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing timetable", func(t *testing.T) {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Data.StopTimesFile = filepath.Join(t.TempDir(), "missing.txt")
		_, err := buildApplication(cfg, logger)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad timezone", func(t *testing.T) {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Data.Timezone = "Mars/Olympus_Mons"
		_, err := buildApplication(cfg, logger)
		assert.Error(t, err)
	})
}

func TestServeStopsOnListenError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := &http.Server{Addr: "256.0.0.1:bad"}

	err := serve(srv, logger, "test")
	assert.Error(t, err)
}

func TestRunLogsFatalErrors(t *testing.T) {
	t.Run("initialization failure", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewStructuredLogger(&buf, slog.LevelInfo)

		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Data.StationsFile = filepath.Join(t.TempDir(), "missing.json")

		err := run(cfg, logger)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "failed to initialize application")
		assert.Contains(t, buf.String(), `"msg":"failed to initialize application"`)
	})

	t.Run("server failure", func(t *testing.T) {
		server := feedtest.NewServer(feedtest.MustBuild(time.Now()))
		t.Cleanup(server.Close)

		var buf bytes.Buffer
		logger := logging.NewStructuredLogger(&buf, slog.LevelInfo)

		cfg := testConfig(t, server.URL)
		cfg.Server.Port = -1

		err := run(cfg, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server stopped")
		assert.Contains(t, buf.String(), `"msg":"server stopped"`)
	})
}
