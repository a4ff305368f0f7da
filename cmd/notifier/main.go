package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/subwaytime/mtapi/internal/appconf"
	"github.com/subwaytime/mtapi/internal/logging"
	"github.com/subwaytime/mtapi/internal/notify"
)

func notifierConfig(cfg appconf.Config) notify.Config {
	n := cfg.Notifier
	apiKey := n.APIKey
	if apiKey == "" && len(cfg.Server.APIKeys) > 0 {
		apiKey = cfg.Server.APIKeys[0]
	}
	return notify.Config{
		APIURL:          n.APIURL,
		APIKey:          apiKey,
		StationID:       n.StationID,
		Routes:          n.Routes,
		DeviceURL:       n.DeviceURL,
		SyncURL:         n.SyncURL,
		AccessToken:     n.AccessToken,
		Interval:        n.Interval(),
		MaxEntries:      n.MaxEntries,
		MaxPayloadBytes: n.MaxPayloadBytes,
	}
}

func validate(cfg notify.Config) error {
	var missing []string
	if cfg.APIURL == "" {
		missing = append(missing, "notifier.apiUrl")
	}
	if cfg.DeviceURL == "" {
		missing = append(missing, "notifier.deviceUrl")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func main() {
	var configPath, envFile string
	var stationID int
	flag.StringVar(&configPath, "config", "config.yml", "Path to the YAML config file")
	flag.StringVar(&envFile, "env-file", ".env", "Optional dotenv file read before the config")
	flag.IntVar(&stationID, "station", -1, "Station id to watch (overrides notifier.stationId)")
	flag.Parse()

	cfg, err := appconf.Load(configPath, envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if stationID >= 0 {
		cfg.Notifier.StationID = stationID
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	logger := logging.NewLogger(os.Stdout, cfg.Log.Format, level)

	ncfg := notifierConfig(cfg)
	if err := validate(ncfg); err != nil {
		logging.LogError(logger, "invalid notifier config", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting notifier",
		slog.Int("station_id", ncfg.StationID),
		slog.Any("routes", ncfg.Routes),
		slog.Duration("interval", ncfg.Interval))

	if err := notify.New(ncfg, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.LogError(logger, "notifier stopped", err)
		os.Exit(1)
	}
}
