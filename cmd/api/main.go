package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/subwaytime/mtapi/internal/app"
	"github.com/subwaytime/mtapi/internal/appconf"
	"github.com/subwaytime/mtapi/internal/feed"
	"github.com/subwaytime/mtapi/internal/logging"
	"github.com/subwaytime/mtapi/internal/restapi"
	"github.com/subwaytime/mtapi/internal/schedule"
	"github.com/subwaytime/mtapi/internal/stations"
	"github.com/subwaytime/mtapi/internal/transit"
	"github.com/subwaytime/mtapi/internal/webui"
)

// flags holds command line overrides for the config file.
type flags struct {
	configPath string
	envFile    string
	port       int
	env        string
	apiKeys    string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "config.yml", "Path to the YAML config file")
	fs.StringVar(&f.envFile, "env-file", ".env", "Optional dotenv file read before the config")
	fs.IntVar(&f.port, "port", 0, "API server port (overrides server.port)")
	fs.StringVar(&f.env, "env", "", "Environment (development|test|production)")
	fs.StringVar(&f.apiKeys, "api-keys", "", "Comma Separated API Keys (overrides server.apiKeys)")
	err := fs.Parse(args)
	return f, err
}

// applyFlags overlays the flags that were set onto cfg.
func applyFlags(cfg *appconf.Config, f flags) {
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.env != "" {
		cfg.Server.Env = f.env
	}
	if f.apiKeys != "" {
		cfg.Server.APIKeys = splitAPIKeys(f.apiKeys)
	}
}

func splitAPIKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// buildApplication loads the station list and timetable and starts the
// transit manager.
func buildApplication(cfg appconf.Config, logger *slog.Logger) (*app.Application, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Data.Timezone, err)
	}

	directory, err := stations.LoadFile(cfg.Data.StationsFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}

	index, err := schedule.LoadFile(cfg.Data.StopTimesFile, schedule.DefaultTripIDLayout(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load timetable: %w", err)
	}

	if unmatched := directory.AttachRoutes(index); len(unmatched) > 0 {
		logger.Warn("stops without scheduled service",
			slog.Int("count", len(unmatched)),
			slog.Any("stops", unmatched))
	}

	fetcher := feed.NewFetcher(feed.Config{
		Key:     cfg.Feed.Key,
		Timeout: cfg.Feed.Timeout,
		Horizon: cfg.Feed.Horizon(),
	}, logger)

	manager := transit.NewManager(transit.Config{
		FeedURLs:     cfg.Feed.URLs,
		MaxTrains:    cfg.Feed.MaxTrains,
		Expiry:       cfg.Cache.Expiry(),
		Threaded:     cfg.Cache.Threaded,
		LeaseTimeout: cfg.Cache.LeaseTimeout(),
		Location:     loc,
	}, directory, index, fetcher, logger)

	return &app.Application{
		Config:  cfg,
		Logger:  logger,
		Transit: manager,
	}, nil
}

// routes mounts the API and, outside production, the debug pages.
func routes(api *restapi.RestAPI, application *app.Application) http.Handler {
	router := httprouter.New()
	api.SetRoutes(router)
	if application.Config.Environment() != appconf.Production {
		ui := &webui.WebUI{Transit: application.Transit}
		ui.SetWebUIRoutes(router)
	}
	return api.Handler(router)
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := appconf.Load(f.configPath, f.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(&cfg, f)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	logger := logging.NewLogger(os.Stdout, cfg.Log.Format, level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		os.Exit(1)
	}
}

// run builds the application and serves it until shutdown. Failures are
// logged before they are returned.
func run(cfg appconf.Config, logger *slog.Logger) error {
	application, err := buildApplication(cfg, logger)
	if err != nil {
		return logging.LogAndWrap(logger, "failed to initialize application", err)
	}
	defer application.Transit.Shutdown()

	api := restapi.NewRestAPI(application)
	defer api.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      routes(api, application),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	if err := serve(srv, logger, cfg.Server.Env); err != nil {
		return logging.LogAndWrap(logger, "server stopped", err)
	}
	return nil
}

// serve runs srv until SIGINT or SIGTERM, then drains in-flight requests.
func serve(srv *http.Server, logger *slog.Logger, env string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
