package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jamespfennell/gtfs"

	"github.com/subwaytime/mtapi/internal/logging"
)

// DefaultURLs are the MTA subway feeds queried when none are configured.
var DefaultURLs = []string{
	"http://datamine.mta.info/mta_esi.php?feed_id=1",
	"http://datamine.mta.info/mta_esi.php?feed_id=2",
}

// Fetcher downloads and decodes GTFS-realtime feeds.
type Fetcher struct {
	client  *http.Client
	key     string
	horizon time.Duration
	logger  *slog.Logger
}

// Config configures a Fetcher.
type Config struct {
	Key string
	// Timeout bounds each HTTP request. Zero leaves requests bounded only by
	// their context.
	Timeout time.Duration
	Horizon time.Duration
}

// NewFetcher returns a Fetcher. A nil logger falls back to slog.Default.
func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		key:     cfg.Key,
		horizon: cfg.Horizon,
		logger:  logger.With(slog.String("component", "feed_fetcher")),
	}
}

// Fetch downloads one feed and decodes it. Log lines go to the logger carried
// by ctx when there is one, so a fetch is attributed to the refresh or request
// that triggered it.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*gtfs.Realtime, error) {
	logger := logging.FromContextOr(ctx, f.logger)

	target, err := f.withKey(source)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if f.key != "" {
		req.Header.Add("x-api-key", f.key)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer logging.SafeCloseWithLogging(resp.Body, logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed responded with status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	rt, err := gtfs.ParseRealtime(b, &gtfs.ParseRealtimeOptions{})
	if err != nil {
		return nil, fmt.Errorf("error decoding feed: %w", err)
	}
	logger.Debug("feed_fetched",
		slog.String("feed", source),
		slog.Int("bytes", len(b)),
		slog.Int("trips", len(rt.Trips)),
		slog.Time("feed_timestamp", rt.CreatedAt))
	return rt, nil
}

func (f *Fetcher) withKey(source string) (string, error) {
	if f.key == "" {
		return source, nil
	}
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("invalid feed url: %w", err)
	}
	q := u.Query()
	q.Set("key", f.key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchAll downloads every feed in parallel and merges the filtered results.
// Any failure fails the whole call so that a partial merge is never returned.
func (f *Fetcher) FetchAll(ctx context.Context, sources []string) (*Result, error) {
	results := make([]*Result, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, source := range sources {
		i, source := i, source
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt, err := f.Fetch(ctx, source)
			if err != nil {
				errs[i] = fmt.Errorf("feed %s: %w", source, err)
				return
			}
			results[i] = Filter(rt, f.horizon)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := newResult()
	for _, r := range results {
		merged.merge(r)
	}
	merged.sort()

	logging.LogOperation(f.logger, "feeds_fetched",
		slog.Int("feeds", len(sources)),
		slog.Int("stops", len(merged.Stops)),
		slog.Time("feed_timestamp", merged.Timestamp))
	return merged, nil
}
