// Package notify pushes the next northbound trains at one station to a
// small display device.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/subwaytime/mtapi/internal/logging"
	"github.com/subwaytime/mtapi/internal/models"
)

const (
	DefaultInterval        = 30 * time.Second
	DefaultMaxEntries      = 4
	DefaultMaxPayloadBytes = 63
	maxPushAttempts        = 3
)

var ErrNoStation = errors.New("station missing from response")

type Config struct {
	// APIURL is the base URL of the arrivals API.
	APIURL    string
	APIKey    string
	StationID int
	// Routes restricts the trains sent. Empty means every route.
	Routes          []string
	DeviceURL       string
	SyncURL         string
	AccessToken     string
	Interval        time.Duration
	MaxEntries      int
	MaxPayloadBytes int
	Timeout         time.Duration
}

// Notifier polls the arrivals API and forwards a compact payload to the device.
type Notifier struct {
	config     Config
	client     *http.Client
	logger     *slog.Logger
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

func New(config Config, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}
	if config.MaxPayloadBytes <= 0 {
		config.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Notifier{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With(slog.String("component", "notifier")),
		now:    time.Now,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			return b
		},
	}
}

type stationsEnvelope struct {
	Code int                   `json:"code"`
	Text string                `json:"text"`
	Data []models.StationModel `json:"data"`
}

// Arrivals fetches the configured station from the arrivals API.
func (n *Notifier) Arrivals(ctx context.Context) (_ models.StationModel, err error) {
	endpoint := strings.TrimRight(n.config.APIURL, "/") + "/by-id/" + strconv.Itoa(n.config.StationID)
	if n.config.APIKey != "" {
		endpoint += "?key=" + url.QueryEscape(n.config.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.StationModel{}, err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return models.StationModel{}, fmt.Errorf("error fetching arrivals: %w", err)
	}
	defer logging.HandleDeferredError(&err, resp.Body.Close, n.logger, "close_arrivals_body")

	var envelope stationsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return models.StationModel{}, fmt.Errorf("error decoding arrivals (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.StationModel{}, fmt.Errorf("arrivals API returned %d: %s", resp.StatusCode, envelope.Text)
	}
	for _, st := range envelope.Data {
		if st.ID == n.config.StationID {
			return st, nil
		}
	}
	return models.StationModel{}, fmt.Errorf("station %d: %w", n.config.StationID, ErrNoStation)
}

// post sends value as a form to target, retrying server errors with backoff.
func (n *Notifier) post(ctx context.Context, target, value string) error {
	u, err := url.Parse(target)
	if err != nil {
		return backoff.Permanent(err)
	}
	if n.config.AccessToken != "" {
		q := u.Query()
		q.Set("access_token", n.config.AccessToken)
		u.RawQuery = q.Encode()
	}
	form := url.Values{"value": {value}}.Encode()

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		logging.SafeCloseWithLogging(resp.Body, n.logger, "close_device_body")

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("device endpoint returned %d", resp.StatusCode)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("device endpoint returned %d", resp.StatusCode))
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(n.newBackOff(), maxPushAttempts-1), ctx)
	return backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		n.logger.Warn("device post failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("backoff", d))
	})
}

// SyncTime sends the current time so the device can render countdowns.
func (n *Notifier) SyncTime(ctx context.Context) error {
	if n.config.SyncURL == "" {
		return nil
	}
	payload, err := syncPayload(n.now())
	if err != nil {
		return err
	}
	if err := n.post(ctx, n.config.SyncURL, payload); err != nil {
		return fmt.Errorf("error syncing time: %w", err)
	}
	logging.LogOperation(n.logger, "time_synced", slog.String("payload", payload))
	return nil
}

// Tick fetches the station once and pushes the trains to the device. It
// returns the payload sent.
func (n *Notifier) Tick(ctx context.Context) (string, error) {
	station, err := n.Arrivals(ctx)
	if err != nil {
		return "", err
	}

	entries := SelectTrains(station.North, n.config.Routes, n.now())
	payload, err := Encode(entries, n.config.MaxEntries, n.config.MaxPayloadBytes)
	if err != nil {
		return "", err
	}

	if err := n.post(ctx, n.config.DeviceURL, payload); err != nil {
		return "", fmt.Errorf("error pushing to device: %w", err)
	}

	logging.LogOperation(n.logger, "device_updated",
		slog.Int("station_id", station.ID),
		slog.Int("trains", len(entries)),
		slog.String("payload", payload),
		slog.Int("bytes", len(payload)))
	return payload, nil
}

// Run syncs the device clock and then pushes updates every interval until
// ctx is cancelled. Failures are logged and retried on the next tick.
func (n *Notifier) Run(ctx context.Context) error {
	if err := n.SyncTime(ctx); err != nil {
		logging.LogError(n.logger, "time sync failed", err)
	}

	ticker := time.NewTicker(n.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := n.Tick(ctx); err != nil && ctx.Err() == nil {
			logging.LogError(n.logger, "device update failed", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
