// Package transit keeps the published station snapshot current and answers
// station queries against it.
package transit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/subwaytime/mtapi/internal/feed"
	"github.com/subwaytime/mtapi/internal/logging"
	"github.com/subwaytime/mtapi/internal/schedule"
	"github.com/subwaytime/mtapi/internal/snapshot"
	"github.com/subwaytime/mtapi/internal/stations"
)

// DefaultExpiry is both the refresh interval and the staleness threshold.
const DefaultExpiry = 60 * time.Second

var (
	// ErrNotFound is returned when a station id does not exist.
	ErrNotFound = errors.New("station not found")
	// ErrRefreshInProgress is returned when another attempt holds the lease.
	ErrRefreshInProgress = errors.New("refresh already in progress")
	// ErrLeaseLost is returned when an attempt was overtaken before publishing.
	ErrLeaseLost = errors.New("refresh lease was reclaimed")
)

// FeedSource fetches and merges the live feeds.
type FeedSource interface {
	FetchAll(ctx context.Context, urls []string) (*feed.Result, error)
}

// Config controls refresh behavior.
type Config struct {
	FeedURLs  []string
	MaxTrains int
	Expiry    time.Duration
	// Threaded selects periodic background refreshes. Otherwise queries
	// refresh synchronously once the snapshot is older than Expiry.
	Threaded     bool
	LeaseTimeout time.Duration
	// Location is the timetable's time zone.
	Location *time.Location
}

func (c Config) withDefaults() Config {
	if len(c.FeedURLs) == 0 {
		c.FeedURLs = feed.DefaultURLs
	}
	if c.MaxTrains <= 0 {
		c.MaxTrains = snapshot.DefaultMaxTrains
	}
	if c.Expiry <= 0 {
		c.Expiry = DefaultExpiry
	}
	if c.LeaseTimeout <= 0 {
		c.LeaseTimeout = DefaultLeaseTimeout
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// Manager owns the refresh cycle and the published snapshot.
type Manager struct {
	config    Config
	directory *stations.Directory
	index     *schedule.Index
	source    FeedSource
	logger    *slog.Logger
	now       func() time.Time

	lease     *Lease
	current   atomic.Pointer[snapshot.Snapshot]
	publishMu sync.Mutex

	alive        atomic.Bool
	baseCtx      context.Context
	cancel       context.CancelFunc
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once

	newBackOff func() backoff.BackOff
	onTick     func()
}

// NewManager publishes a schedule-only snapshot, attempts a first refresh and,
// in threaded mode, starts the background refresher. A failed first refresh
// is logged, not returned.
func NewManager(config Config, directory *stations.Directory, index *schedule.Index, source FeedSource, logger *slog.Logger) *Manager {
	m := newManager(config, directory, index, source, logger, time.Now)
	m.start()
	return m
}

func newManager(config Config, directory *stations.Directory, index *schedule.Index, source FeedSource, logger *slog.Logger, now func() time.Time) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:       config,
		directory:    directory,
		index:        index,
		source:       source,
		logger:       logger.With(slog.String("component", "transit_refresh")),
		now:          now,
		lease:        NewLease(config.LeaseTimeout),
		baseCtx:      ctx,
		cancel:       cancel,
		shutdownChan: make(chan struct{}),
		newBackOff:   defaultBackOff,
	}
	m.current.Store(snapshot.Build(directory, index, nil, m.asOf(), config.MaxTrains))
	return m
}

func (m *Manager) start() {
	ctx, cancel := context.WithTimeout(m.baseCtx, m.config.LeaseTimeout)
	defer cancel()
	_ = m.Refresh(ctx)

	if m.config.Threaded {
		m.alive.Store(true)
		m.wg.Add(1)
		go m.supervise()
	}
}

// Shutdown stops background refreshes and waits for them to exit.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownChan)
		m.cancel()
		m.wg.Wait()
		m.alive.Store(false)
	})
}

func (m *Manager) asOf() time.Time {
	return m.now().In(m.config.Location)
}

// Refresh fetches the feeds, builds a new snapshot and publishes it. When
// another attempt holds the lease it returns ErrRefreshInProgress at once. On
// any failure the published snapshot is left untouched.
func (m *Manager) Refresh(ctx context.Context) error {
	start := m.now()
	generation, reclaimed, ok := m.lease.TryAcquire(start)
	if !ok {
		logging.LogOperation(m.logger, "refresh_skipped_lease_held")
		return ErrRefreshInProgress
	}
	if reclaimed {
		logging.LogOperation(m.logger, "refresh_lease_reclaimed",
			slog.Uint64("generation", generation))
	}
	defer m.lease.Release(generation)

	live, err := m.source.FetchAll(ctx, m.config.FeedURLs)
	if err != nil {
		logging.LogError(m.logger, "refresh failed, keeping previous snapshot", err)
		return fmt.Errorf("refresh: %w", err)
	}

	snap := snapshot.Build(m.directory, m.index, live, m.asOf(), m.config.MaxTrains)

	if !m.publish(generation, snap) {
		logging.LogOperation(m.logger, "refresh_discarded_lease_lost",
			slog.Uint64("generation", generation))
		return ErrLeaseLost
	}

	logging.LogOperation(m.logger, "snapshot_published",
		slog.Time("feed_timestamp", snap.Timestamp),
		slog.Int("stations", len(snap.Stations)),
		slog.Duration("duration", m.now().Sub(start)))
	return nil
}

func (m *Manager) publish(generation uint64, snap *snapshot.Snapshot) bool {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	if !m.lease.Holds(generation) {
		return false
	}
	m.current.Store(snap)
	return true
}

// EnsureFresh reports whether queries are being served from stale data.
//
// In threaded mode it only inspects the background refresher and reports
// stale while the supervisor is between restarts. The supervisor restarts
// the loop on its own, so callers never block on it.
//
// In lazy mode freshness is measured against the feed header timestamp, not
// the time of the last fetch: a feed whose header lags the clock by more than
// the expiry is refreshed synchronously. A zero timestamp counts as stale.
func (m *Manager) EnsureFresh(ctx context.Context) (stale bool) {
	if m.config.Threaded {
		return !m.alive.Load()
	}

	if !m.expired() {
		return false
	}
	_ = m.Refresh(ctx)
	return m.expired()
}

func (m *Manager) expired() bool {
	last := m.LastUpdate()
	return last.IsZero() || m.now().Sub(last) > m.config.Expiry
}

// Snapshot returns the currently published snapshot.
func (m *Manager) Snapshot() *snapshot.Snapshot {
	return m.current.Load()
}

// Alive reports whether the background refresher is running. It is always
// false in lazy mode.
func (m *Manager) Alive() bool {
	return m.alive.Load()
}

// Threaded reports whether background refreshes are configured.
func (m *Manager) Threaded() bool {
	return m.config.Threaded
}
