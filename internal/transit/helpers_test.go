package transit

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/subwaytime/mtapi/internal/feed"
	"github.com/subwaytime/mtapi/internal/schedule"
	"github.com/subwaytime/mtapi/internal/stations"
)

var base = time.Date(2024, 1, 8, 8, 5, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSource struct {
	mu    sync.Mutex
	calls int
	fetch func(ctx context.Context, n int) (*feed.Result, error)
}

func (f *fakeSource) FetchAll(ctx context.Context, _ []string) (*feed.Result, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	fetch := f.fetch
	f.mu.Unlock()

	if fetch == nil {
		return liveAt(n), nil
	}
	return fetch(ctx, n)
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// liveAt returns a result whose timestamp and every route id encode n.
func liveAt(n int) *feed.Result {
	route := strconv.Itoa(n)
	at := base.Add(time.Duration(n) * time.Second)
	stop := func() *feed.StopPredictions {
		return &feed.StopPredictions{
			North:  []feed.Prediction{{RouteID: route, Time: at.Add(time.Minute)}, {RouteID: route, Time: at.Add(2 * time.Minute)}},
			South:  []feed.Prediction{{RouteID: route, Time: at.Add(3 * time.Minute)}},
			Routes: map[string]struct{}{route: {}},
		}
	}
	return &feed.Result{
		Timestamp: at,
		Stops: map[string]*feed.StopPredictions{
			"127": stop(),
			"G22": stop(),
			"101": stop(),
		},
	}
}

func testData(t *testing.T) (*stations.Directory, *schedule.Index) {
	t.Helper()

	dir, err := stations.NewDirectory([]stations.Descriptor{
		{Name: "Times Sq", Location: []float64{40.755, -73.987}, Stops: map[string][]float64{"127": nil, "725": nil}},
		{Name: "Court Sq", Location: []float64{40.747, -73.945}, Stops: map[string][]float64{"G22": nil, "719": nil}},
		{Name: "Alpha", Location: []float64{40.9, -73.9}, Stops: map[string][]float64{"101": nil}},
	})
	require.NoError(t, err)

	ix := schedule.NewIndex()
	for _, secs := range []int{8 * 3600, 8*3600 + 1200, 8*3600 + 2400} {
		ix.Add("127", "1", schedule.North, schedule.Weekday, secs)
	}
	ix.Add("725", "7", schedule.North, schedule.Weekday, 9*3600)
	ix.Add("719", "7", schedule.North, schedule.Weekday, 9*3600)
	ix.Add("G22", "G", schedule.North, schedule.Weekday, 9*3600)
	ix.Add("101", "1", schedule.North, schedule.Weekday, 9*3600)

	require.Empty(t, dir.AttachRoutes(ix))
	return dir, ix
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager builds a manager without starting it. A nil clock is frozen
// at base.
func newTestManager(t *testing.T, cfg Config, src FeedSource, clock *fakeClock) *Manager {
	t.Helper()
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	dir, ix := testData(t)
	if clock == nil {
		clock = newClock(base)
	}
	m := newManager(cfg, dir, ix, src, quietLogger(), clock.Now)
	t.Cleanup(m.Shutdown)
	return m
}
