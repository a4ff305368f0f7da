package transit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/subwaytime/mtapi/internal/snapshot"
	"github.com/subwaytime/mtapi/internal/stations"
)

// StationsByID returns the stations with the given ids, in request order.
// An unknown id fails the whole lookup with ErrNotFound.
func (m *Manager) StationsByID(ctx context.Context, ids []int) ([]snapshot.Station, error) {
	m.EnsureFresh(ctx)
	snap := m.current.Load()

	out := make([]snapshot.Station, 0, len(ids))
	for _, id := range ids {
		st, ok := snap.Station(id)
		if !ok {
			return nil, fmt.Errorf("station %d: %w", id, ErrNotFound)
		}
		out = append(out, st)
	}
	return out, nil
}

// StationsByRoute returns every station the route is scheduled at, sorted by
// name.
func (m *Manager) StationsByRoute(ctx context.Context, route string) []snapshot.Station {
	m.EnsureFresh(ctx)
	snap := m.current.Load()

	out := []snapshot.Station{}
	for _, st := range snap.Stations {
		if st.HasRoute(route) {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// StationsByPoint returns up to limit stations ordered by distance from point.
func (m *Manager) StationsByPoint(ctx context.Context, point stations.Point, limit int) []snapshot.Station {
	m.EnsureFresh(ctx)
	snap := m.current.Load()

	if limit <= 0 {
		return []snapshot.Station{}
	}

	type candidate struct {
		station  snapshot.Station
		distance float64
	}
	candidates := make([]candidate, 0, len(snap.Stations))
	for _, st := range snap.Stations {
		candidates = append(candidates, candidate{st, point.Distance(st.Location)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]snapshot.Station, 0, limit)
	for _, c := range candidates[:limit] {
		out = append(out, c.station)
	}
	return out
}

// Routes returns every route id found in the timetable, sorted. The route set
// is fixed at load, so unlike the station queries it never calls EnsureFresh.
func (m *Manager) Routes() []string {
	return m.index.Routes()
}

// LastUpdate returns the feed timestamp of the published snapshot. It is zero
// until the first successful refresh.
func (m *Manager) LastUpdate() time.Time {
	return m.current.Load().Timestamp
}
