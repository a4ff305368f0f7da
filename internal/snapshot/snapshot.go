// Package snapshot assembles the immutable per-refresh view of every station.
package snapshot

import (
	"sort"
	"time"

	"github.com/subwaytime/mtapi/internal/feed"
	"github.com/subwaytime/mtapi/internal/schedule"
	"github.com/subwaytime/mtapi/internal/stations"
)

// DefaultMaxTrains caps the live predictions kept per station and direction.
const DefaultMaxTrains = 10

// Estimator yields headway estimates for the routes serving a stop.
type Estimator interface {
	Estimates(stop string, dir schedule.Direction, asOf time.Time) map[string]time.Duration
}

// Realtime is the live portion of a station record.
type Realtime struct {
	North  []feed.Prediction
	South  []feed.Prediction
	Routes []string
}

// Station is a station as published in one snapshot.
type Station struct {
	stations.Station
	// ScheduleEstimates holds only routes with a defined headway.
	ScheduleEstimates map[string]time.Duration
	Realtime          Realtime
}

// Snapshot is never modified after Build returns.
type Snapshot struct {
	Stations  []Station
	Stops     map[string]int
	Timestamp time.Time
	BuiltAt   time.Time
}

// Build creates a snapshot from the static directory, the schedule and a
// filtered feed result. live may be nil.
func Build(dir *stations.Directory, estimator Estimator, live *feed.Result, asOf time.Time, maxTrains int) *Snapshot {
	if maxTrains <= 0 {
		maxTrains = DefaultMaxTrains
	}

	static := dir.Stations()
	snap := &Snapshot{
		Stations: make([]Station, len(static)),
		Stops:    make(map[string]int),
		BuiltAt:  asOf,
	}
	if live != nil {
		snap.Timestamp = live.Timestamp
	}

	for i, base := range static {
		st := Station{
			Station:           base.Clone(),
			ScheduleEstimates: map[string]time.Duration{},
		}

		liveRoutes := map[string]struct{}{}
		for _, stop := range st.Stops {
			snap.Stops[stop] = i

			if estimator != nil {
				for route, headway := range estimator.Estimates(stop, schedule.North, asOf) {
					st.ScheduleEstimates[route] = headway
				}
			}

			if live == nil {
				continue
			}
			if sp, ok := live.Stops[stop]; ok {
				st.Realtime.North = append(st.Realtime.North, sp.North...)
				st.Realtime.South = append(st.Realtime.South, sp.South...)
				for route := range sp.Routes {
					liveRoutes[route] = struct{}{}
				}
			}
		}

		st.Realtime.North = limit(st.Realtime.North, maxTrains)
		st.Realtime.South = limit(st.Realtime.South, maxTrains)
		st.Realtime.Routes = sortedKeys(liveRoutes)
		snap.Stations[i] = st
	}

	return snap
}

func limit(ps []feed.Prediction, n int) []feed.Prediction {
	feed.SortPredictions(ps)
	if len(ps) > n {
		ps = ps[:n]
	}
	return ps
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Station returns the record for id.
func (s *Snapshot) Station(id int) (Station, bool) {
	if id < 0 || id >= len(s.Stations) {
		return Station{}, false
	}
	return s.Stations[id], true
}

// ByStop returns the record of the station owning a stop code.
func (s *Snapshot) ByStop(code string) (Station, bool) {
	idx, ok := s.Stops[code]
	if !ok {
		return Station{}, false
	}
	return s.Stations[idx], true
}
