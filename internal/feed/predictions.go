package feed

import (
	"sort"
	"time"

	"github.com/jamespfennell/gtfs"

	"github.com/subwaytime/mtapi/internal/schedule"
)

// DefaultHorizon is how far past the feed timestamp predictions are kept.
const DefaultHorizon = 30 * time.Minute

// Prediction is one expected train at a stop.
type Prediction struct {
	RouteID string    `json:"route"`
	Time    time.Time `json:"time"`
}

// StopPredictions holds the live trains for one stop code.
type StopPredictions struct {
	North  []Prediction
	South  []Prediction
	Routes map[string]struct{}
}

// Direction returns the predictions for d, or nil for an unknown direction.
func (sp *StopPredictions) Direction(d schedule.Direction) []Prediction {
	switch d {
	case schedule.North:
		return sp.North
	case schedule.South:
		return sp.South
	}
	return nil
}

func (sp *StopPredictions) add(d schedule.Direction, p Prediction) {
	if d == schedule.North {
		sp.North = append(sp.North, p)
	} else {
		sp.South = append(sp.South, p)
	}
	sp.Routes[p.RouteID] = struct{}{}
}

// Result is the merged, filtered content of one or more feeds.
type Result struct {
	Timestamp time.Time
	Stops     map[string]*StopPredictions
}

func newResult() *Result {
	return &Result{Stops: map[string]*StopPredictions{}}
}

func (r *Result) stop(code string) *StopPredictions {
	sp, ok := r.Stops[code]
	if !ok {
		sp = &StopPredictions{Routes: map[string]struct{}{}}
		r.Stops[code] = sp
	}
	return sp
}

// merge folds other into r. Predictions must be re-sorted afterwards.
func (r *Result) merge(other *Result) {
	if other.Timestamp.After(r.Timestamp) {
		r.Timestamp = other.Timestamp
	}
	for code, theirs := range other.Stops {
		mine := r.stop(code)
		mine.North = append(mine.North, theirs.North...)
		mine.South = append(mine.South, theirs.South...)
		for route := range theirs.Routes {
			mine.Routes[route] = struct{}{}
		}
	}
}

func (r *Result) sort() {
	for _, sp := range r.Stops {
		SortPredictions(sp.North)
		SortPredictions(sp.South)
	}
}

// SortPredictions orders predictions by time, keeping the relative order of
// equal times.
func SortPredictions(ps []Prediction) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Time.Before(ps[j].Time)
	})
}

// Filter extracts the stop predictions of a decoded feed that fall within
// [header time, header time + horizon].
func Filter(rt *gtfs.Realtime, horizon time.Duration) *Result {
	result := newResult()
	if rt == nil {
		return result
	}
	result.Timestamp = rt.CreatedAt
	limit := rt.CreatedAt.Add(horizon)

	for _, trip := range rt.Trips {
		route := schedule.CanonicalRouteID(trip.ID.RouteID)

		for _, stu := range trip.StopTimeUpdates {
			if stu.StopID == nil || len(*stu.StopID) < 4 {
				continue
			}
			dir, err := schedule.ParseDirection((*stu.StopID)[3:4])
			if err != nil {
				continue
			}

			at, ok := eventTime(stu.Arrival)
			if !ok {
				at, ok = eventTime(stu.Departure)
			}
			if !ok || at.Before(rt.CreatedAt) || at.After(limit) {
				continue
			}

			result.stop((*stu.StopID)[:3]).add(dir, Prediction{RouteID: route, Time: at})
		}
	}

	result.sort()
	return result
}

func eventTime(ev *gtfs.StopTimeEvent) (time.Time, bool) {
	if ev == nil || ev.Time == nil || ev.Time.IsZero() || ev.Time.Unix() == 0 {
		return time.Time{}, false
	}
	return *ev.Time, true
}
