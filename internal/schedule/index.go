package schedule

import (
	"sort"
	"time"
)

// Index maps stop codes to the per-route datasets served there.
// It is built once at startup and only read afterwards.
type Index struct {
	datasets map[string]map[string]*Dataset // stop code -> route id -> dataset
	routes   map[string]map[string]struct{} // route id -> stop codes
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		datasets: map[string]map[string]*Dataset{},
		routes:   map[string]map[string]struct{}{},
	}
}

// Add records one scheduled departure.
func (ix *Index) Add(stop, route string, dir Direction, day DayType, secondsOfDay int) {
	byRoute, ok := ix.datasets[stop]
	if !ok {
		byRoute = map[string]*Dataset{}
		ix.datasets[stop] = byRoute
	}
	ds, ok := byRoute[route]
	if !ok {
		ds = NewDataset()
		byRoute[route] = ds
	}
	ds.AddTrain(dir, day, secondsOfDay)

	stops, ok := ix.routes[route]
	if !ok {
		stops = map[string]struct{}{}
		ix.routes[route] = stops
	}
	stops[stop] = struct{}{}
}

// Dataset returns the dataset for a stop and route.
func (ix *Index) Dataset(stop, route string) (*Dataset, bool) {
	ds, ok := ix.datasets[stop][route]
	return ds, ok
}

// Estimates returns the headway of every route at stop that has one defined
// for dir at asOf. Routes without an estimate are left out.
func (ix *Index) Estimates(stop string, dir Direction, asOf time.Time) map[string]time.Duration {
	out := map[string]time.Duration{}
	for route, ds := range ix.datasets[stop] {
		if freq, ok := ds.Frequency(dir, asOf); ok {
			out[route] = freq
		}
	}
	return out
}

// Routes returns every route id seen while loading, sorted.
func (ix *Index) Routes() []string {
	out := make([]string, 0, len(ix.routes))
	for route := range ix.routes {
		out = append(out, route)
	}
	sort.Strings(out)
	return out
}

// Stops returns every stop code seen while loading, sorted.
func (ix *Index) Stops() []string {
	out := make([]string, 0, len(ix.datasets))
	for stop := range ix.datasets {
		out = append(out, stop)
	}
	sort.Strings(out)
	return out
}

// StopsForRoute returns the stop codes served by route, sorted.
func (ix *Index) StopsForRoute(route string) []string {
	out := make([]string, 0, len(ix.routes[route]))
	for stop := range ix.routes[route] {
		out = append(out, stop)
	}
	sort.Strings(out)
	return out
}

// RoutesForStop returns the route ids with a schedule at stop, sorted.
func (ix *Index) RoutesForStop(stop string) []string {
	out := make([]string, 0, len(ix.datasets[stop]))
	for route := range ix.datasets[stop] {
		out = append(out, route)
	}
	sort.Strings(out)
	return out
}
