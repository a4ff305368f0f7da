package stations

import (
	"math"
	"sort"
)

// Point is a latitude/longitude pair. Distances between points are planar.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Distance returns the planar Euclidean distance in degrees.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.Lat-p.Lat, q.Lon-p.Lon)
}

// Station is the static identity of a station: its id, name, location, the
// stop codes that resolve to it and the routes scheduled at those stops.
type Station struct {
	ID       int
	Name     string
	Location Point
	Stops    []string
	Routes   []string
}

// HasRoute reports whether route is scheduled at the station.
func (s Station) HasRoute(route string) bool {
	i := sort.SearchStrings(s.Routes, route)
	return i < len(s.Routes) && s.Routes[i] == route
}

// Clone returns a copy that shares no slices with s.
func (s Station) Clone() Station {
	out := s
	out.Stops = append([]string(nil), s.Stops...)
	out.Routes = append([]string(nil), s.Routes...)
	return out
}
