package stations

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/subwaytime/mtapi/internal/logging"
)

// Descriptor is one entry of the station file. JSON files are accepted too,
// since JSON is valid YAML.
type Descriptor struct {
	Name     string               `yaml:"name" validate:"required"`
	Location []float64            `yaml:"location" validate:"len=2"`
	Stops    map[string][]float64 `yaml:"stops" validate:"min=1,dive,keys,required,endkeys"`
}

// RouteSource reports which routes are scheduled at each stop code.
type RouteSource interface {
	Stops() []string
	RoutesForStop(stop string) []string
}

// Directory resolves stop codes to stations. It is built once at startup and
// is read-only after AttachRoutes.
type Directory struct {
	stations []Station
	byStop   map[string]int
}

// Parse decodes and validates a station file.
func Parse(r io.Reader) ([]Descriptor, error) {
	var descriptors []Descriptor
	if err := yaml.NewDecoder(r).Decode(&descriptors); err != nil {
		return nil, fmt.Errorf("error decoding stations: %w", err)
	}

	v := validator.New()
	for i, d := range descriptors {
		if err := v.Struct(d); err != nil {
			return nil, fmt.Errorf("station %d (%q): %w", i, d.Name, err)
		}
	}
	return descriptors, nil
}

// NewDirectory assigns ids in file order. A stop code may belong to only one
// station.
func NewDirectory(descriptors []Descriptor) (*Directory, error) {
	d := &Directory{
		stations: make([]Station, 0, len(descriptors)),
		byStop:   map[string]int{},
	}

	for i, desc := range descriptors {
		station := Station{
			ID:       i,
			Name:     desc.Name,
			Location: Point{Lat: desc.Location[0], Lon: desc.Location[1]},
			Stops:    make([]string, 0, len(desc.Stops)),
		}
		for code := range desc.Stops {
			if owner, dup := d.byStop[code]; dup {
				return nil, fmt.Errorf("stop %q is listed under both %q and %q", code, descriptors[owner].Name, desc.Name)
			}
			d.byStop[code] = i
			station.Stops = append(station.Stops, code)
		}
		sort.Strings(station.Stops)
		d.stations = append(d.stations, station)
	}

	return d, nil
}

// LoadFile reads, validates and indexes a station file.
func LoadFile(path string, logger *slog.Logger) (dir *Directory, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening stations file: %w", err)
	}
	defer logging.HandleDeferredError(&err, f.Close, logger, "close_stations")

	descriptors, err := Parse(f)
	if err != nil {
		return nil, err
	}
	return NewDirectory(descriptors)
}

// AttachRoutes adds every route scheduled at a station's stops to the
// station's route set. It returns the stop codes that have a schedule but no
// station.
func (d *Directory) AttachRoutes(src RouteSource) []string {
	var unmatched []string
	routeSets := make([]map[string]struct{}, len(d.stations))

	for _, stop := range src.Stops() {
		idx, ok := d.byStop[stop]
		if !ok {
			unmatched = append(unmatched, stop)
			continue
		}
		if routeSets[idx] == nil {
			routeSets[idx] = map[string]struct{}{}
			for _, r := range d.stations[idx].Routes {
				routeSets[idx][r] = struct{}{}
			}
		}
		for _, route := range src.RoutesForStop(stop) {
			routeSets[idx][route] = struct{}{}
		}
	}

	for i, set := range routeSets {
		if set == nil {
			continue
		}
		routes := make([]string, 0, len(set))
		for r := range set {
			routes = append(routes, r)
		}
		sort.Strings(routes)
		d.stations[i].Routes = routes
	}

	return unmatched
}

// Len returns the number of stations.
func (d *Directory) Len() int {
	return len(d.stations)
}

// Stations returns the stations in id order. Callers must not modify them.
func (d *Directory) Stations() []Station {
	return d.stations
}

// ByStop returns the id of the station that owns a stop code.
func (d *Directory) ByStop(code string) (int, bool) {
	idx, ok := d.byStop[code]
	return idx, ok
}
