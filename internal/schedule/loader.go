package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jamespfennell/gtfs"
	"github.com/subwaytime/mtapi/internal/logging"
)

// TripIDLayout describes where the day type and route id live inside a
// timetable trip id, e.g. "A20111204WKD_000800_1..N01R".
type TripIDLayout struct {
	DayTypeStart int
	DayTypeEnd   int
	RouteOffset  int
}

// DefaultTripIDLayout matches the published subway stop_times.txt.
func DefaultTripIDLayout() TripIDLayout {
	return TripIDLayout{DayTypeStart: 9, DayTypeEnd: 12, RouteOffset: 20}
}

// LoadStats summarises a timetable load.
type LoadStats struct {
	Rows    int
	Loaded  int
	Skipped int
}

// ParseTimeOfDay converts "HH:MM:SS" into seconds since midnight. Hours may
// exceed 23 and seconds may carry a fraction, which is truncated.
func ParseTimeOfDay(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", s, err)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q: %w", s, err)
	}
	if hours < 0 || minutes < 0 || seconds < 0 {
		return 0, fmt.Errorf("negative component in %q", s)
	}
	return hours*3600 + minutes*60 + int(seconds), nil
}

// LoadStopTimes reads a stop_times.txt style CSV. Only the trip_id, stop_id
// and departure_time columns are used. Rows whose ids cannot be decoded are
// skipped; a malformed departure time fails the whole load.
func LoadStopTimes(r io.Reader, layout TripIDLayout) (*Index, LoadStats, error) {
	var stats LoadStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("error reading timetable header: %w", err)
	}

	columns := map[string]int{}
	for i, name := range header {
		columns[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	tripCol, okTrip := columns["trip_id"]
	stopCol, okStop := columns["stop_id"]
	depCol, okDep := columns["departure_time"]
	if !okTrip || !okStop || !okDep {
		return nil, stats, errors.New("timetable is missing one of trip_id, stop_id, departure_time")
	}

	ix := NewIndex()
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("error reading timetable row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		if len(record) <= tripCol || len(record) <= stopCol || len(record) <= depCol {
			stats.Skipped++
			continue
		}
		tripID, stopID := record[tripCol], record[stopCol]
		if len(tripID) <= layout.RouteOffset || len(tripID) < layout.DayTypeEnd || len(stopID) < 4 {
			stats.Skipped++
			continue
		}

		day, err := ParseDayType(tripID[layout.DayTypeStart:layout.DayTypeEnd])
		if err != nil {
			stats.Skipped++
			continue
		}
		dir, err := ParseDirection(stopID[3:4])
		if err != nil {
			stats.Skipped++
			continue
		}
		secs, err := ParseTimeOfDay(record[depCol])
		if err != nil {
			return nil, stats, fmt.Errorf("timetable row %d: %w", stats.Rows, err)
		}

		route := CanonicalRouteID(tripID[layout.RouteOffset : layout.RouteOffset+1])
		ix.Add(stopID[:3], route, dir, day, secs)
		stats.Loaded++
	}

	return ix, stats, nil
}

// LoadGTFS builds an index from a complete GTFS static archive. Day types come
// from each trip's service calendar rather than from the trip id.
func LoadGTFS(content []byte) (*Index, LoadStats, error) {
	var stats LoadStats

	staticData, err := gtfs.ParseStatic(content, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, stats, fmt.Errorf("error parsing GTFS data: %w", err)
	}

	ix := NewIndex()
	for i := range staticData.Trips {
		trip := &staticData.Trips[i]
		if trip.Route == nil || trip.Service == nil {
			stats.Skipped += len(trip.StopTimes)
			stats.Rows += len(trip.StopTimes)
			continue
		}
		days := serviceDayTypes(trip.Service)
		route := CanonicalRouteID(trip.Route.Id)

		for _, st := range trip.StopTimes {
			stats.Rows++
			if st.Stop == nil || len(st.Stop.Id) < 4 || len(days) == 0 {
				stats.Skipped++
				continue
			}
			dir, err := ParseDirection(st.Stop.Id[3:4])
			if err != nil {
				stats.Skipped++
				continue
			}
			secs := int(st.DepartureTime / time.Second)
			for _, day := range days {
				ix.Add(st.Stop.Id[:3], route, dir, day, secs)
			}
			stats.Loaded++
		}
	}

	return ix, stats, nil
}

func serviceDayTypes(service *gtfs.Service) []DayType {
	var days []DayType
	if service.Monday || service.Tuesday || service.Wednesday || service.Thursday || service.Friday {
		days = append(days, Weekday)
	}
	if service.Saturday {
		days = append(days, Saturday)
	}
	if service.Sunday {
		days = append(days, Sunday)
	}
	return days
}

// LoadFile loads a timetable from disk, choosing the GTFS archive parser for
// ".zip" files and the stop_times CSV parser otherwise.
func LoadFile(path string, layout TripIDLayout, logger *slog.Logger) (ix *Index, err error) {
	start := time.Now()
	var stats LoadStats

	if strings.EqualFold(filepath.Ext(path), ".zip") {
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("error reading GTFS archive: %w", readErr)
		}
		ix, stats, err = LoadGTFS(content)
	} else {
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("error opening timetable: %w", openErr)
		}
		defer logging.HandleDeferredError(&err, f.Close, logger, "close_timetable")
		ix, stats, err = LoadStopTimes(f, layout)
	}
	if err != nil {
		return nil, err
	}

	logging.LogOperation(logger, "timetable_loaded",
		slog.String("component", "schedule_loader"),
		slog.String("source", path),
		slog.Int("rows", stats.Rows),
		slog.Int("loaded", stats.Loaded),
		slog.Int("skipped", stats.Skipped),
		slog.Int("routes", len(ix.routes)),
		slog.Duration("duration", time.Since(start)))

	return ix, nil
}
