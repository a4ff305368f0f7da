package schedule

import (
	"sort"
	"sync"
	"time"
)

// OneDay is the number of seconds in a service day.
const OneDay = 86400

// Dataset holds the scheduled departures of one route at one stop, bucketed
// by day type and direction as seconds since midnight.
//
// Departures are appended unsorted while loading and sorted once on the first
// query that follows an insert.
type Dataset struct {
	mu         sync.Mutex
	sorted     bool
	departures [dayTypeCount][2][]int
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{sorted: true}
}

// AddTrain records a departure. Times at or past midnight belong to the next
// day type in the rotation.
func (d *Dataset) AddTrain(dir Direction, day DayType, secondsOfDay int) {
	di, ok := dir.index()
	if !ok || day < 0 || int(day) >= dayTypeCount || secondsOfDay < 0 {
		return
	}

	if secondsOfDay >= OneDay {
		secondsOfDay %= OneDay
		day = day.Next()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.departures[day][di] = append(d.departures[day][di], secondsOfDay)
	d.sorted = false
}

// Departures returns a copy of the sorted departures for one bucket.
func (d *Dataset) Departures(dir Direction, day DayType) []int {
	di, ok := dir.index()
	if !ok || day < 0 || int(day) >= dayTypeCount {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.sortLocked()

	out := make([]int, len(d.departures[day][di]))
	copy(out, d.departures[day][di])
	return out
}

// Frequency estimates the headway at the next scheduled service slot at or
// after asOf: the gap between that departure and the one following it. It is
// not the wait until the next train.
//
// The second return value is false when no departure can be found in today's
// remaining schedule or tomorrow's.
func (d *Dataset) Frequency(dir Direction, asOf time.Time) (time.Duration, bool) {
	di, ok := dir.index()
	if !ok {
		return 0, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.sortLocked()

	tomorrow := d.departures[DayTypeOf(asOf.AddDate(0, 0, 1))][di]

	times := d.departures[DayTypeOf(asOf)][di]
	idx := sort.SearchInts(times, secondsOfDay(asOf))
	if idx >= len(times) {
		times = tomorrow
		idx = 0
	}
	if len(times) == 0 {
		return 0, false
	}

	start := times[idx]
	var end int
	if idx+1 < len(times) {
		end = times[idx+1]
	} else {
		if len(tomorrow) == 0 {
			return 0, false
		}
		end = tomorrow[0] + OneDay
	}

	return time.Duration(end-start) * time.Second, true
}

func (d *Dataset) sortLocked() {
	if d.sorted {
		return
	}
	for day := range d.departures {
		for dir := range d.departures[day] {
			sort.Ints(d.departures[day][dir])
		}
	}
	d.sorted = true
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
