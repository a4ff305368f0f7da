package schedule

import (
	"fmt"
	"strings"
	"time"
)

// DayType selects which published schedule applies to a calendar day.
type DayType int

const (
	Weekday DayType = iota
	Saturday
	Sunday
)

const dayTypeCount = 3

var dayTypeCodes = [dayTypeCount]string{"WKD", "SAT", "SUN"}

func (d DayType) String() string {
	if d < 0 || int(d) >= dayTypeCount {
		return fmt.Sprintf("DayType(%d)", int(d))
	}
	return dayTypeCodes[d]
}

// Next returns the day type that follows d in the fold rotation
// Saturday -> Sunday -> Weekday -> Saturday.
func (d DayType) Next() DayType {
	switch d {
	case Saturday:
		return Sunday
	case Sunday:
		return Weekday
	default:
		return Saturday
	}
}

// ParseDayType accepts the three-letter codes used in timetable trip ids.
// Matching is case-insensitive because published data is inconsistent about it.
func ParseDayType(code string) (DayType, error) {
	switch strings.ToUpper(code) {
	case "WKD":
		return Weekday, nil
	case "SAT":
		return Saturday, nil
	case "SUN":
		return Sunday, nil
	}
	return 0, fmt.Errorf("unknown day type %q", code)
}

// DayTypeOf returns the day type whose schedule runs on t's calendar day.
func DayTypeOf(t time.Time) DayType {
	switch t.Weekday() {
	case time.Saturday:
		return Saturday
	case time.Sunday:
		return Sunday
	default:
		return Weekday
	}
}

// Direction is the platform direction encoded in the last character of a stop id.
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
)

// Directions lists every direction in a stable order.
var Directions = []Direction{North, South}

func (d Direction) index() (int, bool) {
	switch d {
	case North:
		return 0, true
	case South:
		return 1, true
	}
	return 0, false
}

// ParseDirection converts "N" or "S" into a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if _, ok := d.index(); !ok {
		return "", fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}

// CanonicalRouteID maps feed route aliases to the ids used in the timetable.
func CanonicalRouteID(routeID string) string {
	if routeID == "GS" {
		return "S"
	}
	return routeID
}
