package notify

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/subwaytime/mtapi/internal/models"
)

// Entry is one upcoming train as sent to the device.
type Entry struct {
	Route string
	Time  time.Time
}

// MarshalJSON renders the entry as [route, epoch]. Numeric routes are sent
// as numbers.
func (e Entry) MarshalJSON() ([]byte, error) {
	var route interface{} = e.Route
	if n, err := strconv.Atoi(e.Route); err == nil {
		route = n
	}
	return json.Marshal([]interface{}{route, e.Time.Unix()})
}

// SelectTrains keeps the trains on one of routes that arrive after now, in
// their original order. Unparseable times are dropped.
func SelectTrains(trains []models.TrainModel, routes []string, now time.Time) []Entry {
	wanted := make(map[string]bool, len(routes))
	for _, r := range routes {
		wanted[r] = true
	}

	var out []Entry
	for _, tr := range trains {
		if len(wanted) > 0 && !wanted[tr.Route] {
			continue
		}
		at, err := time.Parse(time.RFC3339, tr.Time)
		if err != nil || !at.After(now) {
			continue
		}
		out = append(out, Entry{Route: tr.Route, Time: at})
	}
	return out
}

// Encode renders at most maxEntries entries as a compact JSON array, dropping
// trailing entries until the payload fits in maxBytes. It returns "[]" when
// not even one entry fits.
func Encode(entries []Entry, maxEntries, maxBytes int) (string, error) {
	if maxEntries >= 0 && len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	for n := len(entries); n > 0; n-- {
		b, err := json.Marshal(entries[:n])
		if err != nil {
			return "", err
		}
		if maxBytes <= 0 || len(b) <= maxBytes {
			return string(b), nil
		}
	}
	return "[]", nil
}

// syncPayload is the clock synchronisation message, [{"synctime": epoch}].
func syncPayload(now time.Time) (string, error) {
	b, err := json.Marshal([]map[string]int64{{"synctime": now.Unix()}})
	return string(b), err
}
