package models

import "time"

// HealthModel reports whether queries are served from fresh data.
type HealthModel struct {
	Threaded     bool   `json:"threaded"`
	Alive        bool   `json:"alive"`
	Stale        bool   `json:"stale"`
	LastUpdate   string `json:"lastUpdate,omitempty"`
	ReadableTime string `json:"readableTime"`
	Time         int64  `json:"time"`
}

func NewHealthModel(threaded, alive, stale bool, lastUpdate, now time.Time) HealthModel {
	return HealthModel{
		Threaded:     threaded,
		Alive:        alive,
		Stale:        stale,
		LastUpdate:   FormatTime(lastUpdate),
		ReadableTime: now.Format(time.RFC3339),
		Time:         now.UnixMilli(),
	}
}
