package models

import (
	"time"

	"github.com/subwaytime/mtapi/internal/feed"
	"github.com/subwaytime/mtapi/internal/snapshot"
)

type TrainModel struct {
	Route string `json:"route"`
	Time  string `json:"time"`
}

type StationModel struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Location   [2]float64 `json:"location"`
	Stops      []string   `json:"stops"`
	Routes     []string   `json:"routes"`
	LiveRoutes []string   `json:"liveRoutes"`
	// ScheduleEstimates maps route id to the scheduled headway in seconds.
	ScheduleEstimates map[string]int `json:"scheduleEstimates"`
	North             []TrainModel   `json:"N"`
	South             []TrainModel   `json:"S"`
}

// NewStationModel converts a snapshot record, rendering times in loc.
func NewStationModel(st snapshot.Station, loc *time.Location) StationModel {
	estimates := make(map[string]int, len(st.ScheduleEstimates))
	for route, headway := range st.ScheduleEstimates {
		estimates[route] = int(headway / time.Second)
	}

	return StationModel{
		ID:                st.ID,
		Name:              st.Name,
		Location:          [2]float64{st.Location.Lat, st.Location.Lon},
		Stops:             nonNil(st.Stops),
		Routes:            nonNil(st.Routes),
		LiveRoutes:        nonNil(st.Realtime.Routes),
		ScheduleEstimates: estimates,
		North:             newTrainModels(st.Realtime.North, loc),
		South:             newTrainModels(st.Realtime.South, loc),
	}
}

func NewStationModels(sts []snapshot.Station, loc *time.Location) []StationModel {
	out := make([]StationModel, 0, len(sts))
	for _, st := range sts {
		out = append(out, NewStationModel(st, loc))
	}
	return out
}

func newTrainModels(ps []feed.Prediction, loc *time.Location) []TrainModel {
	out := make([]TrainModel, 0, len(ps))
	for _, p := range ps {
		t := p.Time
		if loc != nil {
			t = t.In(loc)
		}
		out = append(out, TrainModel{Route: p.RouteID, Time: t.Format(time.RFC3339)})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
