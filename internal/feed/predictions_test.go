package feed

import (
	"testing"
	"time"

	"github.com/jamespfennell/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subwaytime/mtapi/internal/feed/feedtest"
	"github.com/subwaytime/mtapi/internal/schedule"
)

var header = time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

func minutes(m int) time.Time {
	return header.Add(time.Duration(m) * time.Minute)
}

func decode(t *testing.T, trips ...feedtest.TripUpdate) *gtfs.Realtime {
	t.Helper()
	b, err := feedtest.Build(header, trips...)
	require.NoError(t, err)
	rt, err := gtfs.ParseRealtime(b, &gtfs.ParseRealtimeOptions{})
	require.NoError(t, err)
	return rt
}

type flat struct {
	Route string
	Unix  int64
}

func flatten(ps []Prediction) []flat {
	out := make([]flat, 0, len(ps))
	for _, p := range ps {
		out = append(out, flat{p.RouteID, p.Time.Unix()})
	}
	return out
}

func TestFilter(t *testing.T) {
	rt := decode(t,
		feedtest.TripUpdate{TripID: "a", RouteID: "1", Stops: []feedtest.StopUpdate{
			{StopID: "101N", Arrival: minutes(2)},
			{StopID: "102N", Arrival: minutes(5)},
			{StopID: "103S", Departure: minutes(3)},
			{StopID: "104N", Arrival: minutes(-1)},
			{StopID: "105N", Arrival: minutes(31)},
			{StopID: "106N", Arrival: minutes(30)},
			{StopID: "107X", Arrival: minutes(4)},
			{StopID: "10", Arrival: minutes(4)},
		}},
		feedtest.TripUpdate{TripID: "b", RouteID: "GS", Stops: []feedtest.StopUpdate{
			{StopID: "901S", Arrival: minutes(1)},
			{StopID: "901N", Arrival: minutes(4), Departure: minutes(5)},
		}},
		feedtest.TripUpdate{TripID: "c", RouteID: "1", Stops: []feedtest.StopUpdate{
			{StopID: "101N", Arrival: minutes(1)},
		}},
	)

	result := Filter(rt, DefaultHorizon)
	assert.Equal(t, header.Unix(), result.Timestamp.Unix())

	assert.ElementsMatch(t, []string{"101", "102", "103", "106", "901"}, keys(result.Stops))

	assert.Equal(t, []flat{{"1", minutes(1).Unix()}, {"1", minutes(2).Unix()}}, flatten(result.Stops["101"].North))
	assert.Empty(t, result.Stops["101"].South)
	assert.Equal(t, []flat{{"1", minutes(3).Unix()}}, flatten(result.Stops["103"].South), "departure is used when arrival is absent")
	assert.Equal(t, []flat{{"1", minutes(30).Unix()}}, flatten(result.Stops["106"].North), "horizon is inclusive")

	gs := result.Stops["901"]
	assert.Equal(t, []flat{{"S", minutes(1).Unix()}}, flatten(gs.South))
	assert.Equal(t, []flat{{"S", minutes(4).Unix()}}, flatten(gs.North), "arrival wins over departure")
	assert.Equal(t, map[string]struct{}{"S": {}}, gs.Routes)
	assert.Equal(t, gs.North, gs.Direction(schedule.North))
	assert.Nil(t, gs.Direction(schedule.Direction("E")))
}

func TestFilterCustomHorizon(t *testing.T) {
	rt := decode(t, feedtest.TripUpdate{RouteID: "2", Stops: []feedtest.StopUpdate{
		{StopID: "201S", Arrival: minutes(4)},
		{StopID: "202S", Arrival: minutes(6)},
	}})

	result := Filter(rt, 5*time.Minute)
	assert.Contains(t, result.Stops, "201")
	assert.NotContains(t, result.Stops, "202")
}

func TestFilterNil(t *testing.T) {
	result := Filter(nil, DefaultHorizon)
	assert.Empty(t, result.Stops)
}

func TestMergeKeepsLatestTimestamp(t *testing.T) {
	a := newResult()
	a.Timestamp = header
	a.stop("101").add(schedule.North, Prediction{RouteID: "1", Time: minutes(5)})

	b := newResult()
	b.Timestamp = header.Add(time.Minute)
	b.stop("101").add(schedule.North, Prediction{RouteID: "2", Time: minutes(3)})
	b.stop("201").add(schedule.South, Prediction{RouteID: "2", Time: minutes(7)})

	a.merge(b)
	a.sort()

	assert.Equal(t, b.Timestamp, a.Timestamp)
	assert.Equal(t, []flat{{"2", minutes(3).Unix()}, {"1", minutes(5).Unix()}}, flatten(a.Stops["101"].North))
	assert.Len(t, a.Stops["101"].Routes, 2)
	assert.Len(t, a.Stops["201"].South, 1)
}

func TestSortPredictionsIsStable(t *testing.T) {
	ps := []Prediction{
		{RouteID: "A", Time: minutes(2)},
		{RouteID: "B", Time: minutes(1)},
		{RouteID: "C", Time: minutes(2)},
	}
	SortPredictions(ps)
	assert.Equal(t, []string{"B", "A", "C"}, []string{ps[0].RouteID, ps[1].RouteID, ps[2].RouteID})
}

func keys(m map[string]*StopPredictions) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
