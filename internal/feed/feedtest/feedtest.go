// Package feedtest builds GTFS-realtime protobuf payloads for tests.
package feedtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	p "github.com/jamespfennell/gtfs/proto"
	"google.golang.org/protobuf/proto"
)

// StopUpdate is one stop_time_update. Zero times are left unset.
type StopUpdate struct {
	StopID    string
	Arrival   time.Time
	Departure time.Time
}

// TripUpdate is one trip_update entity.
type TripUpdate struct {
	TripID  string
	RouteID string
	Stops   []StopUpdate
}

// Build encodes a full-dataset feed with the given header timestamp.
func Build(header time.Time, trips ...TripUpdate) ([]byte, error) {
	incrementality := p.FeedHeader_FULL_DATASET
	msg := &p.FeedMessage{
		Header: &p.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      &incrementality,
			Timestamp:           proto.Uint64(uint64(header.Unix())),
		},
	}

	for i, trip := range trips {
		updates := make([]*p.TripUpdate_StopTimeUpdate, 0, len(trip.Stops))
		for _, s := range trip.Stops {
			stu := &p.TripUpdate_StopTimeUpdate{StopId: proto.String(s.StopID)}
			if !s.Arrival.IsZero() {
				stu.Arrival = &p.TripUpdate_StopTimeEvent{Time: proto.Int64(s.Arrival.Unix())}
			}
			if !s.Departure.IsZero() {
				stu.Departure = &p.TripUpdate_StopTimeEvent{Time: proto.Int64(s.Departure.Unix())}
			}
			updates = append(updates, stu)
		}

		tripID := trip.TripID
		if tripID == "" {
			tripID = fmt.Sprintf("trip-%d", i)
		}
		msg.Entity = append(msg.Entity, &p.FeedEntity{
			Id: proto.String(tripID),
			TripUpdate: &p.TripUpdate{
				Trip: &p.TripDescriptor{
					TripId:  proto.String(tripID),
					RouteId: proto.String(trip.RouteID),
				},
				StopTimeUpdate: updates,
			},
		})
	}

	return proto.Marshal(msg)
}

// MustBuild is Build for fixtures that are known to be valid.
func MustBuild(header time.Time, trips ...TripUpdate) []byte {
	b, err := Build(header, trips...)
	if err != nil {
		panic(err)
	}
	return b
}

// Server serves a swappable payload and counts requests.
type Server struct {
	*httptest.Server
	payload  atomic.Pointer[[]byte]
	status   atomic.Int32
	requests atomic.Int64
	lastKey  atomic.Pointer[string]
}

// NewServer starts a server answering every GET with payload.
func NewServer(payload []byte) *Server {
	s := &Server{}
	s.Set(payload)
	s.status.Store(http.StatusOK)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		key := r.Header.Get("x-api-key")
		s.lastKey.Store(&key)

		status := int(s.status.Load())
		if status != http.StatusOK {
			http.Error(w, http.StatusText(status), status)
			return
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(*s.payload.Load())
	}))
	return s
}

// Set replaces the served payload.
func (s *Server) Set(payload []byte) {
	s.payload.Store(&payload)
}

// Fail makes the server answer with status until Recover is called.
func (s *Server) Fail(status int) {
	s.status.Store(int32(status))
}

// Recover restores 200 responses.
func (s *Server) Recover() {
	s.status.Store(http.StatusOK)
}

// Requests returns the number of requests served so far.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// LastKey returns the x-api-key header of the most recent request.
func (s *Server) LastKey() string {
	if k := s.lastKey.Load(); k != nil {
		return *k
	}
	return ""
}
