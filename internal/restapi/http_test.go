package restapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/subwaytime/mtapi/internal/app"
	"github.com/subwaytime/mtapi/internal/appconf"
	"github.com/subwaytime/mtapi/internal/feed"
	"github.com/subwaytime/mtapi/internal/feed/feedtest"
	"github.com/subwaytime/mtapi/internal/logging"
	"github.com/subwaytime/mtapi/internal/models"
	"github.com/subwaytime/mtapi/internal/schedule"
	"github.com/subwaytime/mtapi/internal/stations"
	"github.com/subwaytime/mtapi/internal/transit"
)

const testAPIKey = "TEST"

// Station ids follow the order below: Times Sq 0, Court Sq 1, Alpha 2.
func testDirectory(t *testing.T) (*stations.Directory, *schedule.Index) {
	t.Helper()

	dir, err := stations.NewDirectory([]stations.Descriptor{
		{Name: "Times Sq", Location: []float64{40.755, -73.987}, Stops: map[string][]float64{"127": nil, "725": nil}},
		{Name: "Court Sq", Location: []float64{40.747, -73.945}, Stops: map[string][]float64{"G22": nil, "719": nil}},
		{Name: "Alpha", Location: []float64{40.9, -73.9}, Stops: map[string][]float64{"101": nil}},
	})
	require.NoError(t, err)

	ix := schedule.NewIndex()
	for _, day := range []schedule.DayType{schedule.Weekday, schedule.Saturday, schedule.Sunday} {
		ix.Add("127", "1", schedule.North, day, 8*3600)
		ix.Add("725", "7", schedule.North, day, 9*3600)
		ix.Add("719", "7", schedule.North, day, 9*3600)
		ix.Add("G22", "G", schedule.North, day, 9*3600)
		ix.Add("101", "1", schedule.North, day, 9*3600)
	}
	require.Empty(t, dir.AttachRoutes(ix))
	return dir, ix
}

// testFeed places a 7 then a 1 northbound and a 1 southbound at Times Sq.
func testFeed(now time.Time) []byte {
	return feedtest.MustBuild(now,
		feedtest.TripUpdate{RouteID: "1", Stops: []feedtest.StopUpdate{
			{StopID: "127N", Arrival: now.Add(5 * time.Minute)},
			{StopID: "127S", Arrival: now.Add(8 * time.Minute)},
		}},
		feedtest.TripUpdate{RouteID: "7", Stops: []feedtest.StopUpdate{
			{StopID: "725N", Arrival: now.Add(3 * time.Minute)},
		}},
	)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestApi creates a RestAPI backed by a lazily refreshed transit
// manager reading from a local feed server.
func createTestApi(t *testing.T) (*RestAPI, *feedtest.Server) {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	server := feedtest.NewServer(testFeed(now))
	t.Cleanup(server.Close)
	return newTestApi(t, server), server
}

func newTestApi(t *testing.T, server *feedtest.Server) *RestAPI {
	t.Helper()

	cfg := appconf.Default()
	cfg.Server.Env = "test"
	cfg.Server.APIKeys = []string{testAPIKey}
	cfg.Data.Timezone = "UTC"

	dir, ix := testDirectory(t)
	logger := testLogger()
	fetcher := feed.NewFetcher(feed.Config{Key: "feed-key", Timeout: 5 * time.Second}, logger)
	manager := transit.NewManager(transit.Config{
		FeedURLs: []string{server.URL},
		Expiry:   time.Hour,
		Threaded: false,
		Location: time.UTC,
	}, dir, ix, fetcher, logger)
	t.Cleanup(manager.Shutdown)

	api := NewRestAPI(&app.Application{
		Config:  cfg,
		Logger:  logger,
		Transit: manager,
	})
	t.Cleanup(api.Close)
	return api
}

func newTestServer(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)
	return server
}

// serveApiAndRetrieveEndpoint serves the full handler chain, requests the
// endpoint and decodes the envelope.
func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, endpoint string) (*http.Response, models.ResponseModel) {
	t.Helper()

	server := httptest.NewServer(api.Routes())
	defer server.Close()

	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "test")),
		"http_response_body")

	var response models.ResponseModel
	err = json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)

	return resp, response
}

func serveAndRetrieveEndpoint(t *testing.T, endpoint string) (*RestAPI, *http.Response, models.ResponseModel) {
	api, _ := createTestApi(t)
	resp, model := serveApiAndRetrieveEndpoint(t, api, endpoint)
	return api, resp, model
}

// decodeStations re-decodes the envelope data as station models.
func decodeStations(t *testing.T, model models.ResponseModel) []models.StationModel {
	t.Helper()
	b, err := json.Marshal(model.Data)
	require.NoError(t, err)
	var out []models.StationModel
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}
