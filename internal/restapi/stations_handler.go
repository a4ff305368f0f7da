package restapi

import (
	"errors"
	"net/http"

	"github.com/subwaytime/mtapi/internal/models"
	"github.com/subwaytime/mtapi/internal/snapshot"
	"github.com/subwaytime/mtapi/internal/stations"
	"github.com/subwaytime/mtapi/internal/transit"
	"github.com/subwaytime/mtapi/internal/utils"
)

// defaultLocationLimit is how many stations /by-location returns without a limit.
const defaultLocationLimit = 5

func (api *RestAPI) sendStations(w http.ResponseWriter, r *http.Request, sts []snapshot.Station) {
	data := models.NewStationModels(sts, api.location)
	api.sendResponse(w, r, models.NewDataResponse(data, api.Transit.LastUpdate()))
}

func (api *RestAPI) stationsByIDHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := utils.ParseIDList(utils.ExtractIDFromParams(r, "ids"))
	if err != nil {
		api.validationErrorResponse(w, r, map[string][]string{
			"ids": {err.Error()},
		})
		return
	}

	sts, err := api.Transit.StationsByID(r.Context(), ids)
	if errors.Is(err, transit.ErrNotFound) {
		api.notFoundResponse(w, r)
		return
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	api.sendStations(w, r, sts)
}

func (api *RestAPI) stationsByRouteHandler(w http.ResponseWriter, r *http.Request) {
	route := utils.ExtractIDFromParams(r, "route")
	if err := utils.ValidateRouteID(route); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{
			"route": {err.Error()},
		})
		return
	}

	api.sendStations(w, r, api.Transit.StationsByRoute(r.Context(), route))
}

func (api *RestAPI) stationsByLocationHandler(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()

	lat, hasLat, fieldErrors := utils.ParseFloatParam(queryParams, "lat", nil)
	lon, hasLon, fieldErrors := utils.ParseFloatParam(queryParams, "lon", fieldErrors)
	limit, fieldErrors := utils.ParseIntParam(queryParams, "limit", defaultLocationLimit, fieldErrors)

	if !hasLat && len(fieldErrors["lat"]) == 0 {
		fieldErrors["lat"] = append(fieldErrors["lat"], "lat is required")
	}
	if !hasLon && len(fieldErrors["lon"]) == 0 {
		fieldErrors["lon"] = append(fieldErrors["lon"], "lon is required")
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	if fieldErrors := utils.ValidateLocationParams(lat, lon, limit); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	point := stations.Point{Lat: lat, Lon: lon}
	api.sendStations(w, r, api.Transit.StationsByPoint(r.Context(), point, limit))
}

func (api *RestAPI) routesHandler(w http.ResponseWriter, r *http.Request) {
	routes := api.Transit.Routes()
	if routes == nil {
		routes = []string{}
	}
	api.sendResponse(w, r, models.NewDataResponse(routes, api.Transit.LastUpdate()))
}
