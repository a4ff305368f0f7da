package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/subwaytime/mtapi/internal/logging"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func validateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

// SetRoutes registers the station query endpoints on router.
func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	router.Handler(http.MethodGet, "/by-id/:ids", validateAPIKey(api, api.stationsByIDHandler))
	router.Handler(http.MethodGet, "/by-route/:route", validateAPIKey(api, api.stationsByRouteHandler))
	router.Handler(http.MethodGet, "/by-location", validateAPIKey(api, api.stationsByLocationHandler))
	router.Handler(http.MethodGet, "/routes", validateAPIKey(api, api.routesHandler))
	router.HandlerFunc(http.MethodGet, "/healthz", api.healthHandler)

	router.NotFound = http.HandlerFunc(api.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		logging.FromContext(r.Context()).Error("handler panic", "panic", v, "path", r.URL.Path)
		api.writeError(w, r, http.StatusInternalServerError, "internal server error", nil)
	}
}

// Handler wraps router in the standard middleware chain. The request logger
// is outermost so every response, including rate limited ones, is logged.
func (api *RestAPI) Handler(router http.Handler) http.Handler {
	handler := api.rateLimiter.Handler(router)
	handler = CompressionMiddleware(handler)
	handler = securityHeaders(handler)
	return NewRequestLoggingMiddleware(api.Logger)(handler)
}

// Routes builds the complete API handler.
func (api *RestAPI) Routes() http.Handler {
	router := httprouter.New()
	api.SetRoutes(router)
	return api.Handler(router)
}
