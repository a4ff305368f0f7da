package restapi

import (
	"net/http"
	"time"

	"github.com/subwaytime/mtapi/internal/models"
)

// healthHandler reports refresh liveness. It answers 503 when the data
// being served is stale so load balancers can act on it.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	stale := api.Transit.EnsureFresh(r.Context())

	health := models.NewHealthModel(
		api.Transit.Threaded(),
		api.Transit.Alive(),
		stale,
		api.Transit.LastUpdate(),
		time.Now().In(api.location),
	)

	response := models.NewOKResponse(health)
	if stale {
		response = models.NewResponse(http.StatusServiceUnavailable, health, "stale")
	}
	api.sendResponse(w, r, response)
}
