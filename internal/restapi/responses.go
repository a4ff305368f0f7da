package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/subwaytime/mtapi/internal/logging"
	"github.com/subwaytime/mtapi/internal/models"
)

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	b, err := json.Marshal(response)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	setJSONResponseType(w)
	if response.Code != 0 {
		w.WriteHeader(response.Code)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to write response", err,
			slog.String("path", r.URL.Path))
	}
}

func setJSONResponseType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}
