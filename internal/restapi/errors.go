package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/subwaytime/mtapi/internal/logging"
	"github.com/subwaytime/mtapi/internal/models"
)

type errorResponse struct {
	Code        int                 `json:"code"`
	CurrentTime int64               `json:"currentTime"`
	Text        string              `json:"text"`
	Version     int                 `json:"version"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
}

func (api *RestAPI) writeError(w http.ResponseWriter, r *http.Request, status int, text string, fieldErrors map[string][]string) {
	response := errorResponse{
		Code:        status,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        text,
		Version:     models.ResponseVersion,
		FieldErrors: fieldErrors,
	}

	setJSONResponseType(w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to encode error response", err,
			slog.Int("status", status))
	}
}

// invalidAPIKeyResponse sends a 401 Unauthorized response
func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.writeError(w, r, http.StatusUnauthorized, "permission denied", nil)
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "request failed", err,
		slog.String("path", r.URL.Path))
	api.writeError(w, r, http.StatusInternalServerError, "internal server error", nil)
}

func (api *RestAPI) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	api.writeError(w, r, http.StatusNotFound, "resource not found", nil)
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	api.writeError(w, r, http.StatusBadRequest, "invalid request", fieldErrors)
}
