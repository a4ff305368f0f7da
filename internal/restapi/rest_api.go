package restapi

import (
	"time"

	"github.com/subwaytime/mtapi/internal/app"
)

type RestAPI struct {
	*app.Application
	location    *time.Location
	rateLimiter *RateLimitMiddleware
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter
func NewRestAPI(app *app.Application) *RestAPI {
	loc, err := app.Config.Location()
	if err != nil {
		loc = time.UTC
	}
	return &RestAPI{
		Application: app,
		location:    loc,
		rateLimiter: NewRateLimitMiddleware(app.Config.Server.RateLimit, time.Second),
	}
}

// Close stops background work owned by the API.
func (api *RestAPI) Close() {
	api.rateLimiter.Stop()
}
