package app

import "net/http"

// APIKeyFromRequest returns the key from the `key` query parameter, falling
// back to the X-API-Key header.
func APIKeyFromRequest(r *http.Request) string {
	if key := r.URL.Query().Get("key"); key != "" {
		return key
	}
	return r.Header.Get("X-API-Key")
}

// RequestHasInvalidAPIKey reports whether the request must be rejected. With
// no keys configured every request is accepted.
func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	if len(app.Config.Server.APIKeys) == 0 {
		return false
	}
	return app.IsInvalidAPIKey(APIKeyFromRequest(r))
}

func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}

	for _, validKey := range app.Config.Server.APIKeys {
		if key == validKey {
			return false
		}
	}

	return true
}
