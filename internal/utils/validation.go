package utils

import (
	"errors"
	"regexp"
)

// MaxLimit bounds the number of stations a location query may ask for.
const MaxLimit = 100

// Route ids are short alphanumerics such as "1", "A", "GS" or "FS".
var validRoutePattern = regexp.MustCompile(`^[a-zA-Z0-9]{1,8}$`)

// ValidateRouteID validates a route id taken from the request path
func ValidateRouteID(id string) error {
	if id == "" {
		return errors.New("route cannot be empty")
	}
	if !validRoutePattern.MatchString(id) {
		return errors.New("route contains invalid characters")
	}
	return nil
}

// ValidateLatitude validates latitude values
func ValidateLatitude(lat float64) error {
	if lat < -90.0 || lat > 90.0 {
		return errors.New("latitude must be between -90 and 90")
	}
	return nil
}

// ValidateLongitude validates longitude values
func ValidateLongitude(lon float64) error {
	if lon < -180.0 || lon > 180.0 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

func ValidateLimit(limit int) error {
	if limit < 0 {
		return errors.New("limit must be non-negative")
	}
	if limit > MaxLimit {
		return errors.New("limit too large (max 100)")
	}
	return nil
}

// ValidateLocationParams validates a complete set of location parameters
func ValidateLocationParams(lat, lon float64, limit int) map[string][]string {
	fieldErrors := make(map[string][]string)

	if err := ValidateLatitude(lat); err != nil {
		fieldErrors["lat"] = append(fieldErrors["lat"], err.Error())
	}

	if err := ValidateLongitude(lon); err != nil {
		fieldErrors["lon"] = append(fieldErrors["lon"], err.Error())
	}

	if err := ValidateLimit(limit); err != nil {
		fieldErrors["limit"] = append(fieldErrors["limit"], err.Error())
	}

	return fieldErrors
}
