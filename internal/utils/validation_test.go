package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRouteID(t *testing.T) {
	for _, ok := range []string{"1", "A", "GS", "FS", "6X"} {
		assert.NoError(t, ValidateRouteID(ok), ok)
	}
	for _, bad := range []string{"", "<script>", "A;B", "toolongroute"} {
		assert.Error(t, ValidateRouteID(bad), bad)
	}
}

func TestValidateLocationParams(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		limit   int
		invalid []string
	}{
		{"valid", 40.75, -73.98, 5, nil},
		{"bad latitude", 91, -73.98, 5, []string{"lat"}},
		{"bad longitude", 40.75, -181, 5, []string{"lon"}},
		{"negative limit", 40.75, -73.98, -1, []string{"limit"}},
		{"huge limit", 40.75, -73.98, MaxLimit + 1, []string{"limit"}},
		{"everything wrong", -91, 181, -2, []string{"lat", "lon", "limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateLocationParams(tt.lat, tt.lon, tt.limit)
			assert.Len(t, errs, len(tt.invalid))
			for _, field := range tt.invalid {
				assert.Contains(t, errs, field)
			}
		})
	}
}
