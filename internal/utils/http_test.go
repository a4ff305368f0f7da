package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIDFromParams(t *testing.T) {
	testCases := []struct {
		name string
		id   string
		want string
	}{
		{name: "Basic ID", id: "123", want: "123"},
		{name: "ID with JSON extension", id: "456.json", want: "456"},
		{name: "ID list", id: "1,2,3", want: "1,2,3"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := httprouter.New()

			var result string
			router.Handler(http.MethodGet, "/by-id/:ids", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				result = ExtractIDFromParams(r, "ids")
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/by-id/"+tc.id, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tc.want, result)
		})
	}
}

func TestParseIDList(t *testing.T) {
	ids, err := ParseIDList("93, 4,,7")
	require.NoError(t, err)
	assert.Equal(t, []int{93, 4, 7}, ids)

	for _, bad := range []string{"", ",", "a", "1,b", "-1", "1.5"} {
		_, err := ParseIDList(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
