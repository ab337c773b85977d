package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func newTestGeocoder(t *testing.T, body string) (*Geocoder, *string) {
	t.Helper()
	var gotAddress string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddress = r.URL.Query().Get("address")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	g, err := NewGeocoder("test-key", "mm", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return g, &gotAddress
}

func TestGeocoder_Geocode(t *testing.T) {
	g, got := newTestGeocoder(t, `{"status":"OK","results":[{"geometry":{"location":{"lat":16.8409,"lng":96.1735}}}]}`)

	lat, lng, err := g.Geocode(context.Background(), "Sule Pagoda Rd, Yangon")
	require.NoError(t, err)
	assert.InDelta(t, 16.8409, lat, 1e-6)
	assert.InDelta(t, 96.1735, lng, 1e-6)
	assert.Equal(t, "Sule Pagoda Rd, Yangon", *got)
}

func TestGeocoder_NoResult(t *testing.T) {
	g, _ := newTestGeocoder(t, `{"status":"ZERO_RESULTS","results":[]}`)

	_, _, err := g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestGeocoder_APIError(t *testing.T) {
	g, _ := newTestGeocoder(t, `{"status":"REQUEST_DENIED","error_message":"bad key"}`)

	_, _, err := g.Geocode(context.Background(), "Yangon")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResult)
}
