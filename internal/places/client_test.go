package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestPlacesClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewClient(server.URL, "test-key", 2*time.Second, zap.NewNop()), server
}

func TestPredictions_DecodesStructuredFormatting(t *testing.T) {
	client, server := newTestPlacesClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/autocomplete/json", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "zh-TW", query.Get("language"))
		assert.Equal(t, "country:tw", query.Get("components"))
		assert.Equal(t, "establishment", query.Get("types"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","predictions":[
			{"place_id":"p1","structured_formatting":{"main_text":"7-11 樂水門市","secondary_text":"宜蘭縣大同鄉"}}
		]}`))
	}))
	defer server.Close()

	predictions, err := client.Predictions(context.Background(), "7-11")

	assert.NoError(t, err)
	assert.Len(t, predictions, 1)
	assert.Equal(t, "p1", predictions[0].PlaceID)
	assert.Equal(t, "7-11 樂水門市", predictions[0].MainText)
	assert.Equal(t, "宜蘭縣大同鄉", predictions[0].SecondaryText)
}

func TestPredictions_ZeroResultsIsNotAnError(t *testing.T) {
	client, server := newTestPlacesClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","predictions":[]}`))
	}))
	defer server.Close()

	predictions, err := client.Predictions(context.Background(), "zzzzz")

	assert.NoError(t, err)
	assert.Empty(t, predictions)
}

func TestDetails_DecodesGeometry(t *testing.T) {
	client, server := newTestPlacesClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)
		assert.Equal(t, "p1", r.URL.Query().Get("place_id"))

		w.Write([]byte(`{"status":"OK","result":{
			"name":"便利商店",
			"formatted_address":"宜蘭縣大同鄉",
			"geometry":{"location":{"lat":24.5,"lng":121.3}}
		}}`))
	}))
	defer server.Close()

	details, err := client.Details(context.Background(), "p1")

	assert.NoError(t, err)
	assert.Equal(t, "便利商店", details.Name)
	assert.Equal(t, 24.5, details.Lat)
	assert.Equal(t, 121.3, details.Lng)
}

func TestGet_NonSuccessCarriesStatusCode(t *testing.T) {
	client, server := newTestPlacesClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := client.Predictions(context.Background(), "7-11")
	assert.ErrorContains(t, err, "403")

	_, err = client.Details(context.Background(), "p1")
	assert.ErrorContains(t, err, "403")
}
