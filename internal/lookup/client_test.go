package lookup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindcal/internal/models"
)

type stubTransport struct {
	calls  int
	status int
	body   string
}

func (s *stubTransport) RoundTrip(*http.Request) (*http.Response, error) {
	s.calls++
	return &http.Response{
		StatusCode: s.status,
		Body:       io.NopCloser(strings.NewReader(s.body)),
		Header:     make(http.Header),
	}, nil
}

func stubClient(status int, body string) (*http.Client, *stubTransport) {
	tr := &stubTransport{status: status, body: body}
	return &http.Client{Transport: tr}, tr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWeatherClientUnconfigured(t *testing.T) {
	c := NewWeatherClient(discardLogger(), "", nil)

	info, err := c.Weather(context.Background(), models.Location{Name: "Tokyo"}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestWeatherClientHourForecast(t *testing.T) {
	at := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	body := fmt.Sprintf(`{
		"current": {"condition": {"text": "Sunny"}, "temp_c": 18},
		"forecast": {"forecastday": [{
			"date": "2026-03-10",
			"day": {"condition": {"text": "Cloudy"}, "maxtemp_c": 20, "mintemp_c": 10, "totalprecip_mm": 1},
			"hour": [{"time": "2026-03-10 14:00", "condition": {"text": "Rain"}, "temp_c": 12, "precip_mm": 3, "wind_kph": 8}]
		}]},
		"alerts": {"alert": [{"headline": "flood watch"}]}
	}`)
	httpClient, tr := stubClient(http.StatusOK, body)
	c := NewWeatherClient(discardLogger(), "key", httpClient)

	info, err := c.Weather(context.Background(), models.Location{Name: "Tokyo"}, at)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Rain", info.Condition)
	assert.Equal(t, 12.0, info.TemperatureC)
	assert.Equal(t, 3.0, info.PrecipitationMm)
	assert.Equal(t, []string{"flood watch"}, info.Alerts)
	assert.Contains(t, info.Recommendation, "bring rain gear")

	// Same location and day hits the cache.
	_, err = c.Weather(context.Background(), models.Location{Name: "Tokyo"}, at)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls)
}

func TestWeatherClientDayFallback(t *testing.T) {
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	body := `{
		"forecast": {"forecastday": [{
			"date": "2026-03-10",
			"day": {"condition": {"text": "Cloudy"}, "maxtemp_c": 20, "mintemp_c": 10, "totalprecip_mm": 0}
		}]},
		"alerts": {"alert": []}
	}`
	httpClient, _ := stubClient(http.StatusOK, body)
	c := NewWeatherClient(discardLogger(), "key", httpClient)

	info, err := c.Weather(context.Background(), models.Location{Name: "Tokyo"}, at)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Cloudy", info.Condition)
	assert.Equal(t, 15.0, info.TemperatureC)
}

func TestWeatherClientServerError(t *testing.T) {
	httpClient, _ := stubClient(http.StatusInternalServerError, "")
	c := NewWeatherClient(discardLogger(), "key", httpClient)

	_, err := c.Weather(context.Background(), models.Location{Name: "Tokyo"}, time.Now())
	assert.Error(t, err)
}

func TestTrafficClientUnconfigured(t *testing.T) {
	c := NewTrafficClient(discardLogger(), "", nil)

	info, err := c.Traffic(context.Background(), models.Location{Name: "Home"}, models.Location{Name: "Office"}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestTrafficClientParsesRoute(t *testing.T) {
	body := `{
		"status": "OK",
		"routes": [{
			"summary": "Route 246",
			"warnings": ["road work ahead"],
			"legs": [{
				"duration": {"value": 1800},
				"duration_in_traffic": {"value": 2400},
				"distance": {"value": 12000}
			}]
		}]
	}`
	httpClient, tr := stubClient(http.StatusOK, body)
	c := NewTrafficClient(discardLogger(), "key", httpClient)
	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	info, err := c.Traffic(context.Background(), models.Location{Name: "Home"}, models.Location{Name: "Office"}, at)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, 30, info.DurationMin)
	assert.Equal(t, 40, info.DurationInTrafficMin)
	assert.Equal(t, 12, info.DistanceKm)
	assert.Equal(t, "Route 246", info.Route)
	assert.Equal(t, 10, info.DelayMin())
	assert.Contains(t, info.Recommendation, "extra minutes")

	// Same route and hour hits the cache.
	_, err = c.Traffic(context.Background(), models.Location{Name: "Home"}, models.Location{Name: "Office"}, at)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls)
}

func TestTrafficClientRejectsBadStatus(t *testing.T) {
	httpClient, _ := stubClient(http.StatusOK, `{"status": "ZERO_RESULTS", "routes": []}`)
	c := NewTrafficClient(discardLogger(), "key", httpClient)

	_, err := c.Traffic(context.Background(), models.Location{Name: "Home"}, models.Location{Name: "Office"}, time.Now())
	assert.Error(t, err)
}
