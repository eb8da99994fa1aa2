package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"remindcal/internal/models"
)

const weatherEndpoint = "https://api.weatherapi.com/v1/forecast.json"

// weatherResponse mirrors the parts of the WeatherAPI.com forecast payload
// this client reads.
type weatherResponse struct {
	Current struct {
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
		TempC     float64 `json:"temp_c"`
		PrecipMm  float64 `json:"precip_mm"`
		WindKph   float64 `json:"wind_kph"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				Condition struct {
					Text string `json:"text"`
				} `json:"condition"`
				MaxTempC     float64 `json:"maxtemp_c"`
				MinTempC     float64 `json:"mintemp_c"`
				TotalPrecip  float64 `json:"totalprecip_mm"`
				MaxWindKph   float64 `json:"maxwind_kph"`
			} `json:"day"`
			Hour []struct {
				Time      string `json:"time"`
				Condition struct {
					Text string `json:"text"`
				} `json:"condition"`
				TempC    float64 `json:"temp_c"`
				PrecipMm float64 `json:"precip_mm"`
				WindKph  float64 `json:"wind_kph"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
	Alerts struct {
		Alert []struct {
			Headline string `json:"headline"`
		} `json:"alert"`
	} `json:"alerts"`
}

// WeatherClient fetches forecasts from WeatherAPI.com. An empty API key
// makes every lookup a soft "no data" result.
type WeatherClient struct {
	apiKey     string
	httpClient *http.Client
	cache      *Cache[models.WeatherInfo]
	logger     *slog.Logger
}

// NewWeatherClient creates a weather client. A nil httpClient selects a
// default with a bounded timeout.
func NewWeatherClient(logger *slog.Logger, apiKey string, httpClient *http.Client) *WeatherClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WeatherClient{
		apiKey:     apiKey,
		httpClient: httpClient,
		cache:      NewCache[models.WeatherInfo](defaultCacheSize, CacheTTL),
		logger:     logger,
	}
}

// Weather implements WeatherProvider. Results are memoized per
// (location, day) for the cache TTL.
func (c *WeatherClient) Weather(ctx context.Context, loc models.Location, at time.Time) (*models.WeatherInfo, error) {
	if c.apiKey == "" {
		c.logger.Warn("Weather API key not configured, skipping weather lookup")
		return nil, nil
	}

	cacheKey := fmt.Sprintf("%s_%s", loc.Name, at.Format("2006-01-02"))
	if cached, ok := c.cache.Get(cacheKey); ok {
		return &cached, nil
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", loc.Query())
	q.Set("days", "3")
	q.Set("aqi", "no")
	q.Set("alerts", "yes")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, weatherEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var payload weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	info := c.pickForecast(payload, at)
	c.cache.Put(cacheKey, info)
	return &info, nil
}

// pickForecast selects the forecast closest to the event time: the matching
// hour of the matching day when available, the day aggregate otherwise, and
// current conditions as the last resort.
func (c *WeatherClient) pickForecast(payload weatherResponse, at time.Time) models.WeatherInfo {
	var alerts []string
	for _, a := range payload.Alerts.Alert {
		alerts = append(alerts, a.Headline)
	}

	day := at.Format("2006-01-02")
	for _, fd := range payload.Forecast.ForecastDay {
		if fd.Date != day {
			continue
		}
		for _, h := range fd.Hour {
			t, err := time.ParseInLocation("2006-01-02 15:04", h.Time, at.Location())
			if err != nil || t.Hour() != at.Hour() {
				continue
			}
			return weatherInfo(h.Condition.Text, h.TempC, h.PrecipMm, h.WindKph, alerts)
		}
		mean := (fd.Day.MaxTempC + fd.Day.MinTempC) / 2
		return weatherInfo(fd.Day.Condition.Text, mean, fd.Day.TotalPrecip, fd.Day.MaxWindKph, alerts)
	}
	cur := payload.Current
	return weatherInfo(cur.Condition.Text, cur.TempC, cur.PrecipMm, cur.WindKph, alerts)
}

func weatherInfo(condition string, tempC, precipMm, windKph float64, alerts []string) models.WeatherInfo {
	return models.WeatherInfo{
		Condition:       condition,
		TemperatureC:    tempC,
		PrecipitationMm: precipMm,
		WindKph:         windKph,
		Alerts:          alerts,
		Recommendation:  weatherRecommendation(condition, tempC, precipMm),
	}
}

// weatherRecommendation produces the short human note attached to forecasts.
func weatherRecommendation(condition string, tempC, precipMm float64) string {
	var notes []string
	if precipMm > 0.5 {
		notes = append(notes, "bring rain gear")
	}
	if tempC < 10 {
		notes = append(notes, "dress warmly")
	} else if tempC > 25 {
		notes = append(notes, "prepare for the heat")
	}
	if strings.Contains(strings.ToLower(condition), "snow") {
		notes = append(notes, "snow expected, wear non-slip shoes")
	}
	if len(notes) == 0 {
		return "no weather concerns"
	}
	return strings.Join(notes, "; ")
}
