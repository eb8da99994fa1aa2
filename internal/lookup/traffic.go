package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"remindcal/internal/models"
)

const trafficEndpoint = "https://maps.googleapis.com/maps/api/directions/json"

// trafficResponse mirrors the parts of the Google Directions payload this
// client reads.
type trafficResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Summary  string   `json:"summary"`
		Warnings []string `json:"warnings"`
		Legs     []struct {
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
			DurationInTraffic *struct {
				Value int `json:"value"` // seconds
			} `json:"duration_in_traffic"`
			Distance struct {
				Value int `json:"value"` // meters
			} `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
}

// TrafficClient fetches route conditions from the Google Directions API.
// An empty API key makes every lookup a soft "no data" result.
type TrafficClient struct {
	apiKey     string
	httpClient *http.Client
	cache      *Cache[models.TrafficInfo]
	logger     *slog.Logger
}

// NewTrafficClient creates a traffic client. A nil httpClient selects a
// default with a bounded timeout.
func NewTrafficClient(logger *slog.Logger, apiKey string, httpClient *http.Client) *TrafficClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TrafficClient{
		apiKey:     apiKey,
		httpClient: httpClient,
		cache:      NewCache[models.TrafficInfo](defaultCacheSize, CacheTTL),
		logger:     logger,
	}
}

// Traffic implements TrafficProvider. Results are memoized per
// (origin, destination, hour) for the cache TTL.
func (c *TrafficClient) Traffic(ctx context.Context, origin, destination models.Location, at time.Time) (*models.TrafficInfo, error) {
	if c.apiKey == "" {
		c.logger.Warn("Maps API key not configured, skipping traffic lookup")
		return nil, nil
	}

	cacheKey := fmt.Sprintf("%s_%s_%d", origin.Name, destination.Name, at.Hour())
	if cached, ok := c.cache.Get(cacheKey); ok {
		return &cached, nil
	}

	q := url.Values{}
	q.Set("origin", origin.Query())
	q.Set("destination", destination.Query())
	q.Set("departure_time", strconv.FormatInt(at.Unix(), 10))
	q.Set("traffic_model", "best_guess")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trafficEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build traffic request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("traffic lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("traffic API returned status %d", resp.StatusCode)
	}

	var payload trafficResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode traffic response: %w", err)
	}
	if payload.Status != "OK" || len(payload.Routes) == 0 || len(payload.Routes[0].Legs) == 0 {
		return nil, fmt.Errorf("traffic API returned status %q", payload.Status)
	}

	route := payload.Routes[0]
	leg := route.Legs[0]
	durationMin := leg.Duration.Value / 60
	inTrafficMin := durationMin
	if leg.DurationInTraffic != nil {
		inTrafficMin = leg.DurationInTraffic.Value / 60
	}

	info := models.TrafficInfo{
		DurationMin:          durationMin,
		DurationInTrafficMin: inTrafficMin,
		DistanceKm:           leg.Distance.Value / 1000,
		Route:                route.Summary,
		Warnings:             route.Warnings,
		Recommendation:       trafficRecommendation(durationMin, inTrafficMin),
	}
	c.cache.Put(cacheKey, info)
	return &info, nil
}

// trafficRecommendation produces the short human note attached to routes.
func trafficRecommendation(durationMin, inTrafficMin int) string {
	delay := inTrafficMin - durationMin
	switch {
	case delay <= 5:
		return "traffic is light"
	case delay <= 15:
		return fmt.Sprintf("expect about %d extra minutes on the road", delay)
	default:
		return fmt.Sprintf("heavy traffic, %d+ minute delay expected; consider an alternate route", delay)
	}
}

// SyntheticTraffic builds a traffic reading from a static travel-time
// estimate when no live data source is configured, assuming a fixed
// 10-minute congestion allowance.
func SyntheticTraffic(estimateMin int) *models.TrafficInfo {
	return &models.TrafficInfo{
		DurationMin:          estimateMin,
		DurationInTrafficMin: estimateMin + 10,
		Route:                "estimated",
		Recommendation:       trafficRecommendation(estimateMin, estimateMin+10),
	}
}
