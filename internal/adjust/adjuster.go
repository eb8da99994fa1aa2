// Package adjust converts weather, traffic and time-of-day conditions into a
// signed correction to a reminder's base lead time, with a confidence value
// and human-readable rationale.
package adjust

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"remindcal/internal/lookup"
	"remindcal/internal/models"
)

// Fallback text used whenever context cannot be obtained.
const (
	FallbackReason         = "standard timing used — context lookup failed"
	fallbackRecommendation = "standard reminder timing in use"
)

// Confidence constants. The final confidence is the product of the factors
// that applied, clamped to [0, 1].
const (
	baseConfidence          = 0.8
	weatherConfidence       = 0.9
	weatherAlertConfidence  = 0.7
	trafficConfidence       = 0.8
	trafficDelayConfidence  = 0.6
	fallbackConfidence      = 0.5
	heavyTrafficDelayMins   = 15
	maxTrafficBufferMinutes = 30
)

// Clamp margin for adjustments that would land in the past.
const pastClampMargin = 5 * time.Minute

// Indoor and outdoor keyword tables for the weather-sensitivity check,
// evaluated against both the location name and the event type.
var (
	indoorKeywords = []string{
		"オンライン", "zoom", "teams", "skype",
		"会議室", "オフィス", "室内", "屋内",
		"ホール", "センター", "ビル", "館",
	}
	outdoorKeywords = []string{
		"屋外", "公園", "パーク", "スポーツ", "ゴルフ", "テニス",
		"ランニング", "ウォーキング", "ハイキング",
		"バーベキュー", "ピクニック", "フェス", "祭り",
		"outdoor", "park", "golf", "festival",
	}
)

type factorResult struct {
	minutes         int
	recommendations []string
	confidence      float64
}

// Adjuster computes context adjustments. It is stateless apart from its
// collaborators and safe for concurrent use.
type Adjuster struct {
	weather lookup.WeatherProvider
	traffic lookup.TrafficProvider
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Adjuster.
func New(weather lookup.WeatherProvider, traffic lookup.TrafficProvider, logger *slog.Logger) *Adjuster {
	return &Adjuster{weather: weather, traffic: traffic, logger: logger, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (a *Adjuster) SetClock(now func() time.Time) {
	a.now = now
}

// Adjust blends the base lead time with weather, traffic and time-of-day
// corrections for an event starting at eventStart.
//
// If any weather or traffic lookup fails (as opposed to returning no data
// because the provider is unconfigured), the whole computation is abandoned
// and the unmodified base timing is returned with reduced confidence:
// partial context is less trustworthy than no context.
func (a *Adjuster) Adjust(ctx context.Context, eventStart time.Time, ec models.EventContext, home *models.Location, baseLeadMinutes int) models.ContextAdjustment {
	originalTime := eventStart.Add(-time.Duration(baseLeadMinutes) * time.Minute)

	adjustmentMinutes := 0
	confidence := baseConfidence
	var recommendations []string
	var weatherUsed *models.WeatherInfo
	var trafficUsed *models.TrafficInfo

	if ec.Location != nil && isOutdoor(ec) {
		w, err := a.weather.Weather(ctx, *ec.Location, eventStart)
		if err != nil {
			a.logger.Warn("Weather lookup failed, using standard timing", "location", ec.Location.Name, "error", err)
			return a.fallback(originalTime)
		}
		if w != nil {
			weatherUsed = w
			r := weatherAdjustment(*w)
			adjustmentMinutes += r.minutes
			recommendations = append(recommendations, r.recommendations...)
			confidence *= r.confidence
		}
	}

	if ec.RequiresTravel && ec.Location != nil {
		origin := home
		if origin == nil {
			// Unconfigured home still allows a name-only lookup.
			origin = &models.Location{Name: "Home"}
		}
		t, err := a.traffic.Traffic(ctx, *origin, *ec.Location, eventStart)
		if err != nil {
			a.logger.Warn("Traffic lookup failed, using standard timing", "destination", ec.Location.Name, "error", err)
			return a.fallback(originalTime)
		}
		if t == nil && ec.Location.TravelTimeMinutes > 0 {
			t = lookup.SyntheticTraffic(ec.Location.TravelTimeMinutes)
		}
		if t != nil {
			trafficUsed = t
			r := trafficAdjustment(*t)
			adjustmentMinutes += r.minutes
			recommendations = append(recommendations, r.recommendations...)
			confidence *= r.confidence
		}
	}

	r := timeOfDayAdjustment(eventStart, ec)
	adjustmentMinutes += r.minutes
	recommendations = append(recommendations, r.recommendations...)

	adjustedTime := originalTime.Add(-time.Duration(adjustmentMinutes) * time.Minute)
	if now := a.now(); adjustedTime.Before(now) {
		adjustedTime = now.Add(pastClampMargin)
		recommendations = append(recommendations, "reminder moved to 5 minutes from now")
	}

	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return models.ContextAdjustment{
		OriginalTime:      originalTime,
		AdjustedTime:      adjustedTime,
		AdjustmentMinutes: adjustmentMinutes,
		Reason:            adjustmentReason(adjustmentMinutes, weatherUsed, trafficUsed),
		Confidence:        confidence,
		Weather:           weatherUsed,
		Traffic:           trafficUsed,
		Recommendations:   recommendations,
	}
}

// fallback is the unadjusted result returned when context cannot be obtained.
func (a *Adjuster) fallback(originalTime time.Time) models.ContextAdjustment {
	return models.ContextAdjustment{
		OriginalTime:      originalTime,
		AdjustedTime:      originalTime,
		AdjustmentMinutes: 0,
		Reason:            FallbackReason,
		Confidence:        fallbackConfidence,
		Recommendations:   []string{fallbackRecommendation},
	}
}

// isOutdoor reports whether the event is weather-sensitive. Outdoor keywords
// win outright; otherwise anything not recognizably indoor is treated as
// outdoor unless it is a plain meeting.
func isOutdoor(ec models.EventContext) bool {
	if ec.Location == nil {
		return false
	}
	text := strings.ToLower(ec.Location.Name + " " + ec.EventType)
	hasIndoor := false
	for _, kw := range indoorKeywords {
		if strings.Contains(text, kw) {
			hasIndoor = true
			break
		}
	}
	for _, kw := range outdoorKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return !hasIndoor && ec.EventType != "meeting"
}

func weatherAdjustment(w models.WeatherInfo) factorResult {
	r := factorResult{confidence: weatherConfidence}

	if w.TemperatureC < 5 {
		r.minutes += 10
		r.recommendations = append(r.recommendations, "cold — allow dressing time")
	} else if w.TemperatureC > 30 {
		r.minutes += 5
		r.recommendations = append(r.recommendations, "hot — allow time to prepare for the heat")
	}

	if w.PrecipitationMm > 0.5 {
		r.minutes += 15
		r.recommendations = append(r.recommendations, "rain expected — bring rain gear and allow extra travel time")
		if w.PrecipitationMm > 5 {
			r.minutes += 10
			r.recommendations = append(r.recommendations, "heavy rain expected — extra margin added")
		}
	}

	if w.WindKph > 20 {
		r.minutes += 5
		r.recommendations = append(r.recommendations, "strong wind expected — take care when travelling")
	}

	if len(w.Alerts) > 0 {
		r.minutes += 20
		r.recommendations = append(r.recommendations, "weather alert in effect: "+strings.Join(w.Alerts, ", "))
		r.confidence = weatherAlertConfidence
	}

	if w.Recommendation != "" {
		r.recommendations = append(r.recommendations, w.Recommendation)
	}
	return r
}

func trafficAdjustment(t models.TrafficInfo) factorResult {
	r := factorResult{confidence: trafficConfidence}

	delay := t.DelayMin()
	if delay > 5 {
		buffer := delay
		if buffer > maxTrafficBufferMinutes {
			buffer = maxTrafficBufferMinutes
		}
		r.minutes += buffer
		r.recommendations = append(r.recommendations, fmt.Sprintf("congestion adds about %d minutes — leave early", delay))
		if delay > heavyTrafficDelayMins {
			r.confidence = trafficDelayConfidence
		}
	}

	if len(t.Warnings) > 0 {
		r.minutes += 10
		r.recommendations = append(r.recommendations, "route warnings: "+strings.Join(t.Warnings, ", "))
	}

	if t.Recommendation != "" {
		r.recommendations = append(r.recommendations, t.Recommendation)
	}
	return r
}

func timeOfDayAdjustment(eventStart time.Time, ec models.EventContext) factorResult {
	var r factorResult
	hour := eventStart.Hour()

	if ((hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19)) && ec.RequiresTravel {
		r.minutes += 15
		r.recommendations = append(r.recommendations, "rush hour — extra travel margin added")
	}
	if hour < 8 {
		r.minutes += 10
		r.recommendations = append(r.recommendations, "early start — extra preparation time added")
	}
	if hour >= 20 {
		r.minutes += 5
		r.recommendations = append(r.recommendations, "evening event — check your way home")
	}
	return r
}

// adjustmentReason summarizes which factors drove the adjustment.
func adjustmentReason(adjustmentMinutes int, w *models.WeatherInfo, t *models.TrafficInfo) string {
	if adjustmentMinutes == 0 {
		return "standard reminder timing"
	}

	var factors []string
	if w != nil {
		if w.PrecipitationMm > 0.5 {
			factors = append(factors, "rain forecast")
		}
		if w.TemperatureC < 5 {
			factors = append(factors, "low temperature")
		}
		if w.TemperatureC > 30 {
			factors = append(factors, "high temperature")
		}
		if len(w.Alerts) > 0 {
			factors = append(factors, "weather alert")
		}
	}
	if t != nil {
		if t.DelayMin() > 5 {
			factors = append(factors, "traffic congestion")
		}
		if len(t.Warnings) > 0 {
			factors = append(factors, "route warnings")
		}
	}

	if len(factors) == 0 {
		return fmt.Sprintf("moved %d minutes earlier for the time of day", adjustmentMinutes)
	}
	return fmt.Sprintf("moved %d minutes earlier for %s", adjustmentMinutes, strings.Join(factors, ", "))
}
