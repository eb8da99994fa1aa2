package models

import "time"

// Importance is the classified importance tier of an event.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceNormal   Importance = "normal"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// AtLeast reports whether i is equal to or above the given tier.
func (i Importance) AtLeast(other Importance) bool {
	return importanceRank(i) >= importanceRank(other)
}

func importanceRank(i Importance) int {
	switch i {
	case ImportanceCritical:
		return 3
	case ImportanceHigh:
		return 2
	case ImportanceNormal:
		return 1
	default:
		return 0
	}
}

// EventContext holds the structured attributes derived from a raw event.
// It is immutable for the duration of a scheduling pass.
type EventContext struct {
	EventType      string     `json:"eventType"`
	Importance     Importance `json:"importance"`
	IsRecurring    bool       `json:"isRecurring,omitempty"`
	HasPreparation bool       `json:"hasPreparation"`
	RequiresTravel bool       `json:"requiresTravel"`
	Attendees      []string   `json:"attendees,omitempty"`
	Location       *Location  `json:"location,omitempty"`
}

// WeatherInfo is a weather snapshot for a location and time, as returned by
// the weather collaborator.
type WeatherInfo struct {
	Condition       string   `json:"condition"`
	TemperatureC    float64  `json:"temperatureC"`
	PrecipitationMm float64  `json:"precipitationMm"`
	WindKph         float64  `json:"windKph"`
	Alerts          []string `json:"alerts,omitempty"`
	Recommendation  string   `json:"recommendation,omitempty"`
}

// TrafficInfo is a route snapshot between two locations, as returned by the
// traffic collaborator.
type TrafficInfo struct {
	DurationMin          int      `json:"durationMin"`
	DurationInTrafficMin int      `json:"durationInTrafficMin"`
	DistanceKm           int      `json:"distanceKm"`
	Route                string   `json:"route,omitempty"`
	Warnings             []string `json:"warnings,omitempty"`
	Recommendation       string   `json:"recommendation,omitempty"`
}

// DelayMin returns the extra minutes attributable to current traffic.
func (t TrafficInfo) DelayMin() int {
	return t.DurationInTrafficMin - t.DurationMin
}

// ContextAdjustment is the result of blending a base reminder lead time with
// weather, traffic and time-of-day corrections. It is transient and never
// persisted on its own.
type ContextAdjustment struct {
	OriginalTime      time.Time    `json:"originalTime"`
	AdjustedTime      time.Time    `json:"adjustedTime"`
	AdjustmentMinutes int          `json:"adjustmentMinutes"`
	Reason            string       `json:"reason"`
	Confidence        float64      `json:"confidence"`
	Weather           *WeatherInfo `json:"weather,omitempty"`
	Traffic           *TrafficInfo `json:"traffic,omitempty"`
	Recommendations   []string     `json:"recommendations,omitempty"`
}
