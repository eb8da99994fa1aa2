// Package eventcontext classifies raw calendar events into the structured
// attributes the reminder scheduler works with. Classification is a pure
// function of the event and the user's preferences; it performs no I/O and
// classifying the same event twice always yields the same result.
package eventcontext

import (
	"regexp"
	"strings"

	"remindcal/internal/models"
	"remindcal/internal/prefs"
)

// Importance score thresholds and signal weights.
const (
	urgencyScore     = 3
	authorityScore   = 2
	longDurationMins = 120

	workingHoursStart = 9
	workingHoursEnd   = 17

	criticalThreshold = 4
	highThreshold     = 2
	normalThreshold   = 1

	// Locations closer than this are familiar enough that a departure
	// reminder adds nothing.
	shortTravelMinutes = 10
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Builder derives an EventContext from an event. The zero value is not
// usable; construct with NewBuilder.
type Builder struct {
	typeRules   []TypeRule
	travelRules []TravelRule
}

// NewBuilder creates a Builder with the default classification tables.
func NewBuilder() *Builder {
	return &Builder{typeRules: DefaultTypeRules(), travelRules: DefaultTravelRules()}
}

// NewBuilderWithRules creates a Builder with custom classification tables.
func NewBuilderWithRules(typeRules []TypeRule, travelRules []TravelRule) *Builder {
	return &Builder{typeRules: typeRules, travelRules: travelRules}
}

// Build classifies an event against the user's preferences.
func (b *Builder) Build(event models.Event, p prefs.Preferences) models.EventContext {
	ec := models.EventContext{
		EventType:      b.DetectType(event.Title, event.Description),
		Importance:     b.Importance(event),
		HasPreparation: b.needsPreparation(event),
	}
	if event.Location != "" {
		loc := b.buildLocation(event.Location, p)
		ec.Location = &loc
		ec.RequiresTravel = !b.isVirtual(event.Location)
	}
	if event.Description != "" {
		ec.Attendees = emailPattern.FindAllString(event.Description, -1)
	}
	return ec
}

// DetectType classifies the event type from its title and description using
// the ranked keyword table. The first matching rule wins.
func (b *Builder) DetectType(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, rule := range b.typeRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return rule.Type
			}
		}
	}
	return DefaultEventType
}

// Importance accumulates keyword, duration and time-of-day signals into a
// score and maps it to a tier. The score never goes negative and the tier
// never exceeds critical.
func (b *Builder) Importance(event models.Event) models.Importance {
	text := strings.ToLower(event.Title + " " + event.Description)
	score := 0
	if containsAny(text, urgencyKeywords) {
		score += urgencyScore
	}
	if containsAny(text, authorityKeywords) {
		score += authorityScore
	}
	if event.Duration().Minutes() > longDurationMins {
		score++
	}
	if h := event.StartTime.Hour(); h >= workingHoursStart && h <= workingHoursEnd {
		score++
	}
	switch {
	case score >= criticalThreshold:
		return models.ImportanceCritical
	case score >= highThreshold:
		return models.ImportanceHigh
	case score >= normalThreshold:
		return models.ImportanceNormal
	default:
		return models.ImportanceLow
	}
}

// EstimateTravelMinutes returns a coarse travel-time estimate for an
// unrecognized location name.
func (b *Builder) EstimateTravelMinutes(location string) int {
	text := strings.ToLower(location)
	for _, rule := range b.travelRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return rule.Minutes
			}
		}
	}
	return defaultTravelMinutes
}

// TrafficDependent reports whether the context warrants a traffic-aware
// departure reminder: travel is required and the destination is not a short
// familiar trip.
func TrafficDependent(ec models.EventContext) bool {
	return ec.RequiresTravel && ec.Location != nil && ec.Location.TravelTimeMinutes > shortTravelMinutes
}

// WeatherDependent reports whether the context warrants weather lookups:
// a location is present and not recognized as virtual or indoor.
func WeatherDependent(ec models.EventContext) bool {
	if ec.Location == nil {
		return false
	}
	name := strings.ToLower(ec.Location.Name)
	for _, kw := range []string{"オンライン", "online", "会議室", "オフィス", "office"} {
		if strings.Contains(name, kw) {
			return false
		}
	}
	return true
}

func (b *Builder) needsPreparation(event models.Event) bool {
	text := strings.ToLower(event.Title + " " + event.Description)
	return containsAny(text, preparationKeywords)
}

func (b *Builder) isVirtual(location string) bool {
	return containsAny(strings.ToLower(location), virtualKeywords)
}

// buildLocation resolves a raw location string against the user's frequent
// locations, falling back to a keyword estimate for unknown places.
func (b *Builder) buildLocation(location string, p prefs.Preferences) models.Location {
	if known := p.KnownLocation(location); known != nil {
		return known.Location
	}
	return models.Location{
		Name:              location,
		TravelTimeMinutes: b.EstimateTravelMinutes(location),
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
