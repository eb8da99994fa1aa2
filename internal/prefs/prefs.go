// Package prefs holds user preference types and their storage. The reminder
// core only reads preferences; writing them is somebody else's job.
package prefs

import (
	"strings"

	"remindcal/internal/models"
)

// SnoozeSettings controls how snoozing behaves for a user.
type SnoozeSettings struct {
	Enabled          bool  `json:"enabled"`
	DefaultMinutes   int   `json:"defaultMinutes"`
	MaxSnoozes       int   `json:"maxSnoozes"`
	AvailableOptions []int `json:"availableOptions"`
	EscalateAfterMax bool  `json:"escalateAfterMax"`
}

// EventTypeSetting customizes reminders for one event type.
type EventTypeSetting struct {
	EventType       string          `json:"eventType"`
	ReminderMinutes []int           `json:"reminderMinutes"`
	Priority        models.Priority `json:"priority,omitempty"`
	CustomMessage   string          `json:"customMessage,omitempty"`
}

// FrequentLocation is a place the user visits often, with a known travel time.
type FrequentLocation struct {
	models.Location
	Category string `json:"category,omitempty"` // e.g. "home", "work"
}

// Preferences is the read-only view of a user's reminder preferences.
type Preferences struct {
	UserID                 string             `json:"userId"`
	DefaultReminderMinutes int                `json:"defaultReminderMinutes"`
	EventTypeSettings      []EventTypeSetting `json:"eventTypeSettings,omitempty"`
	Snooze                 SnoozeSettings     `json:"snooze"`
	HomeLocation           *models.Location   `json:"homeLocation,omitempty"`
	FrequentLocations      []FrequentLocation `json:"frequentLocations,omitempty"`
}

// Defaults returns the preferences used when a user has not configured any.
func Defaults(userID string) Preferences {
	return Preferences{
		UserID:                 userID,
		DefaultReminderMinutes: 30,
		Snooze: SnoozeSettings{
			Enabled:          true,
			DefaultMinutes:   10,
			MaxSnoozes:       3,
			AvailableOptions: []int{5, 10, 15, 30},
			EscalateAfterMax: true,
		},
	}
}

// EventTypeSetting returns the setting for the given event type, or nil.
func (p Preferences) EventTypeSetting(eventType string) *EventTypeSetting {
	for i := range p.EventTypeSettings {
		if p.EventTypeSettings[i].EventType == eventType {
			return &p.EventTypeSettings[i]
		}
	}
	return nil
}

// KnownLocation looks up a frequent location by name, case-insensitively.
func (p Preferences) KnownLocation(name string) *FrequentLocation {
	for i := range p.FrequentLocations {
		if strings.EqualFold(p.FrequentLocations[i].Name, name) {
			return &p.FrequentLocations[i]
		}
	}
	return nil
}

// Home returns the user's home location. When none is configured, the first
// frequent location tagged "home" is used; failing that, nil.
func (p Preferences) Home() *models.Location {
	if p.HomeLocation != nil {
		return p.HomeLocation
	}
	for i := range p.FrequentLocations {
		if p.FrequentLocations[i].Category == "home" {
			return &p.FrequentLocations[i].Location
		}
	}
	return nil
}
