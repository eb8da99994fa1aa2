package models

import (
	"fmt"
	"time"
)

// Event represents a calendar event to schedule reminders for.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID          string    // Unique identifier for the event (e.g., from the source calendar)
	Title       string    // Summary or title of the event
	Description string    // Detailed description of the event
	StartTime   time.Time // Start time of the event
	EndTime     time.Time // End time of the event
	Location    string    // Location of the event, as free text
	Organizer   string    // Organizer's email
	Attendees   []string  // List of attendee emails
	Source      string    // The source of the event (e.g., "google")
}

// Duration returns the length of the event.
func (e Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location describes a resolved event location, including a travel-time
// estimate from the user's usual starting point.
type Location struct {
	Name              string       `json:"name"`
	Address           string       `json:"address,omitempty"`
	Coordinates       *Coordinates `json:"coordinates,omitempty"`
	TravelTimeMinutes int          `json:"travelTimeMinutes,omitempty"`
}

// Query returns the best lookup query for this location: coordinates when
// known, otherwise the raw name.
func (l Location) Query() string {
	if l.Coordinates != nil {
		return fmt.Sprintf("%f,%f", l.Coordinates.Latitude, l.Coordinates.Longitude)
	}
	return l.Name
}
