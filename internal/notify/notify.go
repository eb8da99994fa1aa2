// Package notify holds the narrow rendering and delivery contracts the
// reminder core hands finished reminders to, template-id selection, and the
// built-in delivery channels. The core decides which template applies; it
// never parses template syntax itself.
package notify

import (
	"context"
	"fmt"
	"time"

	"remindcal/internal/models"
)

// Template identifiers understood by renderers.
const (
	TemplateStandard    = "standard_reminder"
	TemplateWeather     = "weather_reminder"
	TemplateTraffic     = "traffic_departure"
	TemplatePreparation = "preparation_reminder"
	TemplateEscalation  = "escalation_urgent"
)

// Renderer turns a template id and a reminder into deliverable text.
type Renderer interface {
	Render(templateID string, rem models.Reminder) (string, error)
}

// Deliverer sends rendered text to a recipient. Delivery is best effort;
// a returned error marks the attempt failed, nothing more.
type Deliverer interface {
	Deliver(ctx context.Context, text, recipientID string) error
}

// TemplateFor selects the template id for a reminder based on its kind and
// which context factors were present when it was scheduled.
func TemplateFor(rem models.Reminder) string {
	switch {
	case rem.Adjustment != nil && rem.Adjustment.Weather != nil && rem.WeatherDependent:
		return TemplateWeather
	case rem.Adjustment != nil && rem.Adjustment.Traffic != nil && rem.TrafficDependent:
		return TemplateTraffic
	case rem.Kind == models.KindPreparation:
		return TemplatePreparation
	case rem.Kind == models.KindEscalation:
		return TemplateEscalation
	default:
		return TemplateStandard
	}
}

const startTimeLayout = "Jan 2 15:04"

// ReminderMessage produces the base text for a reminder of the given kind.
func ReminderMessage(summary string, eventStart time.Time, kind models.ReminderKind, prepMinutes, travelMinutes int) string {
	if summary == "" {
		summary = "your event"
	}
	start := eventStart.Format(startTimeLayout)
	switch kind {
	case models.KindPreparation:
		return fmt.Sprintf("Time to prepare: %s\nStarts: %s\nPreparation: %d min", summary, start, prepMinutes)
	case models.KindDeparture:
		return fmt.Sprintf("Time to leave: %s\nStarts: %s\nTravel: %d min", summary, start, travelMinutes)
	case models.KindFollowUp:
		return fmt.Sprintf("Follow-up: %s\nPlease confirm completion", summary)
	case models.KindEscalation:
		return fmt.Sprintf("URGENT: %s\nStarts: %s\nPlease confirm immediately", summary, start)
	default:
		return fmt.Sprintf("Upcoming event: %s\nStarts: %s", summary, start)
	}
}

// StageMessage produces the default text for a catalog stage reminder.
func StageMessage(summary string, eventStart time.Time, stageName string, minutesBefore int, isEscalation bool) string {
	if summary == "" {
		summary = "your event"
	}
	var urgency string
	switch {
	case isEscalation:
		urgency = "Urgent notice"
	case minutesBefore <= 15:
		urgency = "Starting soon"
	case minutesBefore <= 60:
		urgency = "Coming up"
	default:
		urgency = "Scheduled event"
	}
	return fmt.Sprintf("%s: %s\nStarts: %s\n(%s reminder)",
		urgency, summary, eventStart.Format(startTimeLayout), stageName)
}

// SnoozeLimitMessage is the text of the escalation raised when a reminder
// exhausts its snooze allowance.
func SnoozeLimitMessage(summary string, eventStart time.Time) string {
	if summary == "" {
		summary = "your event"
	}
	return fmt.Sprintf("URGENT: %s\n\nSnooze limit reached.\nThe event is approaching.\n\nStarts: %s",
		summary, eventStart.Format(startTimeLayout))
}
