package notify

import (
	"fmt"
	"strings"

	"remindcal/internal/models"
)

// TextRenderer is the built-in plain-text Renderer. Each template id maps to
// a fixed layout; there is no user template syntax here.
type TextRenderer struct{}

// Render implements Renderer.
func (TextRenderer) Render(templateID string, rem models.Reminder) (string, error) {
	base := ReminderMessage(rem.Summary, rem.EventStart, rem.Kind, rem.PreparationMinutes, travelMinutes(rem))

	switch templateID {
	case TemplateStandard, TemplatePreparation, TemplateEscalation:
		return base, nil
	case TemplateWeather:
		return withContextLines(base, rem, true, false), nil
	case TemplateTraffic:
		return withContextLines(base, rem, false, true), nil
	default:
		return "", fmt.Errorf("unknown notification template %q", templateID)
	}
}

func travelMinutes(rem models.Reminder) int {
	if rem.Context.Location != nil {
		return rem.Context.Location.TravelTimeMinutes
	}
	return 0
}

// withContextLines appends the weather/traffic snapshot lines used by the
// context-aware templates.
func withContextLines(base string, rem models.Reminder, weather, traffic bool) string {
	adj := rem.Adjustment
	if adj == nil {
		return base
	}
	var lines []string

	if weather && adj.Weather != nil {
		w := adj.Weather
		lines = append(lines, fmt.Sprintf("Weather: %s, %.0f°C", w.Condition, w.TemperatureC))
		if w.PrecipitationMm > 0.5 {
			lines = append(lines, fmt.Sprintf("Precipitation: %.1fmm", w.PrecipitationMm))
		}
		if w.Recommendation != "" {
			lines = append(lines, w.Recommendation)
		}
	}
	if traffic && adj.Traffic != nil {
		t := adj.Traffic
		if delay := t.DelayMin(); delay > 5 {
			lines = append(lines, fmt.Sprintf("Traffic: about %d extra minutes", delay))
		}
		if t.Recommendation != "" {
			lines = append(lines, t.Recommendation)
		}
	}
	if adj.AdjustmentMinutes > 0 && adj.Reason != "" {
		lines = append(lines, adj.Reason)
	}
	lines = append(lines, adj.Recommendations...)

	if len(lines) == 0 {
		return base
	}
	return base + "\n\n" + strings.Join(lines, "\n")
}
