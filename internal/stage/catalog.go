// Package stage defines the catalog of candidate reminder stages: a default
// table merged with per-event-type user overrides, filtered by applicability
// conditions and ordered furthest-first.
package stage

import (
	"fmt"
	"sort"
	"strings"

	"remindcal/internal/models"
	"remindcal/internal/prefs"
)

// Condition gates a stage on an event-context field. Operators: "equals",
// "in", "contains", "greaterThan", "lessThan". Unknown fields or operators
// evaluate to true so a bad override never silently drops a stage.
type Condition struct {
	Field    string   `json:"field"`    // "importance" or "eventType"
	Operator string   `json:"operator"` //
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"` // for "in"
}

// Stage is one candidate reminder: a lead time, a priority and optional
// applicability conditions. Stages are configuration, not instances.
type Stage struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	MinutesBefore int                 `json:"minutesBefore"`
	Priority      models.Priority     `json:"priority"`
	Kind          models.ReminderKind `json:"kind"`
	IsEscalation  bool                `json:"isEscalation,omitempty"`
	CustomMessage string              `json:"customMessage,omitempty"`
	Conditions    []Condition         `json:"conditions,omitempty"`
}

// Config is the per-event stage configuration persisted between the
// scheduling pass and later lifecycle calls.
type Config struct {
	EventID           string               `json:"eventId"`
	UserID            string               `json:"userId"`
	Context           models.EventContext  `json:"context"`
	Stages            []Stage              `json:"stages"`
	EscalationEnabled bool                 `json:"escalationEnabled"`
	Snooze            prefs.SnoozeSettings `json:"snooze"`
}

func importanceAtLeastHigh() []Condition {
	return []Condition{{Field: "importance", Operator: "in", Values: []string{"high", "critical"}}}
}

// Defaults returns the default stage table.
func Defaults() []Stage {
	return []Stage{
		{
			ID: "day_before", Name: "1 day before", MinutesBefore: 24 * 60,
			Priority: models.PriorityLow, Kind: models.KindStandard,
			Conditions: importanceAtLeastHigh(),
		},
		{
			ID: "four_hours", Name: "4 hours before", MinutesBefore: 4 * 60,
			Priority: models.PriorityNormal, Kind: models.KindStandard,
			Conditions: importanceAtLeastHigh(),
		},
		{
			ID: "one_hour", Name: "1 hour before", MinutesBefore: 60,
			Priority: models.PriorityNormal, Kind: models.KindStandard,
		},
		{
			ID: "thirty_minutes", Name: "30 minutes before", MinutesBefore: 30,
			Priority: models.PriorityHigh, Kind: models.KindStandard,
		},
		{
			ID: "fifteen_minutes", Name: "15 minutes before", MinutesBefore: 15,
			Priority: models.PriorityHigh, Kind: models.KindStandard,
			Conditions: importanceAtLeastHigh(),
		},
		{
			ID: "five_minutes", Name: "5 minutes before", MinutesBefore: 5,
			Priority: models.PriorityUrgent, Kind: models.KindEscalation, IsEscalation: true,
			Conditions: []Condition{{Field: "importance", Operator: "equals", Value: "critical"}},
		},
	}
}

// BuildConfig assembles the stage configuration for one event: defaults,
// merged with the user's event-type overrides, filtered by the context, and
// sorted by lead time descending.
func BuildConfig(eventID, userID string, ec models.EventContext, p prefs.Preferences) Config {
	stages := Defaults()

	if ec.EventType != "" {
		if setting := p.EventTypeSetting(ec.EventType); setting != nil && len(setting.ReminderMinutes) > 0 {
			stages = Merge(stages, customStages(ec.EventType, *setting))
		}
	}

	applicable := stages[:0]
	for _, s := range stages {
		if EvaluateConditions(s, ec) {
			applicable = append(applicable, s)
		}
	}
	stages = applicable

	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].MinutesBefore > stages[j].MinutesBefore
	})

	return Config{
		EventID:           eventID,
		UserID:            userID,
		Context:           ec,
		Stages:            stages,
		EscalationEnabled: ec.Importance.AtLeast(models.ImportanceHigh),
		Snooze:            p.Snooze,
	}
}

// customStages expands an event-type setting into stages.
func customStages(eventType string, setting prefs.EventTypeSetting) []Stage {
	priority := setting.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	out := make([]Stage, 0, len(setting.ReminderMinutes))
	for i, minutes := range setting.ReminderMinutes {
		out = append(out, Stage{
			ID:            fmt.Sprintf("custom_%s_%d", eventType, i),
			Name:          fmt.Sprintf("%d minutes before (%s)", minutes, eventType),
			MinutesBefore: minutes,
			Priority:      priority,
			Kind:          models.KindStandard,
			CustomMessage: setting.CustomMessage,
		})
	}
	return out
}

// Merge overlays custom stages on the defaults. A custom stage replaces any
// default sharing its lead time; otherwise it is appended.
func Merge(defaults, custom []Stage) []Stage {
	merged := append([]Stage(nil), defaults...)
	for _, c := range custom {
		replaced := false
		for i := range merged {
			if merged[i].MinutesBefore == c.MinutesBefore {
				merged[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, c)
		}
	}
	return merged
}

// EvaluateConditions reports whether every condition on the stage holds for
// the context. A stage without conditions always applies.
func EvaluateConditions(s Stage, ec models.EventContext) bool {
	for _, c := range s.Conditions {
		var actual string
		switch c.Field {
		case "importance":
			actual = string(ec.Importance)
		case "eventType":
			actual = ec.EventType
		default:
			continue
		}
		if !evaluate(actual, c) {
			return false
		}
	}
	return true
}

func evaluate(actual string, c Condition) bool {
	switch c.Operator {
	case "equals":
		return actual == c.Value
	case "in":
		for _, v := range c.Values {
			if actual == v {
				return true
			}
		}
		return false
	case "contains":
		return c.Value != "" && strings.Contains(strings.ToLower(actual), strings.ToLower(c.Value))
	case "greaterThan":
		return actual > c.Value
	case "lessThan":
		return actual < c.Value
	default:
		return true
	}
}
