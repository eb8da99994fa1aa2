package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindcal/internal/models"
	"remindcal/internal/prefs"
)

func stageIDs(stages []Stage) []string {
	ids := make([]string, len(stages))
	for i, s := range stages {
		ids[i] = s.ID
	}
	return ids
}

func TestBuildConfigNormalImportance(t *testing.T) {
	cfg := BuildConfig("e1", "u1", models.EventContext{
		EventType:  "general",
		Importance: models.ImportanceNormal,
	}, prefs.Defaults("u1"))

	assert.Equal(t, []string{"one_hour", "thirty_minutes"}, stageIDs(cfg.Stages))
	assert.False(t, cfg.EscalationEnabled)
}

func TestBuildConfigCriticalImportance(t *testing.T) {
	cfg := BuildConfig("e1", "u1", models.EventContext{
		EventType:  "meeting",
		Importance: models.ImportanceCritical,
	}, prefs.Defaults("u1"))

	assert.Equal(t, []string{
		"day_before", "four_hours", "one_hour",
		"thirty_minutes", "fifteen_minutes", "five_minutes",
	}, stageIDs(cfg.Stages))
	assert.True(t, cfg.EscalationEnabled)

	last := cfg.Stages[len(cfg.Stages)-1]
	assert.True(t, last.IsEscalation)
	assert.Equal(t, models.PriorityUrgent, last.Priority)
}

func TestBuildConfigHighImportance(t *testing.T) {
	cfg := BuildConfig("e1", "u1", models.EventContext{
		EventType:  "meeting",
		Importance: models.ImportanceHigh,
	}, prefs.Defaults("u1"))

	// Everything except the critical-only escalation stage.
	assert.Equal(t, []string{
		"day_before", "four_hours", "one_hour",
		"thirty_minutes", "fifteen_minutes",
	}, stageIDs(cfg.Stages))
	assert.True(t, cfg.EscalationEnabled)
}

func TestBuildConfigCustomStages(t *testing.T) {
	p := prefs.Defaults("u1")
	p.EventTypeSettings = []prefs.EventTypeSetting{{
		EventType:       "meeting",
		ReminderMinutes: []int{90, 30},
		Priority:        models.PriorityHigh,
		CustomMessage:   "Meeting soon: {summary}",
	}}

	cfg := BuildConfig("e1", "u1", models.EventContext{
		EventType:  "meeting",
		Importance: models.ImportanceNormal,
	}, p)

	require.Equal(t, []string{"custom_meeting_0", "one_hour", "custom_meeting_1"}, stageIDs(cfg.Stages))
	// The 30 minute custom stage replaced the default at the same lead time.
	assert.Equal(t, "Meeting soon: {summary}", cfg.Stages[2].CustomMessage)
	assert.Equal(t, models.PriorityHigh, cfg.Stages[2].Priority)
}

func TestBuildConfigCarriesSnoozeSettings(t *testing.T) {
	p := prefs.Defaults("u1")
	p.Snooze.MaxSnoozes = 5

	cfg := BuildConfig("e1", "u1", models.EventContext{Importance: models.ImportanceNormal}, p)

	assert.Equal(t, 5, cfg.Snooze.MaxSnoozes)
	assert.Equal(t, "e1", cfg.EventID)
	assert.Equal(t, "u1", cfg.UserID)
}

func TestMergeReplacesSameLeadTime(t *testing.T) {
	defaults := []Stage{
		{ID: "a", MinutesBefore: 60},
		{ID: "b", MinutesBefore: 30},
	}
	custom := []Stage{
		{ID: "x", MinutesBefore: 30},
		{ID: "y", MinutesBefore: 90},
	}

	merged := Merge(defaults, custom)
	assert.Equal(t, []string{"a", "x", "y"}, stageIDs(merged))
}

func TestEvaluateConditions(t *testing.T) {
	ec := models.EventContext{EventType: "meeting", Importance: models.ImportanceHigh}

	assert.True(t, EvaluateConditions(Stage{Conditions: []Condition{
		{Field: "importance", Operator: "equals", Value: "high"},
	}}, ec))
	assert.False(t, EvaluateConditions(Stage{Conditions: []Condition{
		{Field: "importance", Operator: "in", Values: []string{"critical"}},
	}}, ec))
	assert.True(t, EvaluateConditions(Stage{Conditions: []Condition{
		{Field: "eventType", Operator: "contains", Value: "MEET"},
	}}, ec))
	// Unknown fields and operators never drop a stage.
	assert.True(t, EvaluateConditions(Stage{Conditions: []Condition{
		{Field: "mystery", Operator: "equals", Value: "x"},
	}}, ec))
	assert.True(t, EvaluateConditions(Stage{Conditions: []Condition{
		{Field: "eventType", Operator: "mystery", Value: "x"},
	}}, ec))
	assert.True(t, EvaluateConditions(Stage{}, ec))
}
