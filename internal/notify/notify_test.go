package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindcal/internal/models"
)

var eventStart = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func TestTemplateFor(t *testing.T) {
	weatherAdj := &models.ContextAdjustment{Weather: &models.WeatherInfo{Condition: "Rain"}}
	trafficAdj := &models.ContextAdjustment{Traffic: &models.TrafficInfo{DurationMin: 30}}

	tests := []struct {
		name string
		rem  models.Reminder
		want string
	}{
		{"weather dependent", models.Reminder{Adjustment: weatherAdj, WeatherDependent: true}, TemplateWeather},
		{"weather data without dependency", models.Reminder{Adjustment: weatherAdj}, TemplateStandard},
		{"traffic dependent", models.Reminder{Adjustment: trafficAdj, TrafficDependent: true}, TemplateTraffic},
		{"preparation", models.Reminder{Kind: models.KindPreparation}, TemplatePreparation},
		{"escalation", models.Reminder{Kind: models.KindEscalation}, TemplateEscalation},
		{"plain", models.Reminder{Kind: models.KindStandard}, TemplateStandard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TemplateFor(tt.rem))
		})
	}
}

func TestRenderStandard(t *testing.T) {
	text, err := TextRenderer{}.Render(TemplateStandard, models.Reminder{
		Summary:    "Team sync",
		EventStart: eventStart,
	})
	require.NoError(t, err)
	assert.Equal(t, "Upcoming event: Team sync\nStarts: Mar 10 14:00", text)
}

func TestRenderWeatherIncludesForecast(t *testing.T) {
	rem := models.Reminder{
		Summary:    "Picnic",
		EventStart: eventStart,
		Adjustment: &models.ContextAdjustment{
			AdjustmentMinutes: 15,
			Reason:            "moved 15 minutes earlier for rain forecast",
			Weather: &models.WeatherInfo{
				Condition: "Rain", TemperatureC: 12, PrecipitationMm: 3,
				Recommendation: "bring an umbrella",
			},
		},
	}
	text, err := TextRenderer{}.Render(TemplateWeather, rem)
	require.NoError(t, err)
	assert.Contains(t, text, "Weather: Rain, 12°C")
	assert.Contains(t, text, "Precipitation: 3.0mm")
	assert.Contains(t, text, "bring an umbrella")
	assert.Contains(t, text, "moved 15 minutes earlier for rain forecast")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := TextRenderer{}.Render("nonsense", models.Reminder{})
	assert.Error(t, err)
}

func TestStageMessageUrgency(t *testing.T) {
	assert.Contains(t, StageMessage("Review", eventStart, "5 minutes before", 5, true), "Urgent notice")
	assert.Contains(t, StageMessage("Review", eventStart, "15 minutes before", 15, false), "Starting soon")
	assert.Contains(t, StageMessage("Review", eventStart, "1 hour before", 60, false), "Coming up")
	assert.Contains(t, StageMessage("Review", eventStart, "1 day before", 1440, false), "Scheduled event")
}

func TestMessagesHandleEmptySummary(t *testing.T) {
	assert.Contains(t, ReminderMessage("", eventStart, models.KindStandard, 0, 0), "your event")
	assert.Contains(t, StageMessage("", eventStart, "1 hour before", 60, false), "your event")
	assert.Contains(t, SnoozeLimitMessage("", eventStart), "your event")
}
