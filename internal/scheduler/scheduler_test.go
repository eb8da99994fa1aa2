package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindcal/internal/adjust"
	"remindcal/internal/kvstore"
	"remindcal/internal/models"
	"remindcal/internal/notify"
	"remindcal/internal/prefs"
)

type unconfiguredWeather struct{}

func (unconfiguredWeather) Weather(context.Context, models.Location, time.Time) (*models.WeatherInfo, error) {
	return nil, nil
}

type unconfiguredTraffic struct{}

func (unconfiguredTraffic) Traffic(context.Context, models.Location, models.Location, time.Time) (*models.TrafficInfo, error) {
	return nil, nil
}

type captureDeliverer struct {
	delivered []string
}

func (d *captureDeliverer) Deliver(_ context.Context, text, _ string) error {
	d.delivered = append(d.delivered, text)
	return nil
}

var schedNow = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, ps prefs.Store) (*Scheduler, *Repository, *captureDeliverer) {
	t.Helper()
	logger := testLogger()
	repo := NewRepository(kvstore.NewMemory(), logger)
	adjuster := adjust.New(unconfiguredWeather{}, unconfiguredTraffic{}, logger)
	adjuster.SetClock(func() time.Time { return schedNow })
	deliverer := &captureDeliverer{}
	sched := New(ps, adjuster, repo, notify.TextRenderer{}, deliverer, logger)
	sched.SetClock(func() time.Time { return schedNow })
	return sched, repo, deliverer
}

func TestScheduleHighImportanceUsesStages(t *testing.T) {
	ctx := context.Background()
	sched, repo, _ := newTestScheduler(t, &prefs.StaticStore{})

	// authority keyword, outside working hours, short: high but not critical
	start := time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC)
	event := models.Event{
		ID:        "e1",
		Title:     "Board dinner",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}

	rems, err := sched.Schedule(ctx, event, "u1")
	require.NoError(t, err)
	require.Len(t, rems, 5)

	assert.Equal(t, start.Add(-24*time.Hour), rems[0].FireAt)
	assert.Equal(t, "day_before", rems[0].StageID)
	assert.Equal(t, models.PriorityLow, rems[0].Priority)
	for _, rem := range rems {
		assert.Equal(t, models.StatusPending, rem.Status)
		assert.NotEmpty(t, rem.Message)
	}

	cfg, err := repo.Config(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Len(t, cfg.Stages, 5)
}

func TestScheduleCriticalDeduplicatesBurst(t *testing.T) {
	ctx := context.Background()
	sched, _, _ := newTestScheduler(t, &prefs.StaticStore{})

	start := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	event := models.Event{
		ID:        "e1",
		Title:     "Urgent board meeting",
		StartTime: start,
		EndTime:   start.Add(3 * time.Hour),
	}

	rems, err := sched.Schedule(ctx, event, "u1")
	require.NoError(t, err)

	// The critical burst lands on the same minutes as four catalog stages
	// and must collapse into them.
	require.Len(t, rems, 6)

	byMinute := make(map[time.Time]int)
	for _, rem := range rems {
		byMinute[rem.FireAt.Truncate(time.Minute)]++
	}
	for at, n := range byMinute {
		assert.Equal(t, 1, n, "duplicate reminder at %s", at)
	}

	escalations := 0
	for _, rem := range rems {
		if rem.IsEscalation() {
			escalations++
			assert.Equal(t, models.PriorityUrgent, rem.Priority)
		}
	}
	assert.Equal(t, 1, escalations)
}

func TestScheduleSkipsPastStages(t *testing.T) {
	ctx := context.Background()
	sched, _, _ := newTestScheduler(t, &prefs.StaticStore{})

	// 45 minutes away: only the 30 and 15 minute stages are still ahead.
	start := schedNow.Add(45 * time.Minute)
	event := models.Event{
		ID:        "e1",
		Title:     "Board review",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}

	rems, err := sched.Schedule(ctx, event, "u1")
	require.NoError(t, err)
	require.Len(t, rems, 2)
	assert.Equal(t, "thirty_minutes", rems[0].StageID)
	assert.Equal(t, "fifteen_minutes", rems[1].StageID)
}

func TestScheduleSinglePlan(t *testing.T) {
	ctx := context.Background()
	sched, _, _ := newTestScheduler(t, &prefs.StaticStore{})

	start := time.Date(2026, 3, 12, 13, 0, 0, 0, time.UTC)
	event := models.Event{
		ID:        "e1",
		Title:     "Dentist",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}

	rems, err := sched.Schedule(ctx, event, "u1")
	require.NoError(t, err)
	require.Len(t, rems, 1)
	assert.Equal(t, models.KindStandard, rems[0].Kind)
	assert.Equal(t, start.Add(-30*time.Minute), rems[0].FireAt)
	assert.NotNil(t, rems[0].Adjustment)
}

func TestScheduleSinglePlanWithTravel(t *testing.T) {
	ctx := context.Background()
	sched, _, _ := newTestScheduler(t, &prefs.StaticStore{})

	start := time.Date(2026, 3, 12, 13, 0, 0, 0, time.UTC)
	event := models.Event{
		ID:        "e1",
		Title:     "Checkup",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Location:  "Narita Airport",
	}

	rems, err := sched.Schedule(ctx, event, "u1")
	require.NoError(t, err)

	var departure *models.Reminder
	for i := range rems {
		if rems[i].Kind == models.KindDeparture {
			departure = &rems[i]
		}
	}
	require.NotNil(t, departure)
	assert.Equal(t, models.PriorityHigh, departure.Priority)
	assert.True(t, departure.TrafficDependent)
	// Plan is ordered earliest first.
	for i := 1; i < len(rems); i++ {
		assert.False(t, rems[i].FireAt.Before(rems[i-1].FireAt))
	}
}

func TestScheduleEventTypeExtras(t *testing.T) {
	ctx := context.Background()
	ps := &prefs.StaticStore{ByUser: map[string]prefs.Preferences{}}
	p := prefs.Defaults("u1")
	p.EventTypeSettings = []prefs.EventTypeSetting{{
		EventType:       "general",
		ReminderMinutes: []int{120},
		CustomMessage:   "Heads up: {summary}",
	}}
	ps.ByUser["u1"] = p
	sched, _, _ := newTestScheduler(t, ps)

	start := time.Date(2026, 3, 12, 13, 0, 0, 0, time.UTC)
	event := models.Event{ID: "e1", Title: "Dentist", StartTime: start, EndTime: start.Add(30 * time.Minute)}

	rems, err := sched.Schedule(ctx, event, "u1")
	require.NoError(t, err)
	require.Len(t, rems, 2)
	assert.Equal(t, start.Add(-120*time.Minute), rems[0].FireAt)
	assert.Equal(t, "Heads up: Dentist", rems[0].Message)
}

func TestProcessDue(t *testing.T) {
	ctx := context.Background()
	sched, repo, deliverer := newTestScheduler(t, &prefs.StaticStore{})

	due := testReminder("r1", "e1", "u1")
	due.FireAt = schedNow.Add(-time.Minute)
	due.Message = "hello"
	require.NoError(t, repo.Save(ctx, due))

	future := testReminder("r2", "e1", "u1")
	future.FireAt = schedNow.Add(time.Hour)
	require.NoError(t, repo.Save(ctx, future))

	stats, err := sched.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, []string{"hello"}, deliverer.delivered)

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusSent, got.Status)
	assert.Equal(t, 1, got.DeliveryAttempts)

	got, err = repo.Get(ctx, "r2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestProcessDueWakesElapsedSnoozes(t *testing.T) {
	ctx := context.Background()
	sched, repo, deliverer := newTestScheduler(t, &prefs.StaticStore{})

	rem := testReminder("r1", "e1", "u1")
	rem.Status = models.StatusSnoozed
	rem.FireAt = schedNow.Add(-time.Minute)
	rem.SnoozedUntil = schedNow.Add(-time.Minute)
	rem.EventStart = schedNow.Add(30 * time.Minute)
	require.NoError(t, repo.Save(ctx, rem))

	stats, err := sched.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	// No explicit message stored, so the renderer supplies the text.
	require.Len(t, deliverer.delivered, 1)
	assert.Contains(t, deliverer.delivered[0], "Review")
}

func TestCancelEvent(t *testing.T) {
	ctx := context.Background()
	sched, repo, _ := newTestScheduler(t, &prefs.StaticStore{})

	start := time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC)
	event := models.Event{ID: "e1", Title: "Board dinner", StartTime: start, EndTime: start.Add(time.Hour)}
	_, err := sched.Schedule(ctx, event, "u1")
	require.NoError(t, err)

	require.NoError(t, sched.CancelEvent(ctx, "e1"))

	byUser, err := repo.ByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, byUser)

	cfg, err := repo.Config(ctx, "e1")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestUserStats(t *testing.T) {
	ctx := context.Background()
	sched, repo, _ := newTestScheduler(t, &prefs.StaticStore{})

	sent := testReminder("r1", "e1", "u1")
	sent.Status = models.StatusDelivered
	require.NoError(t, repo.Save(ctx, sent))

	snoozed := testReminder("r2", "e1", "u1")
	snoozed.Status = models.StatusSnoozed
	snoozed.Response = &models.UserResponse{Type: models.ResponseSnoozed}
	require.NoError(t, repo.Save(ctx, snoozed))

	stats, err := sched.UserStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[models.StatusDelivered])
	assert.InDelta(t, 0.5, stats.SnoozeRate, 1e-9)
	assert.InDelta(t, 0.5, stats.DeliveryRate, 1e-9)
}
