// Package scheduler orchestrates reminder creation: it classifies the event,
// builds the applicable stage set, asks the context adjuster for corrected
// fire times, and persists the resulting reminders. It also processes due
// reminders and reports per-user statistics.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"remindcal/internal/adjust"
	"remindcal/internal/eventcontext"
	"remindcal/internal/models"
	"remindcal/internal/notify"
	"remindcal/internal/prefs"
	"remindcal/internal/stage"
)

// Departure reminders leave this margin on top of the travel time.
const departureMarginMinutes = 15

// Preparation reminders assume this much preparation work.
const preparationMinutes = 30

// Critical events get a fixed secondary burst at these leads regardless of
// the catalog. Critical events are over-reminded intentionally.
var criticalBurstLeads = []int{24 * 60, 4 * 60, 60, 15}

// Scheduler creates and manages scheduled reminders. Construct with New;
// each scheduling pass is an independent unit of work and the type is safe
// for concurrent use.
type Scheduler struct {
	prefs     prefs.Store
	builder   *eventcontext.Builder
	adjuster  *adjust.Adjuster
	repo      *Repository
	renderer  notify.Renderer
	deliverer notify.Deliverer
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// New creates a Scheduler.
func New(ps prefs.Store, adjuster *adjust.Adjuster, repo *Repository, renderer notify.Renderer, deliverer notify.Deliverer, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		prefs:     ps,
		builder:   eventcontext.NewBuilder(),
		adjuster:  adjuster,
		repo:      repo,
		renderer:  renderer,
		deliverer: deliverer,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// SetClock overrides the time source. Tests only.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Schedule builds the full reminder set for an event. High and critical
// importance events get the multi-stage treatment; everything else gets the
// single plan. Failure to build any reminders at all is reported to the
// caller, because the event-creation flow must know scheduling did not
// happen.
func (s *Scheduler) Schedule(ctx context.Context, event models.Event, userID string) ([]models.Reminder, error) {
	p, err := s.prefs.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule reminders for event %s: %w", event.ID, err)
	}
	ec := s.builder.Build(event, p)

	if ec.Importance.AtLeast(models.ImportanceHigh) {
		rems, err := s.ScheduleStages(ctx, event, userID, ec, p)
		if err != nil {
			s.logger.Error("Multi-stage scheduling failed, falling back to single plan", "eventID", event.ID, "error", err)
		} else if len(rems) > 0 {
			return rems, nil
		}
	}
	return s.scheduleSingle(ctx, event, userID, ec, p)
}

// ScheduleStages runs the stage-catalog scheduling pass with an already
// classified context. The lifecycle manager reuses this on postponement,
// where the original classification persists.
func (s *Scheduler) ScheduleStages(ctx context.Context, event models.Event, userID string, ec models.EventContext, p prefs.Preferences) ([]models.Reminder, error) {
	cfg := stage.BuildConfig(event.ID, userID, ec, p)
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to persist stage config for event %s: %w", event.ID, err)
	}

	now := s.now()
	var plan []models.Reminder

	for _, st := range cfg.Stages {
		fireAt := event.StartTime.Add(-time.Duration(st.MinutesBefore) * time.Minute)
		if !fireAt.After(now) {
			s.logger.Debug("Skipping stage, fire time already passed", "eventID", event.ID, "stage", st.ID)
			continue
		}

		var adjustment *models.ContextAdjustment
		if st.Kind == models.KindDeparture || ec.RequiresTravel {
			a := s.adjuster.Adjust(ctx, event.StartTime, ec, p.Home(), st.MinutesBefore)
			if a.AdjustedTime.IsZero() {
				s.logger.Warn("Context adjustment returned no usable time, using standard timing", "eventID", event.ID, "stage", st.ID)
			} else {
				fireAt = a.AdjustedTime
				adjustment = &a
			}
		}

		rem := models.Reminder{
			ID:         s.newID(),
			EventID:    event.ID,
			UserID:     userID,
			Summary:    event.Title,
			EventStart: event.StartTime,
			FireAt:     fireAt,
			Kind:       st.Kind,
			Priority:   st.Priority,
			StageID:    st.ID,
			Message:    stageMessage(event, st),
			Context:    ec,
			Adjustment: adjustment,
			Status:     models.StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		plan = append(plan, rem)
	}

	plan = append(plan, s.criticalBurst(event, userID, ec, now)...)
	plan = dedupByMinute(plan)

	return s.persist(ctx, event.ID, plan)
}

// scheduleSingle builds the non-catalog reminder plan: one context-adjusted
// standard reminder plus preparation, departure and event-type extras.
func (s *Scheduler) scheduleSingle(ctx context.Context, event models.Event, userID string, ec models.EventContext, p prefs.Preferences) ([]models.Reminder, error) {
	now := s.now()
	lead := p.DefaultReminderMinutes
	if lead <= 0 {
		lead = prefs.Defaults(userID).DefaultReminderMinutes
	}
	var plan []models.Reminder

	add := func(rem models.Reminder) {
		rem.ID = s.newID()
		rem.EventID = event.ID
		rem.UserID = userID
		rem.Summary = event.Title
		rem.EventStart = event.StartTime
		rem.Context = ec
		rem.Status = models.StatusPending
		rem.CreatedAt = now
		rem.UpdatedAt = now
		rem.WeatherDependent = eventcontext.WeatherDependent(ec)
		rem.TrafficDependent = eventcontext.TrafficDependent(ec)
		plan = append(plan, rem)
	}

	a := s.adjuster.Adjust(ctx, event.StartTime, ec, p.Home(), lead)
	if a.AdjustedTime.After(now) {
		adj := a
		add(models.Reminder{
			FireAt:     a.AdjustedTime,
			Kind:       models.KindStandard,
			Priority:   models.PriorityNormal,
			Adjustment: &adj,
			Factors:    []string{"user_preference", "weather", "traffic", "time_of_day"},
		})
	}

	if ec.HasPreparation {
		fireAt := event.StartTime.Add(-time.Duration(preparationMinutes+lead) * time.Minute)
		if fireAt.After(now) {
			add(models.Reminder{
				FireAt:             fireAt,
				Kind:               models.KindPreparation,
				Priority:           models.PriorityNormal,
				PreparationMinutes: preparationMinutes,
				Factors:            []string{"preparation_needed"},
			})
		}
	}

	if eventcontext.TrafficDependent(ec) {
		base := ec.Location.TravelTimeMinutes + departureMarginMinutes
		da := s.adjuster.Adjust(ctx, event.StartTime, ec, p.Home(), base)
		if da.AdjustedTime.After(now) {
			adj := da
			add(models.Reminder{
				FireAt:     da.AdjustedTime,
				Kind:       models.KindDeparture,
				Priority:   models.PriorityHigh,
				Adjustment: &adj,
				Factors:    []string{"travel_required", "traffic_dependent", "weather_dependent"},
			})
		}
	}

	if setting := p.EventTypeSetting(ec.EventType); setting != nil {
		priority := setting.Priority
		if priority == "" {
			priority = models.PriorityNormal
		}
		for _, minutes := range setting.ReminderMinutes {
			fireAt := event.StartTime.Add(-time.Duration(minutes) * time.Minute)
			if fireAt.After(now) {
				add(models.Reminder{
					FireAt:   fireAt,
					Kind:     models.KindStandard,
					Priority: priority,
					Message:  renderCustomMessage(setting.CustomMessage, event),
					Factors:  []string{"event_type_specific"},
				})
			}
		}
	}

	plan = append(plan, s.criticalBurst(event, userID, ec, now)...)

	// Earliest first; the single plan keeps coincident reminders because
	// the standard and event-type entries are intentionally distinct.
	sortByFireTime(plan)
	return s.persist(ctx, event.ID, plan)
}

// criticalBurst is the fixed secondary reminder set critical events receive
// regardless of the catalog.
func (s *Scheduler) criticalBurst(event models.Event, userID string, ec models.EventContext, now time.Time) []models.Reminder {
	if ec.Importance != models.ImportanceCritical {
		return nil
	}
	var out []models.Reminder
	for _, minutes := range criticalBurstLeads {
		fireAt := event.StartTime.Add(-time.Duration(minutes) * time.Minute)
		if !fireAt.After(now) {
			continue
		}
		out = append(out, models.Reminder{
			ID:         s.newID(),
			EventID:    event.ID,
			UserID:     userID,
			Summary:    event.Title,
			EventStart: event.StartTime,
			FireAt:     fireAt,
			Kind:       models.KindStandard,
			Priority:   models.PriorityHigh,
			Context:    ec,
			Factors:    []string{"high_importance"},
			Status:     models.StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return out
}

// persist stores the planned reminders. Individual failures are logged and
// skipped; only losing the entire plan is an error.
func (s *Scheduler) persist(ctx context.Context, eventID string, plan []models.Reminder) ([]models.Reminder, error) {
	if len(plan) == 0 {
		return nil, nil
	}
	var saved []models.Reminder
	for i := range plan {
		if err := s.repo.Save(ctx, plan[i]); err != nil {
			s.logger.Error("Failed to store reminder, continuing with the rest", "eventID", eventID, "reminderID", plan[i].ID, "error", err)
			continue
		}
		saved = append(saved, plan[i])
	}
	if len(saved) == 0 {
		return nil, fmt.Errorf("failed to store any of %d reminders for event %s", len(plan), eventID)
	}
	s.logger.Info("Scheduled reminders", "eventID", eventID, "count", len(saved))
	return saved, nil
}

// CancelEvent cancels every reminder for an event and discards its stage
// configuration.
func (s *Scheduler) CancelEvent(ctx context.Context, eventID string) error {
	if _, err := s.repo.CancelByEvent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to cancel reminders for event %s: %w", eventID, err)
	}
	if err := s.repo.DeleteConfig(ctx, eventID); err != nil {
		return fmt.Errorf("failed to discard stage config for event %s: %w", eventID, err)
	}
	return nil
}

// Reschedule cancels an event's reminders and schedules a fresh set against
// the updated event.
func (s *Scheduler) Reschedule(ctx context.Context, event models.Event, userID string) ([]models.Reminder, error) {
	if err := s.CancelEvent(ctx, event.ID); err != nil {
		return nil, err
	}
	return s.Schedule(ctx, event, userID)
}

// DueStats summarizes one due-processing sweep.
type DueStats struct {
	Processed int
	Sent      int
	Failed    int
}

// ProcessDue delivers every pending reminder whose fire time has passed.
// Snoozed reminders whose snooze has elapsed return to pending first.
// Delivery errors mark the reminder failed and the sweep continues.
func (s *Scheduler) ProcessDue(ctx context.Context) (DueStats, error) {
	var stats DueStats
	now := s.now()

	users, err := s.repo.Users(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list reminder users: %w", err)
	}
	for _, userID := range users {
		rems, err := s.repo.ByUser(ctx, userID)
		if err != nil {
			s.logger.Error("Failed to load reminders for user", "userID", userID, "error", err)
			continue
		}
		for i := range rems {
			rem := rems[i]
			if rem.Status == models.StatusSnoozed && !rem.SnoozedUntil.IsZero() && !rem.SnoozedUntil.After(now) {
				rem.Status = models.StatusPending
			}
			if rem.Status != models.StatusPending || rem.FireAt.After(now) {
				continue
			}
			stats.Processed++
			if err := s.deliver(ctx, &rem); err != nil {
				s.logger.Error("Failed to deliver reminder", "reminderID", rem.ID, "error", err)
				stats.Failed++
				rem.Status = models.StatusFailed
			} else {
				stats.Sent++
				rem.Status = models.StatusSent
			}
			rem.DeliveryAttempts++
			rem.LastAttemptAt = now
			if err := s.repo.Update(ctx, &rem); err != nil {
				s.logger.Error("Failed to record delivery attempt", "reminderID", rem.ID, "error", err)
			}
		}
	}
	return stats, nil
}

func (s *Scheduler) deliver(ctx context.Context, rem *models.Reminder) error {
	recipient := rem.UserID
	if recipient == "" {
		recipient = rem.GroupID
	}
	if recipient == "" {
		return fmt.Errorf("reminder %s has no recipient", rem.ID)
	}

	text := rem.Message
	if text == "" {
		rendered, err := s.renderer.Render(notify.TemplateFor(*rem), *rem)
		if err != nil {
			return fmt.Errorf("failed to render reminder %s: %w", rem.ID, err)
		}
		text = rendered
	}
	if err := s.deliverer.Deliver(ctx, text, recipient); err != nil {
		return fmt.Errorf("delivery failed for reminder %s: %w", rem.ID, err)
	}
	return nil
}

// Stats aggregates a user's reminders by kind and status.
type Stats struct {
	Total        int                           `json:"total"`
	ByKind       map[models.ReminderKind]int   `json:"byKind"`
	ByStatus     map[models.DeliveryStatus]int `json:"byStatus"`
	SnoozeRate   float64                       `json:"snoozeRate"`
	DeliveryRate float64                       `json:"deliveryRate"`
}

// UserStats computes reminder statistics for one user.
func (s *Scheduler) UserStats(ctx context.Context, userID string) (Stats, error) {
	stats := Stats{
		ByKind:   make(map[models.ReminderKind]int),
		ByStatus: make(map[models.DeliveryStatus]int),
	}
	rems, err := s.repo.ByUser(ctx, userID)
	if err != nil {
		return stats, fmt.Errorf("failed to compute stats for user %s: %w", userID, err)
	}

	snoozed, delivered := 0, 0
	for i := range rems {
		stats.Total++
		stats.ByKind[rems[i].Kind]++
		stats.ByStatus[rems[i].Status]++
		if rems[i].Response != nil && rems[i].Response.Type == models.ResponseSnoozed {
			snoozed++
		}
		if rems[i].Status == models.StatusDelivered {
			delivered++
		}
	}
	if stats.Total > 0 {
		stats.SnoozeRate = float64(snoozed) / float64(stats.Total)
		stats.DeliveryRate = float64(delivered) / float64(stats.Total)
	}
	return stats, nil
}

// Repo exposes the repository for the lifecycle manager.
func (s *Scheduler) Repo() *Repository {
	return s.repo
}

// stageMessage builds the message for a catalog stage, honoring any custom
// template text with {summary}/{startTime}/{stageName} placeholders.
func stageMessage(event models.Event, st stage.Stage) string {
	if st.CustomMessage != "" {
		return strings.NewReplacer(
			"{summary}", event.Title,
			"{startTime}", event.StartTime.Format("Jan 2 15:04"),
			"{stageName}", st.Name,
		).Replace(st.CustomMessage)
	}
	return notify.StageMessage(event.Title, event.StartTime, st.Name, st.MinutesBefore, st.IsEscalation)
}

// renderCustomMessage resolves an event-type custom message, if any.
func renderCustomMessage(custom string, event models.Event) string {
	if custom == "" {
		return ""
	}
	return strings.NewReplacer(
		"{summary}", event.Title,
		"{startTime}", event.StartTime.Format("Jan 2 15:04"),
	).Replace(custom)
}

// dedupByMinute drops reminders whose fire time falls in the same minute as
// an earlier one, keeping the first occurrence.
func dedupByMinute(plan []models.Reminder) []models.Reminder {
	seen := make(map[int64]bool, len(plan))
	out := plan[:0]
	for _, rem := range plan {
		key := rem.FireAt.Truncate(time.Minute).Unix()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rem)
	}
	return out
}

func sortByFireTime(plan []models.Reminder) {
	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].FireAt.Before(plan[j].FireAt)
	})
}
