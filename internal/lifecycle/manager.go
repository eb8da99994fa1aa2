// Package lifecycle handles everything that happens to a reminder after it
// has been scheduled: snoozing, escalation after repeated snoozes, event
// postponement and user responses.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"remindcal/internal/models"
	"remindcal/internal/notify"
	"remindcal/internal/prefs"
	"remindcal/internal/scheduler"
)

// Escalation reminders fire this long after the snooze limit is hit.
const escalationDelay = 5 * time.Minute

// Manager mutates stored reminders in response to user actions. Snooze and
// Postpone report outcomes through result structs rather than errors, so a
// denied snooze never reads like a system failure.
type Manager struct {
	repo   *scheduler.Repository
	sched  *scheduler.Scheduler
	prefs  prefs.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New creates a Manager.
func New(repo *scheduler.Repository, sched *scheduler.Scheduler, ps prefs.Store, logger *slog.Logger) *Manager {
	return &Manager{
		repo:   repo,
		sched:  sched,
		prefs:  ps,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// SetClock overrides the time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// SnoozeResult is the outcome of a snooze request.
type SnoozeResult struct {
	Success    bool      `json:"success"`
	NextFireAt time.Time `json:"nextFireAt,omitempty"`
	Escalated  bool      `json:"escalated"`
	Reason     string    `json:"reason,omitempty"`
}

// PostponeResult is the outcome of postponing an event's reminders.
type PostponeResult struct {
	Success          bool              `json:"success"`
	UpdatedReminders []models.Reminder `json:"updatedReminders,omitempty"`
	Reason           string            `json:"reason,omitempty"`
}

// EscalationStatus describes where a reminder stands against its snooze limit.
type EscalationStatus struct {
	SnoozeCount  int  `json:"snoozeCount"`
	MaxSnoozes   int  `json:"maxSnoozes"`
	WillEscalate bool `json:"willEscalate"`
}

// Snooze pushes a reminder forward by the given number of minutes. A zero
// or negative value uses the user's default. Once the snooze limit is hit
// no further snoozing happens: when configured, an urgent escalation
// reminder is raised in its place, otherwise the request is refused.
func (m *Manager) Snooze(ctx context.Context, reminderID string, minutes int) SnoozeResult {
	rem, err := m.repo.Get(ctx, reminderID)
	if err != nil {
		m.logger.Error("Failed to load reminder for snooze", "reminderID", reminderID, "error", err)
		return SnoozeResult{Reason: "reminder lookup failed"}
	}
	if rem == nil {
		return SnoozeResult{Reason: "reminder not found"}
	}

	settings := m.snoozeSettings(ctx, rem)
	if !settings.Enabled {
		return SnoozeResult{Reason: "snoozing is disabled"}
	}
	if minutes <= 0 {
		minutes = settings.DefaultMinutes
	}

	now := m.now()
	if rem.SnoozeCount >= settings.MaxSnoozes {
		if settings.EscalateAfterMax {
			if err := m.escalate(ctx, rem, now); err != nil {
				m.logger.Error("Failed to raise escalation reminder", "reminderID", rem.ID, "error", err)
				return SnoozeResult{Reason: "snooze limit reached"}
			}
			return SnoozeResult{
				Success:    true,
				NextFireAt: now.Add(escalationDelay),
				Escalated:  true,
				Reason:     "snooze limit reached, escalated",
			}
		}
		return SnoozeResult{Reason: "snooze limit reached"}
	}

	rem.SnoozedUntil = now.Add(time.Duration(minutes) * time.Minute)
	rem.FireAt = rem.SnoozedUntil
	rem.SnoozeCount++
	rem.Status = models.StatusSnoozed
	rem.Response = &models.UserResponse{
		Type:          models.ResponseSnoozed,
		Timestamp:     now,
		SnoozeMinutes: minutes,
	}
	if err := m.repo.Update(ctx, rem); err != nil {
		m.logger.Error("Failed to store snoozed reminder", "reminderID", rem.ID, "error", err)
		return SnoozeResult{Reason: "failed to store snooze"}
	}
	m.logger.Info("Reminder snoozed", "reminderID", rem.ID, "minutes", minutes, "count", rem.SnoozeCount)
	return SnoozeResult{Success: true, NextFireAt: rem.SnoozedUntil}
}

// escalate raises a new urgent reminder shortly after the snooze limit and
// cancels the exhausted one.
func (m *Manager) escalate(ctx context.Context, rem *models.Reminder, now time.Time) error {
	esc := models.Reminder{
		ID:         m.newID(),
		EventID:    rem.EventID,
		UserID:     rem.UserID,
		GroupID:    rem.GroupID,
		Summary:    rem.Summary,
		EventStart: rem.EventStart,
		FireAt:     now.Add(escalationDelay),
		Kind:       models.KindEscalation,
		Priority:   models.PriorityUrgent,
		Message:    notify.SnoozeLimitMessage(rem.Summary, rem.EventStart),
		Context:    rem.Context,
		Factors:    []string{"snooze_limit"},
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.repo.Save(ctx, esc); err != nil {
		return err
	}
	rem.Status = models.StatusCancelled
	return m.repo.Update(ctx, rem)
}

// Postpone moves every reminder of an event to track a new start time. The
// existing reminders are cancelled and a fresh multi-stage set is built
// reusing the event classification from when it was first scheduled.
func (m *Manager) Postpone(ctx context.Context, eventID string, newStart time.Time) PostponeResult {
	cfg, err := m.repo.Config(ctx, eventID)
	if err != nil {
		m.logger.Error("Failed to load stage config for postponement", "eventID", eventID, "error", err)
		return PostponeResult{Reason: "stage config lookup failed"}
	}
	if cfg == nil {
		return PostponeResult{Reason: "no reminders scheduled for event"}
	}

	existing, err := m.repo.ByEvent(ctx, eventID)
	if err != nil {
		m.logger.Error("Failed to load reminders for postponement", "eventID", eventID, "error", err)
		return PostponeResult{Reason: "reminder lookup failed"}
	}
	summary := ""
	if len(existing) > 0 {
		summary = existing[0].Summary
	}

	if _, err := m.repo.CancelByEvent(ctx, eventID); err != nil {
		m.logger.Error("Failed to cancel reminders for postponement", "eventID", eventID, "error", err)
		return PostponeResult{Reason: "failed to cancel existing reminders"}
	}
	if err := m.repo.DeleteConfig(ctx, eventID); err != nil {
		m.logger.Warn("Failed to discard old stage config", "eventID", eventID, "error", err)
	}

	p, err := m.prefs.Get(cfg.UserID)
	if err != nil {
		m.logger.Error("Failed to load preferences for postponement", "userID", cfg.UserID, "error", err)
		return PostponeResult{Reason: "preference lookup failed"}
	}

	event := models.Event{ID: eventID, Title: summary, StartTime: newStart}
	rems, err := m.sched.ScheduleStages(ctx, event, cfg.UserID, cfg.Context, p)
	if err != nil {
		m.logger.Error("Failed to reschedule postponed event", "eventID", eventID, "error", err)
		return PostponeResult{Reason: "rescheduling failed"}
	}
	return PostponeResult{Success: true, UpdatedReminders: rems}
}

// Respond records a user's reaction to a delivered reminder and applies its
// side effects.
func (m *Manager) Respond(ctx context.Context, reminderID string, resp models.UserResponse) error {
	rem, err := m.repo.Get(ctx, reminderID)
	if err != nil {
		return fmt.Errorf("failed to load reminder %s: %w", reminderID, err)
	}
	if rem == nil {
		return fmt.Errorf("reminder %s not found", reminderID)
	}
	if resp.Timestamp.IsZero() {
		resp.Timestamp = m.now()
	}

	switch resp.Type {
	case models.ResponseAcknowledged:
		rem.Status = models.StatusDelivered
	case models.ResponseDismissed, models.ResponseCancelled:
		rem.Status = models.StatusCancelled
	case models.ResponseSnoozed:
		result := m.Snooze(ctx, reminderID, resp.SnoozeMinutes)
		if !result.Success && !result.Escalated {
			return fmt.Errorf("failed to snooze reminder %s: %s", reminderID, result.Reason)
		}
		return nil
	case models.ResponseRescheduled:
		if resp.NewTime.IsZero() {
			return fmt.Errorf("reschedule response for reminder %s has no new time", reminderID)
		}
		result := m.Postpone(ctx, rem.EventID, resp.NewTime)
		if !result.Success {
			return fmt.Errorf("failed to reschedule event %s: %s", rem.EventID, result.Reason)
		}
		return nil
	default:
		return fmt.Errorf("unknown response type %q", resp.Type)
	}

	rem.Response = &resp
	if err := m.repo.Update(ctx, rem); err != nil {
		return fmt.Errorf("failed to store response for reminder %s: %w", reminderID, err)
	}
	return nil
}

// SnoozeOptions returns the snooze durations available for a reminder.
func (m *Manager) SnoozeOptions(ctx context.Context, reminderID string) ([]int, error) {
	rem, err := m.repo.Get(ctx, reminderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder %s: %w", reminderID, err)
	}
	if rem == nil {
		return nil, fmt.Errorf("reminder %s not found", reminderID)
	}
	settings := m.snoozeSettings(ctx, rem)
	if !settings.Enabled {
		return nil, nil
	}
	return settings.AvailableOptions, nil
}

// Escalation reports where a reminder stands against its snooze limit.
func (m *Manager) Escalation(ctx context.Context, reminderID string) (EscalationStatus, error) {
	rem, err := m.repo.Get(ctx, reminderID)
	if err != nil {
		return EscalationStatus{}, fmt.Errorf("failed to load reminder %s: %w", reminderID, err)
	}
	if rem == nil {
		return EscalationStatus{}, fmt.Errorf("reminder %s not found", reminderID)
	}
	settings := m.snoozeSettings(ctx, rem)
	return EscalationStatus{
		SnoozeCount:  rem.SnoozeCount,
		MaxSnoozes:   settings.MaxSnoozes,
		WillEscalate: settings.EscalateAfterMax && rem.SnoozeCount >= settings.MaxSnoozes,
	}, nil
}

// snoozeSettings resolves the snooze settings governing a reminder: the
// event's stage config when one exists, the user's preferences otherwise.
func (m *Manager) snoozeSettings(ctx context.Context, rem *models.Reminder) prefs.SnoozeSettings {
	if cfg, err := m.repo.Config(ctx, rem.EventID); err == nil && cfg != nil {
		return cfg.Snooze
	}
	if p, err := m.prefs.Get(rem.UserID); err == nil {
		return p.Snooze
	}
	return prefs.Defaults(rem.UserID).Snooze
}
