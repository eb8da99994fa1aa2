package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"remindcal/internal/kvstore"
	"remindcal/internal/models"
	"remindcal/internal/stage"
)

// Reminders and stage configurations outlive a scheduling pass by at most
// this long.
const recordTTL = 7 * 24 * time.Hour

const (
	reminderKeyPrefix  = "stage_reminder_"
	configKeyPrefix    = "multi_stage_config_"
	userIndexKeyPrefix = "reminder_index_"
	eventIndexPrefix   = "event_reminders_"
	usersKey           = "reminder_users"
)

// Repository persists reminders and stage configurations in the key-value
// substrate. Reads follow the pop-then-restash pattern so every read
// refreshes the record's TTL.
type Repository struct {
	kv     kvstore.Store
	logger *slog.Logger
}

// NewRepository creates a Repository over the given store.
func NewRepository(kv kvstore.Store, logger *slog.Logger) *Repository {
	return &Repository{kv: kv, logger: logger}
}

// Save stores a new reminder and registers it in the user and event indexes.
func (r *Repository) Save(ctx context.Context, rem models.Reminder) error {
	if err := r.put(ctx, reminderKeyPrefix+rem.ID, rem); err != nil {
		return fmt.Errorf("failed to store reminder %s: %w", rem.ID, err)
	}
	if err := r.indexAdd(ctx, userIndexKeyPrefix+rem.UserID, rem.ID); err != nil {
		return err
	}
	if err := r.indexAdd(ctx, eventIndexPrefix+rem.EventID, rem.ID); err != nil {
		return err
	}
	return r.indexAdd(ctx, usersKey, rem.UserID)
}

// Get returns a reminder by id, or nil when it is unknown or expired.
func (r *Repository) Get(ctx context.Context, id string) (*models.Reminder, error) {
	var rem models.Reminder
	found, err := r.get(ctx, reminderKeyPrefix+id, &rem)
	if err != nil || !found {
		return nil, err
	}
	return &rem, nil
}

// Update rewrites an existing reminder, bumping its update timestamp.
func (r *Repository) Update(ctx context.Context, rem *models.Reminder) error {
	rem.UpdatedAt = time.Now()
	if err := r.put(ctx, reminderKeyPrefix+rem.ID, rem); err != nil {
		return fmt.Errorf("failed to update reminder %s: %w", rem.ID, err)
	}
	return nil
}

// ByUser returns all live reminders for a user.
func (r *Repository) ByUser(ctx context.Context, userID string) ([]models.Reminder, error) {
	return r.byIndex(ctx, userIndexKeyPrefix+userID)
}

// ByEvent returns all live reminders for an event.
func (r *Repository) ByEvent(ctx context.Context, eventID string) ([]models.Reminder, error) {
	return r.byIndex(ctx, eventIndexPrefix+eventID)
}

// Cancel marks a reminder cancelled and drops it from the user index.
func (r *Repository) Cancel(ctx context.Context, id string) error {
	rem, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if rem == nil {
		return nil
	}
	rem.Status = models.StatusCancelled
	if err := r.Update(ctx, rem); err != nil {
		return err
	}
	return r.indexRemove(ctx, userIndexKeyPrefix+rem.UserID, id)
}

// CancelByEvent cancels every reminder for an event. Returns how many were
// cancelled.
func (r *Repository) CancelByEvent(ctx context.Context, eventID string) (int, error) {
	rems, err := r.ByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for i := range rems {
		if rems[i].Status == models.StatusCancelled {
			continue
		}
		if err := r.Cancel(ctx, rems[i].ID); err != nil {
			r.logger.Error("Failed to cancel reminder", "reminderID", rems[i].ID, "error", err)
			continue
		}
		cancelled++
	}
	// Drop the event index itself; cancelled reminders are not re-read.
	if _, err := r.kv.Pop(ctx, eventIndexPrefix+eventID); err != nil {
		r.logger.Error("Failed to drop event index", "eventID", eventID, "error", err)
	}
	return cancelled, nil
}

// SaveConfig stores the stage configuration for an event.
func (r *Repository) SaveConfig(ctx context.Context, cfg stage.Config) error {
	if err := r.put(ctx, configKeyPrefix+cfg.EventID, cfg); err != nil {
		return fmt.Errorf("failed to store stage config for event %s: %w", cfg.EventID, err)
	}
	return nil
}

// Config returns the stage configuration for an event, or nil when absent.
func (r *Repository) Config(ctx context.Context, eventID string) (*stage.Config, error) {
	var cfg stage.Config
	found, err := r.get(ctx, configKeyPrefix+eventID, &cfg)
	if err != nil || !found {
		return nil, err
	}
	return &cfg, nil
}

// DeleteConfig discards the stage configuration for an event.
func (r *Repository) DeleteConfig(ctx context.Context, eventID string) error {
	_, err := r.kv.Pop(ctx, configKeyPrefix+eventID)
	return err
}

// Users returns every user id with at least one stored reminder.
func (r *Repository) Users(ctx context.Context) ([]string, error) {
	return r.readIndex(ctx, usersKey)
}

// put marshals v and stashes it under key.
func (r *Repository) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	return r.kv.Stash(ctx, key, data, recordTTL)
}

// get pops key, unmarshals into v, and immediately re-stashes the raw bytes
// to refresh the TTL. Returns false when the key is absent or expired.
func (r *Repository) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.kv.Pop(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := r.kv.Stash(ctx, key, data, recordTTL); err != nil {
		return false, fmt.Errorf("failed to refresh %q: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return true, nil
}

func (r *Repository) byIndex(ctx context.Context, indexKey string) ([]models.Reminder, error) {
	ids, err := r.readIndex(ctx, indexKey)
	if err != nil {
		return nil, err
	}
	var out []models.Reminder
	for _, id := range ids {
		rem, err := r.Get(ctx, id)
		if err != nil {
			r.logger.Error("Failed to load indexed reminder", "reminderID", id, "error", err)
			continue
		}
		if rem != nil {
			out = append(out, *rem)
		}
	}
	return out, nil
}

func (r *Repository) readIndex(ctx context.Context, key string) ([]string, error) {
	var ids []string
	if _, err := r.get(ctx, key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) indexAdd(ctx context.Context, key, id string) error {
	ids, err := r.readIndex(ctx, key)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return r.put(ctx, key, append(ids, id))
}

func (r *Repository) indexRemove(ctx context.Context, key, id string) error {
	ids, err := r.readIndex(ctx, key)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	return r.put(ctx, key, kept)
}
