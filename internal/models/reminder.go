package models

import "time"

// ReminderKind distinguishes what a reminder is for.
type ReminderKind string

const (
	KindStandard     ReminderKind = "standard"
	KindPreparation  ReminderKind = "preparation"
	KindDeparture    ReminderKind = "departure"
	KindWeatherAlert ReminderKind = "weather_alert"
	KindTrafficAlert ReminderKind = "traffic_alert"
	KindFollowUp     ReminderKind = "follow_up"
	KindEscalation   ReminderKind = "escalation"
)

// DeliveryStatus is the lifecycle state of a scheduled reminder.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
	StatusSnoozed   DeliveryStatus = "snoozed"
	StatusCancelled DeliveryStatus = "cancelled"
)

// Priority is the notification priority tier of a reminder.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ResponseType classifies how a user reacted to a delivered reminder.
type ResponseType string

const (
	ResponseAcknowledged ResponseType = "acknowledged"
	ResponseSnoozed      ResponseType = "snoozed"
	ResponseDismissed    ResponseType = "dismissed"
	ResponseRescheduled  ResponseType = "rescheduled"
	ResponseCancelled    ResponseType = "cancelled"
)

// UserResponse records a user's reaction to a reminder.
type UserResponse struct {
	Type          ResponseType `json:"type"`
	Timestamp     time.Time    `json:"timestamp"`
	SnoozeMinutes int          `json:"snoozeMinutes,omitempty"`
	NewTime       time.Time    `json:"newTime,omitempty"`
}

// Reminder is a single scheduled reminder for an event. Reminders are
// persisted between the scheduling pass that creates them and the lifecycle
// calls that mutate them.
type Reminder struct {
	ID                 string             `json:"id"`
	EventID            string             `json:"eventId"`
	UserID             string             `json:"userId"`
	GroupID            string             `json:"groupId,omitempty"`
	Summary            string             `json:"summary"`
	EventStart         time.Time          `json:"eventStart"`
	FireAt             time.Time          `json:"fireAt"`
	Kind               ReminderKind       `json:"kind"`
	Priority           Priority           `json:"priority"`
	StageID            string             `json:"stageId,omitempty"`
	Message            string             `json:"message,omitempty"`
	Context            EventContext       `json:"context"`
	WeatherDependent   bool               `json:"weatherDependent"`
	TrafficDependent   bool               `json:"trafficDependent"`
	PreparationMinutes int                `json:"preparationMinutes,omitempty"`
	Adjustment         *ContextAdjustment `json:"adjustment,omitempty"`
	Factors            []string           `json:"factors,omitempty"`
	Status             DeliveryStatus     `json:"status"`
	DeliveryAttempts   int                `json:"deliveryAttempts"`
	LastAttemptAt      time.Time          `json:"lastAttemptAt,omitempty"`
	Response           *UserResponse      `json:"response,omitempty"`
	SnoozeCount        int                `json:"snoozeCount"`
	SnoozedUntil       time.Time          `json:"snoozedUntil,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// IsEscalation reports whether the reminder was raised as an escalation.
func (r Reminder) IsEscalation() bool {
	return r.Kind == KindEscalation
}
