// Package events defines the payloads published for activity changes.
package events

import "time"

// Topic names used by the outbox dispatcher and the consumer.
const (
	TopicActivities = "activity_events"
	TopicAttendance = "attendance_events"
)

// ActivityCreated is emitted when a new activity is accepted.
type ActivityCreated struct {
	ActivityID string    `json:"activity_id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	City       string    `json:"city"`
	Venue      string    `json:"venue"`
	Date       time.Time `json:"date"`
	Host       string    `json:"host"`
}

// ActivityUpdated is emitted when an activity's descriptive fields change.
type ActivityUpdated struct {
	ActivityID string    `json:"activity_id"`
	Title      string    `json:"title"`
	Date       time.Time `json:"date"`
	UpdatedBy  string    `json:"updated_by"`
}

// ActivityDeleted is emitted when an activity is removed.
type ActivityDeleted struct {
	ActivityID string    `json:"activity_id"`
	DeletedBy  string    `json:"deleted_by"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AttendeeJoined is emitted when a user joins an activity's roster.
type AttendeeJoined struct {
	ActivityID string    `json:"activity_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AttendeeLeft is emitted when a user withdraws from an activity's roster.
type AttendeeLeft struct {
	ActivityID string    `json:"activity_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}
