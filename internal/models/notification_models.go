package models

import "time"

// Notification is a role- or staff-targeted message.
// ID is a UUID so consumers can de-duplicate at-least-once deliveries.
type Notification struct {
	ID                string     `json:"id" db:"id"`
	TargetRole        *Role      `json:"target_role,omitempty" db:"target_role"`
	TargetUserID      *int64     `json:"target_user_id,omitempty" db:"target_user_id"`
	Message           string     `json:"message" db:"message"`
	RelatedEntityType string     `json:"related_entity_type" db:"related_entity_type"`
	RelatedEntityID   int64      `json:"related_entity_id" db:"related_entity_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	ReadAt            *time.Time `json:"read_at,omitempty" db:"read_at"`
}

// NotificationFilters selects the notifications visible to a recipient.
type NotificationFilters struct {
	Role       Role
	UserID     int64
	UnreadOnly bool
	Limit      int
}
