package models

import (
	"time"

	"github.com/google/uuid"
)

// PushDevice is a registered push target. The raw device token is never
// stored; TokenHash is its SHA-256 and EndpointARN the SNS endpoint.
type PushDevice struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Platform    string    `json:"platform"` // "android" | "ios" | "web"
	TokenHash   string    `json:"-"`
	EndpointARN string    `json:"-"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReminderPrefs is a user's daily journaling reminder preference.
type ReminderPrefs struct {
	UserID     uuid.UUID  `json:"user_id"`
	Enabled    bool       `json:"enabled"`
	HourUTC    int        `json:"hour_utc"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
}
