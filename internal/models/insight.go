package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Insight is an LLM-derived summary of a user's recent journal and pulse
// history: what they are focused on, what is blocking them, and a plan.
type Insight struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UserIDString string             `bson:"user_id_string" json:"user_id,omitempty"`
	MainFocus    string             `bson:"main_focus" json:"main_focus"`
	Blockers     []string           `bson:"blockers" json:"blockers"`
	Plan         []string           `bson:"plan" json:"plan"`
	EntryCount   int                `bson:"entry_count" json:"entry_count"`
}
