package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JournalEntry is a user-authored note with rich-text HTML content.
// Preview is the server-side plain-text rendering of Content, used for
// list views and as LLM input. ClientID is assigned by the client and is
// the dedupe key for local/cloud sync imports.
type JournalEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
	UserIDString string             `bson:"user_id_string" json:"user_id,omitempty"`
	ClientID     string             `bson:"client_id,omitempty" json:"client_id,omitempty"`
	Title        string             `bson:"title" json:"title"`
	Content      string             `bson:"content" json:"content"`
	Preview      string             `bson:"preview" json:"preview"`
	Attachments  []string           `bson:"attachments,omitempty" json:"attachments,omitempty"`
}
