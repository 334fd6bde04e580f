package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CoachRole identifies who authored a coach message.
type CoachRole string

const (
	CoachRoleUser      CoachRole = "user"
	CoachRoleAssistant CoachRole = "assistant"
)

// CoachSession is a persisted conversation with the AI coach.
// Messages are stored in a flat collection, one document per message,
// so transcripts paginate the same way chat history does.
type CoachSession struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
	UserIDString string             `bson:"user_id_string" json:"user_id,omitempty"`
	Title        string             `bson:"title" json:"title"`
	MessageCount int64              `bson:"message_count" json:"message_count"`
}

// CoachMessage is one turn of a coaching conversation. For assistant
// turns, Thinking and Meta hold the tag-parsed sections of the streamed
// reply; Content is the visible text with those sections removed.
type CoachMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	Role      CoachRole          `bson:"role" json:"role"`
	Content   string             `bson:"content" json:"content"`
	Thinking  string             `bson:"thinking,omitempty" json:"thinking,omitempty"`
	Meta      string             `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
