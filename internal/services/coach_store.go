package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lumen-journal/lumen-backend/internal/database"
	"github.com/lumen-journal/lumen-backend/internal/models"
)

// ErrSessionNotFound is returned when a coach session does not exist or
// belongs to a different user.
var ErrSessionNotFound = errors.New("coach session not found")

const (
	coachSessionsCollection = "coach_sessions"
	coachMessagesCollection = "coach_messages"
)

// EnsureCoachIndexes configures indexes for the coaching collections.
// Called on startup from main after Mongo has connected.
func EnsureCoachIndexes(ctx context.Context) error {
	// Compound index on (session_id, created_at) for transcript pagination.
	msgIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "session_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("idx_session_created"),
	}
	if _, err := database.DB.Collection(coachMessagesCollection).Indexes().CreateOne(ctx, msgIndex); err != nil {
		return err
	}

	sessIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id_string", Value: 1},
			{Key: "updated_at", Value: -1},
		},
		Options: options.Index().SetName("idx_user_updated"),
	}
	_, err := database.DB.Collection(coachSessionsCollection).Indexes().CreateOne(ctx, sessIndex)
	return err
}

// CreateCoachSession starts a new empty session for the user.
func CreateCoachSession(ctx context.Context, userID, title string) (*models.CoachSession, error) {
	now := time.Now().UTC()
	session := &models.CoachSession{
		ID:           primitive.NewObjectID(),
		CreatedAt:    now,
		UpdatedAt:    now,
		UserIDString: userID,
		Title:        title,
	}
	_, err := database.DB.Collection(coachSessionsCollection).InsertOne(ctx, session)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetCoachSession loads a session and verifies ownership.
func GetCoachSession(ctx context.Context, userID, sessionID string) (*models.CoachSession, error) {
	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	var session models.CoachSession
	err = database.DB.Collection(coachSessionsCollection).FindOne(ctx, bson.M{
		"_id":            oid,
		"user_id_string": userID,
	}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListCoachSessions returns the user's sessions, most recently touched first.
func ListCoachSessions(ctx context.Context, userID string, limit int64) ([]models.CoachSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(limit)

	cur, err := database.DB.Collection(coachSessionsCollection).Find(ctx, bson.M{"user_id_string": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	sessions := make([]models.CoachSession, 0)
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// AppendCoachMessage persists one turn and touches the parent session.
func AppendCoachMessage(ctx context.Context, sessionID string, msg *models.CoachMessage) (*models.CoachMessage, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.ID = primitive.NewObjectID()
	msg.SessionID = sessionID

	if _, err := database.DB.Collection(coachMessagesCollection).InsertOne(ctx, msg); err != nil {
		return nil, err
	}

	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err == nil {
		_, _ = database.DB.Collection(coachSessionsCollection).UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{
				"$set": bson.M{"updated_at": msg.CreatedAt},
				"$inc": bson.M{"message_count": 1},
			})
	}

	return msg, nil
}

// LoadCoachMessages returns a page of transcript for a session.
// Pagination is timestamp-based (newest-first scrolling); the returned
// slice is oldest-first for display.
func LoadCoachMessages(ctx context.Context, sessionID string, before *time.Time, limit int64) ([]models.CoachMessage, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := bson.M{"session_id": sessionID}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": before.UTC()}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := database.DB.Collection(coachMessagesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	var msgs []models.CoachMessage
	for cur.Next(ctx) {
		var m models.CoachMessage
		if err := cur.Decode(&m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	if err := cur.Err(); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:len(msgs)-1]
	}

	// Reverse to oldest-first for the UI.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, hasMore, nil
}

// TranscriptForLLM loads the most recent turns of a session in the shape
// the gateway wants, oldest-first, capped at limit turns.
func TranscriptForLLM(ctx context.Context, sessionID string, limit int64) ([]LLMMessage, error) {
	msgs, _, err := LoadCoachMessages(ctx, sessionID, nil, limit)
	if err != nil {
		return nil, err
	}

	out := make([]LLMMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, LLMMessage{Role: string(m.Role), Content: m.Content})
	}
	return out, nil
}

// DeleteCoachSession removes a session and its transcript.
func DeleteCoachSession(ctx context.Context, userID, sessionID string) error {
	session, err := GetCoachSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	if _, err := database.DB.Collection(coachMessagesCollection).DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return err
	}
	_, err = database.DB.Collection(coachSessionsCollection).DeleteOne(ctx, bson.M{"_id": session.ID})
	return err
}
