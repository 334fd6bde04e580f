package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lumen-journal/lumen-backend/internal/database"
	"github.com/lumen-journal/lumen-backend/internal/models"
)

const (
	// SyncGuardWindow is how long after an accepted sync a repeat sync
	// from the same user is treated as a duplicate and skipped. Covers
	// the sign-in double-fire case where two tabs push at once.
	SyncGuardWindow = 10 * time.Second
	// SyncLastKeyPrefix is the Redis key prefix for last-synced timestamps
	SyncLastKeyPrefix = "sync:last:"
	// syncLastTTL keeps the status endpoint useful without growing Redis forever
	syncLastTTL = 30 * 24 * time.Hour

	journalsCollection = "journals"
)

// LastSyncedAt returns the user's last accepted sync time, or nil.
func LastSyncedAt(ctx context.Context, userID string) (*time.Time, error) {
	val, err := database.RedisClient.Get(ctx, SyncLastKeyPrefix+userID).Result()
	if err != nil {
		return nil, nil // no record
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SyncGuardActive reports whether the user synced within the guard window.
func SyncGuardActive(ctx context.Context, userID string) (bool, error) {
	last, err := LastSyncedAt(ctx, userID)
	if err != nil || last == nil {
		return false, err
	}
	return time.Since(*last) < SyncGuardWindow, nil
}

// MarkSynced records an accepted sync, refreshing the guard window.
func MarkSynced(ctx context.Context, userID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return database.RedisClient.Set(ctx, SyncLastKeyPrefix+userID, now, syncLastTTL).Err()
}

// ImportJournalEntries bulk-imports locally-stored entries pushed by a
// client on sign-in. Entries are deduped by (user, client_id): an entry
// whose client_id was imported before is skipped, never duplicated.
// Entries without a client_id are always inserted.
func ImportJournalEntries(ctx context.Context, userID string, entries []models.JournalEntry) (imported, skipped int, err error) {
	col := database.DB.Collection(journalsCollection)
	now := time.Now().UTC()

	for _, entry := range entries {
		entry.UserIDString = userID
		entry.UpdatedAt = now
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}

		if entry.ClientID == "" {
			entry.ID = primitive.NewObjectID()
			if _, err := col.InsertOne(ctx, entry); err != nil {
				return imported, skipped, err
			}
			imported++
			continue
		}

		filter := bson.M{
			"user_id_string": userID,
			"client_id":      entry.ClientID,
		}
		update := bson.M{"$setOnInsert": bson.M{
			"created_at":     entry.CreatedAt,
			"updated_at":     entry.UpdatedAt,
			"user_id_string": userID,
			"client_id":      entry.ClientID,
			"title":          entry.Title,
			"content":        entry.Content,
			"preview":        entry.Preview,
			"attachments":    entry.Attachments,
		}}

		res, err := col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			return imported, skipped, err
		}
		if res.UpsertedCount > 0 {
			imported++
		} else {
			skipped++
		}
	}

	return imported, skipped, nil
}

// EnsureJournalIndexes configures indexes for the journals collection.
// Called on startup from main after Mongo has connected.
func EnsureJournalIndexes(ctx context.Context) error {
	col := database.DB.Collection(journalsCollection)

	models := []mongo.IndexModel{
		{
			// (user, created_at) supports the paginated list view.
			Keys: bson.D{
				{Key: "user_id_string", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_user_created"),
		},
		{
			// Partial unique index backs sync dedupe; client_id is
			// optional, so only documents that carry one are indexed.
			Keys: bson.D{
				{Key: "user_id_string", Value: 1},
				{Key: "client_id", Value: 1},
			},
			Options: options.Index().
				SetName("idx_user_client").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"client_id": bson.M{"$type": "string"}}),
		},
	}

	for _, m := range models {
		if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
