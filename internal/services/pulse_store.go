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
	"github.com/lumen-journal/lumen-backend/pkg/utils"
)

const pulsesCollection = "pulses"

// SubmitPulse validates and scores a day's answers, replacing any
// earlier submission for the same UTC day.
func SubmitPulse(ctx context.Context, userID string, answers models.PulseAnswers) (*models.PulseEntry, error) {
	if err := ValidatePulseAnswers(answers); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := models.PulseEntry{
		UpdatedAt:    now,
		UserIDString: userID,
		Date:         utils.UTCDay(now),
		Answers:      answers,
		Scores:       ScorePulse(answers),
	}

	res, err := database.DB.Collection(pulsesCollection).UpdateOne(ctx,
		bson.M{"user_id_string": userID, "date": entry.Date},
		bson.M{
			"$set":         bson.M{"answers": entry.Answers, "scores": entry.Scores, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		entry.ID = oid
		entry.CreatedAt = now
	} else {
		// Replaced an existing day; read back the stored document.
		var stored models.PulseEntry
		if err := database.DB.Collection(pulsesCollection).FindOne(ctx,
			bson.M{"user_id_string": userID, "date": entry.Date},
		).Decode(&stored); err == nil {
			entry = stored
		}
	}

	return &entry, nil
}

// TodayPulse returns the user's entry for the current UTC day, or nil.
func TodayPulse(ctx context.Context, userID string) (*models.PulseEntry, error) {
	var entry models.PulseEntry
	err := database.DB.Collection(pulsesCollection).FindOne(ctx,
		bson.M{"user_id_string": userID, "date": utils.UTCDay(time.Now())},
	).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PulseHistory lists entries in [from, to] oldest first.
func PulseHistory(ctx context.Context, userID, fromStr, toStr string) ([]models.PulseEntry, error) {
	from, to := utils.DayRange(fromStr, toStr, 30)

	cursor, err := database.DB.Collection(pulsesCollection).Find(ctx,
		bson.M{
			"user_id_string": userID,
			"date":           bson.M{"$gte": utils.UTCDay(from), "$lte": utils.UTCDay(to)},
		},
		options.Find().SetSort(bson.M{"date": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := make([]models.PulseEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// PulseTrend holds per-dimension averages over a window of days.
type PulseTrend struct {
	Days       int `json:"days"`
	Samples    int `json:"samples"`
	Mood       int `json:"mood"`
	Stress     int `json:"stress"`
	Confidence int `json:"confidence"`
}

// PulseTrendFor averages the user's scores over the last N days.
func PulseTrendFor(ctx context.Context, userID string, days int) (*PulseTrend, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	since := utils.UTCDay(time.Now().AddDate(0, 0, -days+1))

	cursor, err := database.DB.Collection(pulsesCollection).Find(ctx,
		bson.M{
			"user_id_string": userID,
			"date":           bson.M{"$gte": since},
		},
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.PulseEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	trend := &PulseTrend{Days: days, Samples: len(entries)}
	if len(entries) == 0 {
		return trend, nil
	}

	var mood, stress, confidence int
	for _, e := range entries {
		mood += e.Scores.Mood
		stress += e.Scores.Stress
		confidence += e.Scores.Confidence
	}
	n := len(entries)
	trend.Mood = (mood + n/2) / n
	trend.Stress = (stress + n/2) / n
	trend.Confidence = (confidence + n/2) / n
	return trend, nil
}

// EnsurePulseIndexes creates the unique per-day index.
func EnsurePulseIndexes(ctx context.Context) error {
	_, err := database.DB.Collection(pulsesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id_string", Value: 1}, {Key: "date", Value: -1}},
		Options: options.Index().SetName("idx_user_date").SetUnique(true),
	})
	return err
}
