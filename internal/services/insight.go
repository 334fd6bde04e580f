package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lumen-journal/lumen-backend/internal/database"
	"github.com/lumen-journal/lumen-backend/internal/models"
	"github.com/lumen-journal/lumen-backend/pkg/utils"
)

const (
	insightsCollection = "insights"
	insightWindowDays  = 14
	insightMaxEntries  = 20
	insightCacheTTL    = 6 * time.Hour
)

// ErrNotEnoughEntries means the user has no journal entries in the
// insight window, so there is nothing to summarize.
var ErrNotEnoughEntries = errors.New("not enough journal entries for an insight")

const insightSystemPrompt = `You are an analyst reviewing a person's private journal.
Read the entries and produce a short, honest summary of where their attention is going.
Respond with ONLY a JSON object, no prose around it, in this shape:
{"main_focus": "one sentence", "blockers": ["...", "..."], "plan": ["step 1", "step 2", "step 3"]}
Keep blockers to at most 3 items and plan to at most 4 concrete steps.`

// insightPayload is the JSON shape the model is asked to return.
type insightPayload struct {
	MainFocus string   `json:"main_focus"`
	Blockers  []string `json:"blockers"`
	Plan      []string `json:"plan"`
}

// GenerateInsight summarizes the user's recent entries through the LLM
// and stores the result. The newest insight per user is cached.
func GenerateInsight(ctx context.Context, llm *LLMClient, userID string) (*models.Insight, error) {
	since := time.Now().UTC().AddDate(0, 0, -insightWindowDays)

	entries, err := recentJournalEntries(ctx, userID, since, insightMaxEntries)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotEnoughEntries
	}

	pulses, err := recentPulses(ctx, userID, since)
	if err != nil {
		log.Printf("⚠️ Pulse lookup for insight failed: %v", err)
	}

	prompt := buildInsightPrompt(entries, pulses)
	raw, err := llm.Complete(ctx, insightSystemPrompt, []LLMMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("insight generation failed: %w", err)
	}

	payload, err := parseInsightJSON(raw)
	if err != nil {
		return nil, err
	}

	insight := &models.Insight{
		CreatedAt:    time.Now().UTC(),
		UserIDString: userID,
		MainFocus:    payload.MainFocus,
		Blockers:     payload.Blockers,
		Plan:         payload.Plan,
		EntryCount:   len(entries),
	}
	if insight.Blockers == nil {
		insight.Blockers = []string{}
	}
	if insight.Plan == nil {
		insight.Plan = []string{}
	}

	res, err := database.DB.Collection(insightsCollection).InsertOne(ctx, insight)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		insight.ID = oid
	}

	Cache.SetWithTTL(CacheKey("insight_latest", userID), insight, insightCacheTTL)
	PublishUserEvent(ctx, UserEvent{
		Type:      EventTypeInsightReady,
		UserID:    userID,
		InsightID: insight.ID.Hex(),
		Timestamp: insight.CreatedAt,
	})

	return insight, nil
}

// LatestInsight returns the user's most recent insight, cache first.
func LatestInsight(ctx context.Context, userID string) (*models.Insight, error) {
	var cached models.Insight
	if found, err := Cache.Get(CacheKey("insight_latest", userID), &cached); err == nil && found {
		return &cached, nil
	}

	var insight models.Insight
	err := database.DB.Collection(insightsCollection).FindOne(ctx,
		bson.M{"user_id_string": userID},
		options.FindOne().SetSort(bson.M{"created_at": -1}),
	).Decode(&insight)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	Cache.SetWithTTL(CacheKey("insight_latest", userID), &insight, insightCacheTTL)
	return &insight, nil
}

// InsightHistory lists the user's insights newest first.
func InsightHistory(ctx context.Context, userID string, limit int64) ([]models.Insight, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	cursor, err := database.DB.Collection(insightsCollection).Find(ctx,
		bson.M{"user_id_string": userID},
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	insights := make([]models.Insight, 0)
	if err := cursor.All(ctx, &insights); err != nil {
		return nil, err
	}
	return insights, nil
}

func recentJournalEntries(ctx context.Context, userID string, since time.Time, limit int64) ([]models.JournalEntry, error) {
	cursor, err := database.DB.Collection(journalsCollection).Find(ctx,
		bson.M{
			"user_id_string": userID,
			"created_at":     bson.M{"$gte": since},
		},
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.JournalEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func recentPulses(ctx context.Context, userID string, since time.Time) ([]models.PulseEntry, error) {
	cursor, err := database.DB.Collection(pulsesCollection).Find(ctx,
		bson.M{
			"user_id_string": userID,
			"date":           bson.M{"$gte": since.Format(utils.DayFormat)},
		},
		options.Find().SetSort(bson.M{"date": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var pulses []models.PulseEntry
	if err := cursor.All(ctx, &pulses); err != nil {
		return nil, err
	}
	return pulses, nil
}

// buildInsightPrompt flattens entries and pulse scores into a plain-text
// prompt, oldest entry first so the model reads chronologically.
func buildInsightPrompt(entries []models.JournalEntry, pulses []models.PulseEntry) string {
	var b strings.Builder
	b.WriteString("Journal entries from the last two weeks, oldest first:\n\n")

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Fprintf(&b, "[%s] %s\n", e.CreatedAt.UTC().Format(utils.DayFormat), e.Title)
		text := utils.StripHTML(e.Content)
		if len(text) > 1200 {
			text = text[:1200]
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	if len(pulses) > 0 {
		b.WriteString("Daily self-report scores (0-100, higher is better):\n")
		for _, p := range pulses {
			fmt.Fprintf(&b, "%s mood=%d stress=%d confidence=%d\n",
				p.Date, p.Scores.Mood, p.Scores.Stress, p.Scores.Confidence)
		}
	}

	return b.String()
}

// parseInsightJSON extracts the JSON object from the model's reply,
// tolerating prose the model sometimes wraps around it.
func parseInsightJSON(raw string) (*insightPayload, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, errors.New("model reply contained no JSON object")
	}

	var payload insightPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("model reply was not valid insight JSON: %w", err)
	}
	if strings.TrimSpace(payload.MainFocus) == "" {
		return nil, errors.New("model reply missing main_focus")
	}
	return &payload, nil
}
