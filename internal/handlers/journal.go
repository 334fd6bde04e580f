package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lumen-journal/lumen-backend/internal/database"
	"github.com/lumen-journal/lumen-backend/internal/models"
	"github.com/lumen-journal/lumen-backend/pkg/utils"
)

const (
	journalPreviewLen   = 160
	journalMaxContent   = 100 * 1024
	journalDefaultLimit = 20
	journalMaxLimit     = 100
)

type JournalRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	ClientID    string   `json:"client_id,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

type JournalResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Journal map[string]interface{} `json:"journal,omitempty"`
}

type JournalListResponse struct {
	Success  bool                     `json:"success"`
	Message  string                   `json:"message,omitempty"`
	Journals []map[string]interface{} `json:"journals"`
	Total    int64                    `json:"total"`
}

func journalMap(j *models.JournalEntry, includeContent bool) map[string]interface{} {
	m := map[string]interface{}{
		"id":          j.ID.Hex(),
		"title":       j.Title,
		"preview":     j.Preview,
		"attachments": j.Attachments,
		"created_at":  j.CreatedAt,
		"updated_at":  j.UpdatedAt,
		"date_label":  utils.FriendlyDate(j.CreatedAt, time.Now()),
	}
	if j.ClientID != "" {
		m["client_id"] = j.ClientID
	}
	if includeContent {
		m["content"] = j.Content
	}
	return m
}

func validateJournalBody(req *JournalRequest) (string, bool) {
	if req.Title == "" && req.Content == "" {
		return "Title or content is required", false
	}
	if len(req.Content) > journalMaxContent {
		return "Content exceeds the 100KB limit", false
	}
	return "", true
}

// CreateJournal creates a journal entry for the authenticated user.
func CreateJournal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req JournalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, JournalResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if msg, ok := validateJournalBody(&req); !ok {
		writeJSON(w, http.StatusBadRequest, JournalResponse{Success: false, Message: msg})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	journal := models.JournalEntry{
		ID:           primitive.NewObjectID(),
		CreatedAt:    now,
		UpdatedAt:    now,
		UserIDString: userID,
		ClientID:     req.ClientID,
		Title:        req.Title,
		Content:      req.Content,
		Preview:      utils.Preview(req.Content, journalPreviewLen),
		Attachments:  req.Attachments,
	}
	if journal.Attachments == nil {
		journal.Attachments = []string{}
	}

	if _, err := database.DB.Collection("journals").InsertOne(ctx, journal); err != nil {
		writeJSON(w, http.StatusInternalServerError, JournalResponse{Success: false, Message: "Failed to create journal entry"})
		return
	}

	writeJSON(w, http.StatusCreated, JournalResponse{
		Success: true,
		Message: "Journal created successfully",
		Journal: journalMap(&journal, true),
	})
}

// GetJournals lists the authenticated user's entries, newest first.
func GetJournals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	limit := journalDefaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 && parsed <= journalMaxLimit {
			limit = parsed
		}
	}
	skip := 0
	if s := r.URL.Query().Get("skip"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed >= 0 {
			skip = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"user_id_string": userID}

	total, err := database.DB.Collection("journals").CountDocuments(ctx, filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, JournalListResponse{Success: false, Journals: []map[string]interface{}{}})
		return
	}

	findOptions := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip))

	cursor, err := database.DB.Collection("journals").Find(ctx, filter, findOptions)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, JournalListResponse{Success: false, Journals: []map[string]interface{}{}})
		return
	}
	defer cursor.Close(ctx)

	var journals []models.JournalEntry
	if err = cursor.All(ctx, &journals); err != nil {
		writeJSON(w, http.StatusInternalServerError, JournalListResponse{Success: false, Journals: []map[string]interface{}{}})
		return
	}

	result := make([]map[string]interface{}, 0, len(journals))
	for i := range journals {
		result = append(result, journalMap(&journals[i], false))
	}

	writeJSON(w, http.StatusOK, JournalListResponse{Success: true, Journals: result, Total: total})
}

// GetJournal returns one entry with full content.
func GetJournal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, JournalResponse{Success: false, Message: "Invalid journal ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var journal models.JournalEntry
	err = database.DB.Collection("journals").FindOne(ctx, bson.M{
		"_id":            oid,
		"user_id_string": userID,
	}).Decode(&journal)
	if err == mongo.ErrNoDocuments {
		writeJSON(w, http.StatusNotFound, JournalResponse{Success: false, Message: "Journal entry not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, JournalResponse{Success: false, Message: "Failed to load journal entry"})
		return
	}

	writeJSON(w, http.StatusOK, JournalResponse{Success: true, Journal: journalMap(&journal, true)})
}

// UpdateJournal replaces title/content/attachments of an entry.
func UpdateJournal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, JournalResponse{Success: false, Message: "Invalid journal ID"})
		return
	}

	var req JournalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, JournalResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if msg, ok := validateJournalBody(&req); !ok {
		writeJSON(w, http.StatusBadRequest, JournalResponse{Success: false, Message: msg})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	update := bson.M{"$set": bson.M{
		"title":      req.Title,
		"content":    req.Content,
		"preview":    utils.Preview(req.Content, journalPreviewLen),
		"updated_at": now,
	}}
	if req.Attachments != nil {
		update["$set"].(bson.M)["attachments"] = req.Attachments
	}

	res, err := database.DB.Collection("journals").UpdateOne(ctx, bson.M{
		"_id":            oid,
		"user_id_string": userID,
	}, update)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, JournalResponse{Success: false, Message: "Failed to update journal entry"})
		return
	}
	if res.MatchedCount == 0 {
		writeJSON(w, http.StatusNotFound, JournalResponse{Success: false, Message: "Journal entry not found"})
		return
	}

	writeMessage(w, http.StatusOK, true, "Journal updated successfully")
}

// DeleteJournal removes an entry owned by the authenticated user.
func DeleteJournal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, JournalResponse{Success: false, Message: "Invalid journal ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := database.DB.Collection("journals").DeleteOne(ctx, bson.M{
		"_id":            oid,
		"user_id_string": userID,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, JournalResponse{Success: false, Message: "Failed to delete journal entry"})
		return
	}
	if res.DeletedCount == 0 {
		writeJSON(w, http.StatusNotFound, JournalResponse{Success: false, Message: "Journal entry not found"})
		return
	}

	writeMessage(w, http.StatusOK, true, "Journal deleted successfully")
}
