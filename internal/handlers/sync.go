package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/lumen-journal/lumen-backend/internal/database"
	"github.com/lumen-journal/lumen-backend/internal/models"
	"github.com/lumen-journal/lumen-backend/internal/services"
	"github.com/lumen-journal/lumen-backend/pkg/utils"
)

const syncMaxEntries = 200

type SyncEntryPayload struct {
	ClientID    string    `json:"client_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
}

type SyncRequest struct {
	Entries []SyncEntryPayload `json:"entries"`
}

type SyncResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Guarded  bool   `json:"guarded,omitempty"`
}

// SyncJournals bulk-imports locally stored entries pushed by the client
// at sign-in. Entries already imported (same client_id) are skipped, and
// a second sync inside the guard window is acknowledged as a no-op.
func SyncJournals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SyncResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if len(req.Entries) > syncMaxEntries {
		writeJSON(w, http.StatusBadRequest, SyncResponse{Success: false, Message: "Too many entries in one sync"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	guarded, err := services.SyncGuardActive(ctx, userID)
	if err == nil && guarded {
		writeJSON(w, http.StatusOK, SyncResponse{
			Success: true,
			Message: "Already synced moments ago",
			Guarded: true,
		})
		return
	}

	now := time.Now()
	entries := make([]models.JournalEntry, 0, len(req.Entries))
	for _, p := range req.Entries {
		if p.Title == "" && p.Content == "" {
			continue
		}
		if len(p.Content) > journalMaxContent {
			continue
		}
		createdAt := p.CreatedAt
		if createdAt.IsZero() || createdAt.After(now) {
			createdAt = now
		}
		attachments := p.Attachments
		if attachments == nil {
			attachments = []string{}
		}
		entries = append(entries, models.JournalEntry{
			CreatedAt:    createdAt,
			UpdatedAt:    now,
			UserIDString: userID,
			ClientID:     p.ClientID,
			Title:        p.Title,
			Content:      p.Content,
			Preview:      utils.Preview(p.Content, journalPreviewLen),
			Attachments:  attachments,
		})
	}

	imported, skipped, err := services.ImportJournalEntries(ctx, userID, entries)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, SyncResponse{Success: false, Message: "Sync failed"})
		return
	}

	if err := services.MarkSynced(ctx, userID); err == nil {
		services.PublishUserEvent(ctx, services.UserEvent{
			Type:      services.EventTypeSyncCompleted,
			UserID:    userID,
			Imported:  imported,
			Skipped:   skipped,
			Timestamp: now.UTC(),
		})
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Success:  true,
		Message:  "Sync complete",
		Imported: imported,
		Skipped:  skipped,
	})
}

type SyncStatusResponse struct {
	Success      bool       `json:"success"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	GuardActive  bool       `json:"guard_active"`
	EntryCount   int64      `json:"entry_count"`
}

// SyncStatus reports when the user last synced and how many entries are stored.
func SyncStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lastSynced, _ := services.LastSyncedAt(ctx, userID)
	guarded, _ := services.SyncGuardActive(ctx, userID)
	count, _ := database.DB.Collection("journals").CountDocuments(ctx, bson.M{"user_id_string": userID})

	writeJSON(w, http.StatusOK, SyncStatusResponse{
		Success:      true,
		LastSyncedAt: lastSynced,
		GuardActive:  guarded,
		EntryCount:   count,
	})
}
