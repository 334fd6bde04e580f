package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/lumen-journal/lumen-backend/internal/models"
	"github.com/lumen-journal/lumen-backend/internal/services"
)

var insightLLM *services.LLMClient

// InitInsightService wires the LLM gateway client used for insights.
func InitInsightService(llm *services.LLMClient) {
	insightLLM = llm
}

type InsightResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Insight *models.Insight `json:"insight,omitempty"`
	Cached  bool            `json:"cached,omitempty"`
}

// GenerateInsight produces a fresh insight from the user's recent
// journal and pulse history, or returns the cached one inside the TTL
// without calling the model.
func GenerateInsight(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	if insightLLM == nil {
		writeJSON(w, http.StatusServiceUnavailable, InsightResponse{Success: false, Message: "Insights are not configured"})
		return
	}

	var cached models.Insight
	if found, err := services.Cache.Get(services.CacheKey("insight_latest", userID), &cached); err == nil && found {
		writeJSON(w, http.StatusOK, InsightResponse{Success: true, Insight: &cached, Cached: true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	insight, err := services.GenerateInsight(ctx, insightLLM, userID)
	if err == services.ErrNotEnoughEntries {
		writeJSON(w, http.StatusUnprocessableEntity, InsightResponse{Success: false, Message: "Write a few journal entries first, then ask for an insight"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, InsightResponse{Success: false, Message: "Insight generation failed. Please try again."})
		return
	}

	writeJSON(w, http.StatusOK, InsightResponse{Success: true, Insight: insight})
}

// LatestInsight returns the most recent insight, insight=null when none exists.
func LatestInsight(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	insight, err := services.LatestInsight(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, InsightResponse{Success: false, Message: "Failed to load insight"})
		return
	}

	writeJSON(w, http.StatusOK, InsightResponse{Success: true, Insight: insight})
}

type InsightHistoryResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Insights []models.Insight `json:"insights"`
}

// InsightHistory lists past insights, newest first.
func InsightHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	limit := int64(20)
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	insights, err := services.InsightHistory(ctx, userID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, InsightHistoryResponse{Success: false, Message: "Failed to load insights", Insights: []models.Insight{}})
		return
	}

	writeJSON(w, http.StatusOK, InsightHistoryResponse{Success: true, Insights: insights})
}
