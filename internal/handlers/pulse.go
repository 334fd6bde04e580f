package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/lumen-journal/lumen-backend/internal/models"
	"github.com/lumen-journal/lumen-backend/internal/services"
)

type PulseResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Pulse   *models.PulseEntry `json:"pulse,omitempty"`
}

// SubmitPulse records today's survey answers. Re-submitting the same
// day replaces the earlier answers.
func SubmitPulse(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var answers models.PulseAnswers
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		writeJSON(w, http.StatusBadRequest, PulseResponse{Success: false, Message: "Invalid request body"})
		return
	}

	if err := services.ValidatePulseAnswers(answers); err != nil {
		writeJSON(w, http.StatusBadRequest, PulseResponse{Success: false, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry, err := services.SubmitPulse(ctx, userID, answers)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, PulseResponse{Success: false, Message: "Failed to record pulse"})
		return
	}

	writeJSON(w, http.StatusOK, PulseResponse{Success: true, Message: "Pulse recorded", Pulse: entry})
}

// TodayPulse returns the entry for the current UTC day, pulse=null when absent.
func TodayPulse(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry, err := services.TodayPulse(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, PulseResponse{Success: false, Message: "Failed to load pulse"})
		return
	}

	writeJSON(w, http.StatusOK, PulseResponse{Success: true, Pulse: entry})
}

type PulseHistoryResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Pulses  []models.PulseEntry `json:"pulses"`
}

// PulseHistory lists entries in an optional ?from=&to= day range, oldest first.
func PulseHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := services.PulseHistory(ctx, userID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, PulseHistoryResponse{Success: false, Message: "Failed to load history", Pulses: []models.PulseEntry{}})
		return
	}

	writeJSON(w, http.StatusOK, PulseHistoryResponse{Success: true, Pulses: entries})
}

type PulseTrendResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Trend   *services.PulseTrend `json:"trend,omitempty"`
}

// PulseTrend averages scores over the last ?days= window (default 30).
func PulseTrend(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	days := 30
	if s := r.URL.Query().Get("days"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			days = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	trend, err := services.PulseTrendFor(ctx, userID, days)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, PulseTrendResponse{Success: false, Message: "Failed to compute trend"})
		return
	}

	writeJSON(w, http.StatusOK, PulseTrendResponse{Success: true, Trend: trend})
}
