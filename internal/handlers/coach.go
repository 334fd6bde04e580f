package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumen-journal/lumen-backend/internal/models"
	"github.com/lumen-journal/lumen-backend/internal/services"
)

var (
	coachLLM     *services.LLMClient
	coachPersona string
)

// InitCoachService wires the LLM gateway client and persona prompt used
// by the coaching endpoints.
func InitCoachService(llm *services.LLMClient, persona string) {
	coachLLM = llm
	coachPersona = persona
}

const (
	coachMaxMessageLen    = 8 * 1024
	coachTranscriptWindow = 40
	coachTitleLen         = 60
)

type CreateCoachSessionRequest struct {
	Title string `json:"title,omitempty"`
}

type CoachSessionResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Session *models.CoachSession `json:"session,omitempty"`
}

type CoachSessionListResponse struct {
	Success  bool                  `json:"success"`
	Message  string                `json:"message,omitempty"`
	Sessions []models.CoachSession `json:"sessions"`
}

// CreateCoachSession starts a new coaching conversation.
func CreateCoachSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req CreateCoachSessionRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New session"
	}
	if len(title) > coachTitleLen {
		title = title[:coachTitleLen]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := services.CreateCoachSession(ctx, userID, title)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, CoachSessionResponse{Success: false, Message: "Failed to create session"})
		return
	}

	writeJSON(w, http.StatusCreated, CoachSessionResponse{Success: true, Message: "Session created", Session: session})
}

// ListCoachSessions lists the user's sessions, most recently touched first.
func ListCoachSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	limit := int64(50)
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sessions, err := services.ListCoachSessions(ctx, userID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, CoachSessionListResponse{Success: false, Message: "Failed to list sessions", Sessions: []models.CoachSession{}})
		return
	}

	writeJSON(w, http.StatusOK, CoachSessionListResponse{Success: true, Sessions: sessions})
}

// DeleteCoachSession removes a session and its transcript.
func DeleteCoachSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := services.DeleteCoachSession(ctx, userID, chi.URLParam(r, "id"))
	if err == services.ErrSessionNotFound {
		writeMessage(w, http.StatusNotFound, false, "Session not found")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to delete session")
		return
	}

	writeMessage(w, http.StatusOK, true, "Session deleted")
}

type CoachTranscriptResponse struct {
	Success  bool                  `json:"success"`
	Message  string                `json:"message,omitempty"`
	Messages []models.CoachMessage `json:"messages"`
	HasMore  bool                  `json:"has_more"`
}

// GetCoachTranscript returns a page of the session transcript, oldest
// first. ?before= (RFC3339) pages backwards through history.
func GetCoachTranscript(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := services.GetCoachSession(ctx, userID, chi.URLParam(r, "id"))
	if err == services.ErrSessionNotFound {
		writeJSON(w, http.StatusNotFound, CoachTranscriptResponse{Success: false, Message: "Session not found", Messages: []models.CoachMessage{}})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, CoachTranscriptResponse{Success: false, Message: "Failed to load session", Messages: []models.CoachMessage{}})
		return
	}

	var before *time.Time
	if s := r.URL.Query().Get("before"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			before = &t
		}
	}
	limit := int64(50)
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			limit = parsed
		}
	}

	messages, hasMore, err := services.LoadCoachMessages(ctx, session.ID.Hex(), before, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, CoachTranscriptResponse{Success: false, Message: "Failed to load transcript", Messages: []models.CoachMessage{}})
		return
	}

	writeJSON(w, http.StatusOK, CoachTranscriptResponse{Success: true, Messages: messages, HasMore: hasMore})
}

type SendCoachMessageRequest struct {
	Message string `json:"message"`
}

// SendCoachMessage appends the user's message, calls the LLM with the
// persona prompt plus transcript, and streams the reply back as
// server-sent events. Thinking and metadata sections of the model's
// output are forwarded as their own SSE event types; the full reply is
// persisted once the stream ends.
func SendCoachMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuthString(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	if coachLLM == nil {
		writeMessage(w, http.StatusServiceUnavailable, false, "Coaching is not configured")
		return
	}

	var req SendCoachMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		writeMessage(w, http.StatusBadRequest, false, "Message is required")
		return
	}
	if len(text) > coachMaxMessageLen {
		writeMessage(w, http.StatusBadRequest, false, "Message is too long")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, false, "Streaming not supported")
		return
	}

	ctx := r.Context()

	session, err := services.GetCoachSession(ctx, userID, chi.URLParam(r, "id"))
	if err == services.ErrSessionNotFound {
		writeMessage(w, http.StatusNotFound, false, "Session not found")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to load session")
		return
	}

	if _, err := services.AppendCoachMessage(ctx, session.ID.Hex(), &models.CoachMessage{
		Role:    models.CoachRoleUser,
		Content: text,
	}); err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to save message")
		return
	}

	transcript, err := services.TranscriptForLLM(ctx, session.ID.Hex(), coachTranscriptWindow)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to load transcript")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	parser := services.NewTagStreamParser()
	var raw strings.Builder

	writeSegments := func(segments []services.StreamSegment) {
		for _, seg := range segments {
			writeSSE(w, string(seg.Kind), map[string]string{"text": seg.Text})
		}
		if len(segments) > 0 {
			flusher.Flush()
		}
	}

	streamErr := coachLLM.Stream(ctx, coachPersona, transcript, func(delta string) error {
		raw.WriteString(delta)
		writeSegments(parser.Feed(delta))
		return ctx.Err()
	})
	writeSegments(parser.Flush())

	if streamErr != nil && raw.Len() == 0 {
		writeSSE(w, "error", map[string]string{"message": "The coach is unavailable right now. Please try again."})
		flusher.Flush()
		return
	}
	if streamErr != nil {
		log.Printf("⚠️ Coach stream ended early: %v", streamErr)
	}

	content, thinking, meta := services.SplitTagged(raw.String())

	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	saved, err := services.AppendCoachMessage(persistCtx, session.ID.Hex(), &models.CoachMessage{
		Role:     models.CoachRoleAssistant,
		Content:  content,
		Thinking: thinking,
		Meta:     meta,
	})
	if err != nil {
		log.Printf("⚠️ Failed to persist coach reply: %v", err)
		writeSSE(w, "error", map[string]string{"message": "Reply could not be saved"})
		flusher.Flush()
		return
	}

	writeSSE(w, "done", map[string]string{"message_id": saved.ID.Hex()})
	flusher.Flush()
}

// writeSSE writes one server-sent event with a JSON payload.
func writeSSE(w http.ResponseWriter, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
