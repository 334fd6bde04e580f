package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumen-journal/lumen-backend/internal/models"
	"github.com/lumen-journal/lumen-backend/internal/services"
)

var coachUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// CoachSocketFrame is the wire format in both directions. Client sends
// {type:"message", text} or {type:"ping"}; server replies with
// content/thinking/meta text frames followed by done or error.
type CoachSocketFrame struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CoachWebSocket is the socket variant of the coach stream for clients
// that prefer a single connection over SSE. Authentication uses the
// session token (header or ?token=); the session is bound at connect
// time via ?session_id=.
func CoachWebSocket(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing session token", http.StatusUnauthorized)
			return
		}
	}

	userID, ok, err := services.ValidateSession(token)
	if err != nil || !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := services.GetCoachSession(ctx, userID.String(), sessionID)
	if err != nil {
		http.Error(w, "coach session not found", http.StatusNotFound)
		return
	}

	conn, err := coachUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var frame CoachSocketFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "message":
			handleCoachSocketMessage(ctx, conn, session, frame.Text)
		case "ping":
			_ = conn.WriteJSON(CoachSocketFrame{Type: "pong"})
		default:
			// Ignore unknown types
		}
	}
}

// handleCoachSocketMessage persists the user turn, streams the model
// reply back over the socket frame by frame, then persists the reply.
func handleCoachSocketMessage(ctx context.Context, conn *websocket.Conn, session *models.CoachSession, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if len(text) > coachMaxMessageLen {
		_ = conn.WriteJSON(CoachSocketFrame{Type: "error", Error: "message is too long"})
		return
	}
	if coachLLM == nil {
		_ = conn.WriteJSON(CoachSocketFrame{Type: "error", Error: "coaching is not configured"})
		return
	}

	sessionID := session.ID.Hex()
	if _, err := services.AppendCoachMessage(ctx, sessionID, &models.CoachMessage{
		Role:    models.CoachRoleUser,
		Content: text,
	}); err != nil {
		_ = conn.WriteJSON(CoachSocketFrame{Type: "error", Error: "failed to save message"})
		return
	}

	transcript, err := services.TranscriptForLLM(ctx, sessionID, coachTranscriptWindow)
	if err != nil {
		_ = conn.WriteJSON(CoachSocketFrame{Type: "error", Error: "failed to load transcript"})
		return
	}

	parser := services.NewTagStreamParser()
	var raw strings.Builder

	sendSegments := func(segments []services.StreamSegment) error {
		for _, seg := range segments {
			if err := conn.WriteJSON(CoachSocketFrame{Type: string(seg.Kind), Text: seg.Text}); err != nil {
				return err
			}
		}
		return nil
	}

	streamErr := coachLLM.Stream(ctx, coachPersona, transcript, func(delta string) error {
		raw.WriteString(delta)
		return sendSegments(parser.Feed(delta))
	})
	_ = sendSegments(parser.Flush())

	if streamErr != nil && raw.Len() == 0 {
		_ = conn.WriteJSON(CoachSocketFrame{Type: "error", Error: "the coach is unavailable right now"})
		return
	}
	if streamErr != nil {
		log.Printf("⚠️ Coach socket stream ended early: %v", streamErr)
	}

	content, thinking, meta := services.SplitTagged(raw.String())

	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	saved, err := services.AppendCoachMessage(persistCtx, sessionID, &models.CoachMessage{
		Role:     models.CoachRoleAssistant,
		Content:  content,
		Thinking: thinking,
		Meta:     meta,
	})
	if err != nil {
		_ = conn.WriteJSON(CoachSocketFrame{Type: "error", Error: "reply could not be saved"})
		return
	}

	_ = conn.WriteJSON(CoachSocketFrame{Type: "done", MessageID: saved.ID.Hex()})
}
