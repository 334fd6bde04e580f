package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lumen-journal/lumen-backend/internal/services"
)

// extractBearerToken returns the token from an "Authorization: Bearer x"
// header, or "" when the header is missing or malformed.
func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// requireAuth validates the session token and returns the authenticated
// user's ID. Returns (uuid.Nil, false) when not authenticated.
func requireAuth(r *http.Request) (uuid.UUID, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return uuid.Nil, false
	}
	userID, ok, err := services.ValidateSession(token)
	if err != nil || !ok {
		return uuid.Nil, false
	}
	return userID, true
}

// requireAuthString is requireAuth for handlers that key MongoDB
// documents by the string form of the user ID.
func requireAuthString(r *http.Request) (string, bool) {
	userID, ok := requireAuth(r)
	if !ok {
		return "", false
	}
	return userID.String(), true
}

// requireAdmin validates an admin session token.
func requireAdmin(r *http.Request) (uuid.UUID, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return uuid.Nil, false
	}
	adminID, ok, err := services.ValidateAdminSession(token)
	if err != nil || !ok {
		return uuid.Nil, false
	}
	return adminID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// messageResponse is the minimal success/message envelope.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, messageResponse{Success: success, Message: message})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
}
