package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-journal/lumen-backend/internal/database"
	"github.com/lumen-journal/lumen-backend/internal/services"
	"github.com/lumen-journal/lumen-backend/pkg/utils"
)

type AdminSigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminSignin authenticates an admin and returns an admin session token.
func AdminSignin(w http.ResponseWriter, r *http.Request) {
	var req AdminSigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	var adminID uuid.UUID
	var username, passwordHash string
	var isActive bool
	err := database.PostgresDB.QueryRow(`
		SELECT id, username, password_hash, is_active
		FROM admins WHERE LOWER(username) = LOWER($1)
	`, req.Username).Scan(&adminID, &username, &passwordHash, &isActive)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	valid, err := utils.VerifyPassword(req.Password, passwordHash)
	if err != nil || !valid {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if !isActive {
		http.Error(w, "Admin account is deactivated", http.StatusForbidden)
		return
	}

	token, err := services.CreateAdminSession(adminID)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User: map[string]interface{}{
			"id":       adminID.String(),
			"username": username,
		},
	})
}

// AdminSignout invalidates the current admin session.
func AdminSignout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeUnauthorized(w)
		return
	}
	if err := services.InvalidateAdminSession(token); err != nil {
		http.Error(w, "Failed to sign out", http.StatusInternalServerError)
		return
	}
	writeMessage(w, http.StatusOK, true, "Signed out")
}

type AdminUserListResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message,omitempty"`
	Users   []map[string]interface{} `json:"users"`
	Total   int                      `json:"total"`
}

// AdminListUsers lists accounts for the admin dashboard, newest first.
func AdminListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(r); !ok {
		writeUnauthorized(w)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var total int
	if err := database.PostgresDB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		writeJSON(w, http.StatusInternalServerError, AdminUserListResponse{Success: false, Message: "Database error", Users: []map[string]interface{}{}})
		return
	}

	rows, err := database.PostgresDB.Query(`
		SELECT id, username, created_at, is_active
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, AdminUserListResponse{Success: false, Message: "Database error", Users: []map[string]interface{}{}})
		return
	}
	defer rows.Close()

	users := make([]map[string]interface{}, 0)
	for rows.Next() {
		var id uuid.UUID
		var username string
		var createdAt time.Time
		var isActive bool
		if err := rows.Scan(&id, &username, &createdAt, &isActive); err != nil {
			writeJSON(w, http.StatusInternalServerError, AdminUserListResponse{Success: false, Message: "Failed to scan", Users: []map[string]interface{}{}})
			return
		}
		users = append(users, map[string]interface{}{
			"id":         id.String(),
			"username":   username,
			"created_at": createdAt,
			"is_active":  isActive,
		})
	}

	writeJSON(w, http.StatusOK, AdminUserListResponse{Success: true, Users: users, Total: total})
}
