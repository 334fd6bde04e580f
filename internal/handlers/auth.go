package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-journal/lumen-backend/internal/database"
	"github.com/lumen-journal/lumen-backend/internal/services"
	"github.com/lumen-journal/lumen-backend/pkg/utils"
)

var emailService *services.EmailService

// InitEmailService wires the SES client used by account recovery.
// Recovery mail is disabled when the service is nil.
func InitEmailService(svc *services.EmailService) {
	emailService = svc
}

const (
	resetCodeKeyPrefix = "pwreset:"
	resetCodeTTL       = 15 * time.Minute
)

type SignupRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	RecoveryEmail string `json:"recovery_email,omitempty"`
}

type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the envelope for signup/signin/me.
type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	User    map[string]interface{} `json:"user,omitempty"`
	Token   string                 `json:"token,omitempty"`
}

// Signup handles account registration.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Username = utils.NormalizeUsername(req.Username)
	if err := utils.ValidateUsername(req.Username); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	// Check if username is taken
	var existing string
	err := database.PostgresDB.QueryRow("SELECT username FROM users WHERE LOWER(username) = LOWER($1)", req.Username).Scan(&existing)
	if err == nil {
		http.Error(w, "Username is already taken", http.StatusConflict)
		return
	} else if err != sql.ErrNoRows {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	userID := uuid.New()
	now := time.Now()

	_, err = database.PostgresDB.Exec(`
		INSERT INTO users (id, username, password_hash, created_at, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
	`, userID, req.Username, hashedPassword, now)
	if err != nil {
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	if email := strings.TrimSpace(req.RecoveryEmail); email != "" {
		if err := storeRecoveryEmail(userID, email); err != nil {
			log.Printf("⚠️ Failed to store recovery email: %v", err)
		}
	}

	token, err := services.CreateSession(userID)
	if err != nil {
		http.Error(w, "Account created but session could not be started", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		Token:   token,
		User: map[string]interface{}{
			"id":         userID.String(),
			"username":   req.Username,
			"created_at": now,
		},
	})
}

// Signin handles login. A successful sign-in replaces any existing
// session for the user.
func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	var userID uuid.UUID
	var username, passwordHash string
	var createdAt time.Time
	var isActive bool

	err := database.PostgresDB.QueryRow(`
		SELECT id, username, password_hash, created_at, is_active
		FROM users WHERE LOWER(username) = LOWER($1)
	`, utils.NormalizeUsername(req.Username)).Scan(&userID, &username, &passwordHash, &createdAt, &isActive)
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
		http.Error(w, "Account is deactivated", http.StatusForbidden)
		return
	}

	token, err := services.CreateSession(userID)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User: map[string]interface{}{
			"id":         userID.String(),
			"username":   username,
			"created_at": createdAt,
		},
	})
}

// Signout invalidates the current session.
func Signout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeUnauthorized(w)
		return
	}
	if err := services.InvalidateSession(token); err != nil {
		http.Error(w, "Failed to sign out", http.StatusInternalServerError)
		return
	}
	writeMessage(w, http.StatusOK, true, "Signed out")
}

// Me returns the authenticated user's profile and refreshes the session TTL.
func Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var username string
	var createdAt time.Time
	err := database.PostgresDB.QueryRow(`
		SELECT username, created_at FROM users WHERE id = $1
	`, userID).Scan(&username, &createdAt)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	var hasRecovery bool
	database.PostgresDB.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM user_recovery WHERE user_id = $1 AND email_encrypted IS NOT NULL)
	`, userID).Scan(&hasRecovery)

	if token := extractBearerToken(r.Header.Get("Authorization")); token != "" {
		services.RefreshSession(token)
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "OK",
		User: map[string]interface{}{
			"id":                 userID.String(),
			"username":           username,
			"created_at":         createdAt,
			"has_recovery_email": hasRecovery,
		},
	})
}

// CheckUsername reports whether a username is valid and available.
func CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := utils.NormalizeUsername(r.URL.Query().Get("username"))
	if err := utils.ValidateUsername(username); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"available": false,
			"reason":    err.Error(),
		})
		return
	}

	var existing string
	err := database.PostgresDB.QueryRow("SELECT username FROM users WHERE LOWER(username) = LOWER($1)", username).Scan(&existing)
	available := err == sql.ErrNoRows

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"available": available,
	})
}

type ForgotUsernameRequest struct {
	Email string `json:"email"`
}

// ForgotUsername mails the username to the recovery address. Always
// responds 200 so the endpoint cannot be used to probe for accounts.
func ForgotUsername(w http.ResponseWriter, r *http.Request) {
	var req ForgotUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var username string
		err := database.PostgresDB.QueryRowContext(ctx, `
			SELECT u.username FROM users u
			JOIN user_recovery ur ON ur.user_id = u.id
			WHERE ur.email_hash = $1 AND u.is_active = TRUE
		`, hashRecoveryEmail(email)).Scan(&username)
		if err != nil {
			return
		}
		if emailService == nil {
			log.Println("⚠️ Username reminder requested but email service is not configured")
			return
		}
		if err := emailService.SendUsernameReminder(ctx, email, username); err != nil {
			log.Printf("⚠️ Failed to send username reminder: %v", err)
		}
	}()

	writeMessage(w, http.StatusOK, true, "If that email is on file, a reminder has been sent")
}

type ForgotPasswordRequest struct {
	Username string `json:"username"`
}

// ForgotPassword mails a short-lived reset code to the account's
// recovery address. Always responds 200.
func ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}

	username := utils.NormalizeUsername(req.Username)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var userID uuid.UUID
		var encryptedEmail sql.NullString
		err := database.PostgresDB.QueryRowContext(ctx, `
			SELECT u.id, ur.email_encrypted FROM users u
			JOIN user_recovery ur ON ur.user_id = u.id
			WHERE LOWER(u.username) = LOWER($1) AND u.is_active = TRUE
		`, username).Scan(&userID, &encryptedEmail)
		if err != nil || !encryptedEmail.Valid {
			return
		}

		email, err := utils.Decrypt(encryptedEmail.String)
		if err != nil {
			log.Printf("⚠️ Failed to decrypt recovery email: %v", err)
			return
		}

		code, err := generateResetCode()
		if err != nil {
			return
		}
		if err := database.RedisClient.Set(ctx, resetCodeKeyPrefix+userID.String(), code, resetCodeTTL).Err(); err != nil {
			log.Printf("⚠️ Failed to store reset code: %v", err)
			return
		}
		if emailService == nil {
			log.Println("⚠️ Password reset requested but email service is not configured")
			return
		}
		if err := emailService.SendPasswordResetCode(ctx, email, code); err != nil {
			log.Printf("⚠️ Failed to send reset code: %v", err)
		}
	}()

	writeMessage(w, http.StatusOK, true, "If the account has a recovery email, a reset code has been sent")
}

type ResetPasswordRequest struct {
	Username    string `json:"username"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ResetPassword exchanges a valid reset code for a new password and
// invalidates every session for the account.
func ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Code == "" {
		http.Error(w, "Username and code are required", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	var userID uuid.UUID
	err := database.PostgresDB.QueryRow(`
		SELECT id FROM users WHERE LOWER(username) = LOWER($1) AND is_active = TRUE
	`, utils.NormalizeUsername(req.Username)).Scan(&userID)
	if err != nil {
		http.Error(w, "Invalid code", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stored, err := database.RedisClient.Get(ctx, resetCodeKeyPrefix+userID.String()).Result()
	if err != nil || stored != strings.TrimSpace(req.Code) {
		http.Error(w, "Invalid code", http.StatusUnauthorized)
		return
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}
	_, err = database.PostgresDB.Exec(`UPDATE users SET password_hash = $2 WHERE id = $1`, userID, hashedPassword)
	if err != nil {
		http.Error(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	database.RedisClient.Del(ctx, resetCodeKeyPrefix+userID.String())
	services.InvalidateUserSessions(userID)

	writeMessage(w, http.StatusOK, true, "Password updated. Please sign in again.")
}

func storeRecoveryEmail(userID uuid.UUID, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid recovery email")
	}
	encrypted, err := utils.Encrypt(email)
	if err != nil {
		return err
	}
	_, err = database.PostgresDB.Exec(`
		INSERT INTO user_recovery (user_id, email_encrypted, email_hash, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			email_encrypted = $2,
			email_hash = $3,
			updated_at = NOW()
	`, userID, encrypted, hashRecoveryEmail(email))
	return err
}

func hashRecoveryEmail(email string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(h[:])
}

// generateResetCode returns a 6-digit numeric code.
func generateResetCode() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return fmt.Sprintf("%06d", n%1000000), nil
}
