package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lumen-journal/lumen-backend/internal/models"
	"github.com/lumen-journal/lumen-backend/internal/services"
)

var pushService *services.PushService

// InitPushService wires the SNS relay used by device and reminder
// endpoints. Push is disabled when the service is nil.
func InitPushService(svc *services.PushService) {
	pushService = svc
}

type RegisterDeviceRequest struct {
	Platform string `json:"platform"`
	Token    string `json:"token"`
}

type DeviceResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Device  *models.PushDevice `json:"device,omitempty"`
}

type DeviceListResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Devices []models.PushDevice `json:"devices"`
}

// RegisterDevice creates an SNS endpoint for the device token and
// stores the registration (token hashed).
func RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	if pushService == nil {
		writeJSON(w, http.StatusServiceUnavailable, DeviceResponse{Success: false, Message: "Push notifications are not configured"})
		return
	}

	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, DeviceResponse{Success: false, Message: "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	device, err := pushService.RegisterDevice(ctx, userID, req.Platform, req.Token)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, DeviceResponse{Success: false, Message: "Failed to register device: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, DeviceResponse{Success: true, Message: "Device registered", Device: device})
}

// ListDevices lists the user's registered devices.
func ListDevices(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	devices, err := services.ListDevices(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, DeviceListResponse{Success: false, Message: "Failed to list devices", Devices: []models.PushDevice{}})
		return
	}

	writeJSON(w, http.StatusOK, DeviceListResponse{Success: true, Devices: devices})
}

// DeleteDevice removes a device registration.
func DeleteDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	deviceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid device ID")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = services.DeleteDevice(ctx, userID, deviceID)
	if err == sql.ErrNoRows {
		writeMessage(w, http.StatusNotFound, false, "Device not found")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to delete device")
		return
	}

	writeMessage(w, http.StatusOK, true, "Device removed")
}

type ReminderPrefsRequest struct {
	Enabled bool `json:"enabled"`
	HourUTC int  `json:"hour_utc"`
}

type ReminderPrefsResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Prefs   *models.ReminderPrefs `json:"prefs,omitempty"`
}

// GetReminderPrefs returns the user's daily reminder preference.
func GetReminderPrefs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prefs, err := services.GetReminderPrefs(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ReminderPrefsResponse{Success: false, Message: "Failed to load preferences"})
		return
	}

	writeJSON(w, http.StatusOK, ReminderPrefsResponse{Success: true, Prefs: &prefs})
}

// SetReminderPrefs updates the reminder preference.
func SetReminderPrefs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req ReminderPrefsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ReminderPrefsResponse{Success: false, Message: "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := services.SetReminderPrefs(ctx, userID, req.Enabled, req.HourUTC); err != nil {
		writeJSON(w, http.StatusBadRequest, ReminderPrefsResponse{Success: false, Message: err.Error()})
		return
	}

	prefs, _ := services.GetReminderPrefs(ctx, userID)
	writeJSON(w, http.StatusOK, ReminderPrefsResponse{Success: true, Message: "Preferences updated", Prefs: &prefs})
}

// TestPush sends a test notification to all of the user's devices.
func TestPush(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	if pushService == nil {
		writeMessage(w, http.StatusServiceUnavailable, false, "Push notifications are not configured")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pushService.PushToUser(ctx, userID, "Lumen Journal", "Push notifications are working.", map[string]string{
		"type": "test",
	})

	writeMessage(w, http.StatusOK, true, "Test notification sent")
}
