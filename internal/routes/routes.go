package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/lumen-journal/lumen-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Auth routes
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Post("/api/auth/signout", handlers.Signout)
	r.Get("/api/auth/me", handlers.Me)
	r.Get("/api/auth/check-username", handlers.CheckUsername)
	r.Post("/api/auth/forgot-username", handlers.ForgotUsername)
	r.Post("/api/auth/forgot-password", handlers.ForgotPassword)
	r.Post("/api/auth/reset-password", handlers.ResetPassword)

	// Journal routes
	r.Post("/api/journals", handlers.CreateJournal)
	r.Get("/api/journals", handlers.GetJournals)
	r.Get("/api/journals/{id}", handlers.GetJournal)
	r.Put("/api/journals/{id}", handlers.UpdateJournal)
	r.Delete("/api/journals/{id}", handlers.DeleteJournal)

	// Sync routes (local entries pushed at sign-in)
	r.Post("/api/sync/journals", handlers.SyncJournals)
	r.Get("/api/sync/status", handlers.SyncStatus)

	// Leadership pulse routes
	r.Post("/api/pulse", handlers.SubmitPulse)
	r.Get("/api/pulse/today", handlers.TodayPulse)
	r.Get("/api/pulse/history", handlers.PulseHistory)
	r.Get("/api/pulse/trend", handlers.PulseTrend)

	// Coach routes (SSE streaming replies)
	r.Post("/api/coach/sessions", handlers.CreateCoachSession)
	r.Get("/api/coach/sessions", handlers.ListCoachSessions)
	r.Get("/api/coach/sessions/{id}", handlers.GetCoachTranscript)
	r.Post("/api/coach/sessions/{id}/messages", handlers.SendCoachMessage)
	r.Delete("/api/coach/sessions/{id}", handlers.DeleteCoachSession)

	// Insight routes
	r.Post("/api/insights/generate", handlers.GenerateInsight)
	r.Get("/api/insights/latest", handlers.LatestInsight)
	r.Get("/api/insights", handlers.InsightHistory)

	// Push device + reminder routes
	r.Post("/api/devices", handlers.RegisterDevice)
	r.Get("/api/devices", handlers.ListDevices)
	r.Delete("/api/devices/{id}", handlers.DeleteDevice)
	r.Get("/api/reminders", handlers.GetReminderPrefs)
	r.Put("/api/reminders", handlers.SetReminderPrefs)
	r.Post("/api/devices/test", handlers.TestPush)

	// Attachment upload
	r.Post("/api/upload", handlers.UploadAttachment)

	// Activity (first-party analytics)
	r.Post("/api/activity", handlers.RecordActivity)

	// Admin routes
	r.Post("/api/admin/signin", handlers.AdminSignin)
	r.Post("/api/admin/signout", handlers.AdminSignout)
	r.Get("/api/admin/users", handlers.AdminListUsers)
	r.Get("/api/admin/analytics", handlers.GetUsageAnalytics)

	// WebSocket endpoints (coach stream + per-user events)
	r.Get("/ws/coach", handlers.CoachWebSocket)
	r.Get("/ws/events", handlers.EventsWebSocket)
}
