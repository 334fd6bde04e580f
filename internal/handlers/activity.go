package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-journal/lumen-backend/internal/database"
	"github.com/lumen-journal/lumen-backend/internal/services"
	"github.com/lumen-journal/lumen-backend/pkg/utils"
)

// RecordActivityRequest is the JSON body for POST /api/activity.
type RecordActivityRequest struct {
	Path      string `json:"path"`
	EventType string `json:"event_type,omitempty"`
}

var knownEventTypes = map[string]bool{
	"page_view":     true,
	"entry_created": true,
	"pulse_taken":   true,
	"coach_opened":  true,
}

// RecordActivity records a page view or app event. User ID is optional
// (taken from the session when present).
func RecordActivity(w http.ResponseWriter, r *http.Request) {
	var body RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid JSON")
		return
	}

	path := body.Path
	if path == "" {
		path = r.URL.Path
	}
	if len(path) > 500 {
		path = path[:500]
	}
	eventType := body.EventType
	if !knownEventTypes[eventType] {
		eventType = "page_view"
	}

	var userID *uuid.UUID
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token != "" {
		if id, ok, _ := services.ValidateSession(token); ok {
			userID = &id
		}
	}

	_, err := database.PostgresDB.Exec(`
		INSERT INTO activity_events (user_id, path, event_type, created_at)
		VALUES ($1, $2, $3, NOW())
	`, userID, path, eventType)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to record activity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GetUsageAnalytics returns admin dashboard analytics: new users per
// day, active users per day, recurring users and top pages over a range.
func GetUsageAnalytics(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(r); !ok {
		writeUnauthorized(w)
		return
	}

	from, to := utils.DayRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"), 30)
	toEnd := to.AddDate(0, 0, 1) // exclusive upper bound (end of "to" day)

	type dayCount struct {
		Date  string `json:"date"`
		Count int    `json:"count"`
	}

	newUsersPerDay := make([]dayCount, 0)
	rows, err := database.PostgresDB.Query(`
		SELECT (created_at)::date AS d, COUNT(*)
		FROM users
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY (created_at)::date
		ORDER BY d
	`, from, toEnd)
	if err != nil {
		log.Printf("[GetUsageAnalytics] Failed to fetch new users: %v", err)
		writeMessage(w, http.StatusInternalServerError, false, "Failed to fetch new users")
		return
	}
	for rows.Next() {
		var d time.Time
		var c int
		if err := rows.Scan(&d, &c); err != nil {
			rows.Close()
			writeMessage(w, http.StatusInternalServerError, false, "Failed to scan")
			return
		}
		newUsersPerDay = append(newUsersPerDay, dayCount{Date: d.Format(utils.DayFormat), Count: c})
	}
	rows.Close()

	activeUsersPerDay := make([]dayCount, 0)
	rows, err = database.PostgresDB.Query(`
		SELECT (created_at)::date AS d, COUNT(DISTINCT user_id)
		FROM activity_events
		WHERE user_id IS NOT NULL AND created_at >= $1 AND created_at < $2
		GROUP BY (created_at)::date
		ORDER BY d
	`, from, toEnd)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to fetch active users")
		return
	}
	for rows.Next() {
		var d time.Time
		var c int
		if err := rows.Scan(&d, &c); err != nil {
			rows.Close()
			writeMessage(w, http.StatusInternalServerError, false, "Failed to scan")
			return
		}
		activeUsersPerDay = append(activeUsersPerDay, dayCount{Date: d.Format(utils.DayFormat), Count: c})
	}
	rows.Close()

	// Recurring users: activity on 2+ distinct days in the range
	var recurringCount int
	err = database.PostgresDB.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT user_id
			FROM activity_events
			WHERE user_id IS NOT NULL AND created_at >= $1 AND created_at < $2
			GROUP BY user_id
			HAVING COUNT(DISTINCT (created_at)::date) >= 2
		) t
	`, from, toEnd).Scan(&recurringCount)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to fetch recurring users")
		return
	}

	type pageCount struct {
		Path  string `json:"path"`
		Count int    `json:"count"`
	}
	topPages := make([]pageCount, 0)
	rows, err = database.PostgresDB.Query(`
		SELECT path, COUNT(*) AS c
		FROM activity_events
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY path
		ORDER BY c DESC
		LIMIT 20
	`, from, toEnd)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to fetch top pages")
		return
	}
	for rows.Next() {
		var p pageCount
		if err := rows.Scan(&p.Path, &p.Count); err != nil {
			rows.Close()
			writeMessage(w, http.StatusInternalServerError, false, "Failed to scan")
			return
		}
		topPages = append(topPages, p)
	}
	rows.Close()

	var totalNewUsers int
	_ = database.PostgresDB.QueryRow(`
		SELECT COUNT(*) FROM users
		WHERE created_at >= $1 AND created_at < $2
	`, from, toEnd).Scan(&totalNewUsers)

	var totalActiveUsers int
	_ = database.PostgresDB.QueryRow(`
		SELECT COUNT(DISTINCT user_id) FROM activity_events
		WHERE user_id IS NOT NULL AND created_at >= $1 AND created_at < $2
	`, from, toEnd).Scan(&totalActiveUsers)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":               true,
		"from":                  from.Format(utils.DayFormat),
		"to":                    to.Format(utils.DayFormat),
		"new_users_per_day":     newUsersPerDay,
		"active_users_per_day":  activeUsersPerDay,
		"recurring_users_count": recurringCount,
		"top_pages":             topPages,
		"total_new_users":       totalNewUsers,
		"total_active_users":    totalActiveUsers,
	})
}
