package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-journal/lumen-backend/internal/database"
)

const reminderTickInterval = 10 * time.Minute

var reminderTitles = []string{
	"Time to reflect",
	"Your journal is waiting",
	"A few minutes for yourself",
}

// StartReminderLoop launches the background loop that delivers daily
// journaling reminders near each user's configured hour.
func StartReminderLoop(push *PushService) {
	go func() {
		ticker := time.NewTicker(reminderTickInterval)
		defer ticker.Stop()

		for range ticker.C {
			if err := sendDueReminders(push); err != nil {
				log.Printf("reminder sweep failed: %v", err)
			}
		}
	}()
	log.Println("✅ Daily reminder loop started")
}

// sendDueReminders pushes to every user whose reminder hour has arrived
// and who has not been reminded yet today.
func sendDueReminders(push *PushService) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()

	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT user_id, last_sent_at
		FROM reminder_prefs
		WHERE enabled = TRUE AND hour_utc = $1
	`, now.Hour())
	if err != nil {
		return err
	}
	defer rows.Close()

	type due struct {
		userID uuid.UUID
	}
	var dueUsers []due
	for rows.Next() {
		var userID uuid.UUID
		var lastSent sql.NullTime
		if err := rows.Scan(&userID, &lastSent); err != nil {
			continue
		}
		if lastSent.Valid && sameUTCDay(lastSent.Time, now) {
			continue
		}
		dueUsers = append(dueUsers, due{userID: userID})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i, u := range dueUsers {
		title := reminderTitles[i%len(reminderTitles)]
		push.PushToUser(ctx, u.userID, title, "Capture a thought before the day slips by.", map[string]string{
			"type": "daily_reminder",
		})
		markReminderSent(ctx, u.userID, now)
	}

	if len(dueUsers) > 0 {
		log.Printf("Sent %d daily reminders", len(dueUsers))
	}
	return nil
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
