package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lumen-journal/lumen-backend/internal/database"
)

// Event types fanned out to connected clients.
const (
	EventTypeSyncCompleted = "sync_completed"
	EventTypeInsightReady  = "insight_ready"
	EventTypePing          = "pong"
)

const userEventChannelPrefix = "events:user:"

// UserEvent is the payload broadcast over Redis and WebSocket. A client
// with the journal open on two devices hears about syncs and fresh
// insights from the other one this way.
type UserEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	Imported  int       `json:"imported,omitempty"`
	Skipped   int       `json:"skipped,omitempty"`
	InsightID string    `json:"insight_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// eventHub is a registry of per-user subscriber channels on this instance.
type eventHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan UserEvent]struct{}
}

var (
	hub          = &eventHub{subs: make(map[string]map[chan UserEvent]struct{})}
	redisStarted sync.Once
)

// SubscribeUserEvents registers a subscriber for one user's events.
// The returned unsubscribe func closes the channel.
func SubscribeUserEvents(userID string) (<-chan UserEvent, func()) {
	ch := make(chan UserEvent, 16)

	hub.mu.Lock()
	if hub.subs[userID] == nil {
		hub.subs[userID] = make(map[chan UserEvent]struct{})
	}
	hub.subs[userID][ch] = struct{}{}
	hub.mu.Unlock()

	unsubscribe := func() {
		hub.mu.Lock()
		if set, ok := hub.subs[userID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(hub.subs, userID)
			}
		}
		hub.mu.Unlock()
	}
	return ch, unsubscribe
}

// fanOutUserEvent delivers an event to local subscribers. Slow consumers
// are skipped rather than blocking the subscriber loop.
func fanOutUserEvent(event UserEvent) {
	if event.UserID == "" {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for ch := range hub.subs[event.UserID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// PublishUserEvent publishes an event to Redis so every instance fans it
// out to that user's connections.
func PublishUserEvent(ctx context.Context, event UserEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return database.RedisClient.Publish(ctx, userEventChannelPrefix+event.UserID, data).Err()
}

// StartUserEventSubscriber ensures a single shared Redis listener per instance.
func StartUserEventSubscriber(ctx context.Context) {
	redisStarted.Do(func() {
		go runUserEventSubscriber(ctx)
	})
}

func runUserEventSubscriber(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		log.Println("Redis client not initialized; user event subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, userEventChannelPrefix+"*")
			defer pubsub.Close()

			log.Println("✅ User event subscriber started (pattern: events:user:*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					log.Printf("Redis subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event UserEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("failed to unmarshal user event: %v", err)
					continue
				}
				if event.UserID == "" {
					event.UserID = strings.TrimPrefix(msg.Channel, userEventChannelPrefix)
				}

				fanOutUserEvent(event)
			}
		}()
	}
}
