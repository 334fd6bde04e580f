package services

import (
	"testing"
	"time"
)

func TestSubscribeAndFanOut(t *testing.T) {
	ch, unsubscribe := SubscribeUserEvents("user-a")
	defer unsubscribe()

	otherCh, otherUnsub := SubscribeUserEvents("user-b")
	defer otherUnsub()

	fanOutUserEvent(UserEvent{Type: EventTypeSyncCompleted, UserID: "user-a", Imported: 3})

	select {
	case evt := <-ch:
		if evt.Type != EventTypeSyncCompleted || evt.Imported != 3 {
			t.Errorf("got %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}

	select {
	case evt := <-otherCh:
		t.Errorf("other user received %+v", evt)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	ch, unsubscribe := SubscribeUserEvents("user-c")
	unsubscribe()

	if _, open := <-ch; open {
		t.Error("channel should be closed after unsubscribe")
	}

	// Unsubscribing twice must not panic or double-close.
	unsubscribe()

	// Events for the user now go nowhere, without blocking.
	fanOutUserEvent(UserEvent{Type: EventTypeInsightReady, UserID: "user-c"})
}

func TestFanOutSkipsSlowConsumers(t *testing.T) {
	ch, unsubscribe := SubscribeUserEvents("user-d")
	defer unsubscribe()

	// Fill the buffer past capacity; extra events are dropped, not blocked on.
	for i := 0; i < 50; i++ {
		fanOutUserEvent(UserEvent{Type: EventTypePing, UserID: "user-d"})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received == 0 || received > 50 {
				t.Errorf("received = %d", received)
			}
			return
		}
	}
}

func TestFanOutIgnoresMissingUserID(t *testing.T) {
	// Should be a no-op rather than a panic.
	fanOutUserEvent(UserEvent{Type: EventTypeSyncCompleted})
}
