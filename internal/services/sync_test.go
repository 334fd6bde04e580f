package services

import (
	"context"
	"testing"
	"time"
)

func TestSyncGuard(t *testing.T) {
	mr := setupTestRedis(t)
	ctx := context.Background()
	userID := "user-123"

	active, err := SyncGuardActive(ctx, userID)
	if err != nil {
		t.Fatalf("SyncGuardActive: %v", err)
	}
	if active {
		t.Fatal("guard should be inactive before any sync")
	}

	if err := MarkSynced(ctx, userID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	active, err = SyncGuardActive(ctx, userID)
	if err != nil {
		t.Fatalf("SyncGuardActive: %v", err)
	}
	if !active {
		t.Error("guard should be active immediately after a sync")
	}

	// Other users are unaffected.
	if active, _ := SyncGuardActive(ctx, "someone-else"); active {
		t.Error("guard should be per user")
	}

	// The guard window is wall-clock based, so the recorded timestamp
	// has to age past it rather than the Redis TTL.
	mr.Set(SyncLastKeyPrefix+userID, time.Now().UTC().Add(-SyncGuardWindow-time.Second).Format(time.RFC3339Nano))

	active, err = SyncGuardActive(ctx, userID)
	if err != nil {
		t.Fatalf("SyncGuardActive: %v", err)
	}
	if active {
		t.Error("guard should lapse after the window")
	}
}

func TestLastSyncedAt(t *testing.T) {
	setupTestRedis(t)
	ctx := context.Background()
	userID := "user-123"

	last, err := LastSyncedAt(ctx, userID)
	if err != nil {
		t.Fatalf("LastSyncedAt: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil before any sync, got %v", last)
	}

	before := time.Now().UTC().Add(-time.Second)
	if err := MarkSynced(ctx, userID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	last, err = LastSyncedAt(ctx, userID)
	if err != nil {
		t.Fatalf("LastSyncedAt: %v", err)
	}
	if last == nil {
		t.Fatal("expected a timestamp after MarkSynced")
	}
	if last.Before(before) || last.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("timestamp out of range: %v", last)
	}
}

func TestMarkSyncedRefreshesGuard(t *testing.T) {
	mr := setupTestRedis(t)
	ctx := context.Background()
	userID := "user-123"

	if err := MarkSynced(ctx, userID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	first, _ := LastSyncedAt(ctx, userID)

	mr.Set(SyncLastKeyPrefix+userID, time.Now().UTC().Add(-time.Minute).Format(time.RFC3339Nano))
	if err := MarkSynced(ctx, userID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	second, _ := LastSyncedAt(ctx, userID)
	if second == nil || first == nil {
		t.Fatal("expected timestamps from both syncs")
	}
	if !second.After(time.Now().UTC().Add(-10 * time.Second)) {
		t.Errorf("second sync should refresh the timestamp, got %v", second)
	}
}
