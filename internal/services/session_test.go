package services

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lumen-journal/lumen-backend/internal/database"
)

// setupTestRedis wires the package-global Redis client to an in-memory
// server for the duration of a test. Shared by the session, cache and
// sync tests.
func setupTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		database.RedisClient.Close()
		database.RedisClient = nil
	})
	return mr
}

func TestCreateAndValidateSession(t *testing.T) {
	setupTestRedis(t)
	userID := uuid.New()

	token, err := CreateSession(userID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if token == "" {
		t.Fatal("CreateSession returned empty token")
	}

	got, ok, err := ValidateSession(token)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if !ok {
		t.Fatal("session should be valid")
	}
	if got != userID {
		t.Errorf("ValidateSession user = %s, want %s", got, userID)
	}
}

func TestValidateSessionRejectsUnknownToken(t *testing.T) {
	setupTestRedis(t)

	if _, ok, err := ValidateSession("no-such-token"); ok || err != nil {
		t.Errorf("unknown token: ok=%v err=%v, want invalid with nil error", ok, err)
	}
	if _, ok, err := ValidateSession(""); ok || err != nil {
		t.Errorf("empty token: ok=%v err=%v, want invalid with nil error", ok, err)
	}
}

func TestSessionExpires(t *testing.T) {
	mr := setupTestRedis(t)
	token, err := CreateSession(uuid.New())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	mr.FastForward(SessionDuration + time.Minute)

	if _, ok, _ := ValidateSession(token); ok {
		t.Error("session should have expired")
	}
}

func TestRefreshSessionExtendsExpiry(t *testing.T) {
	mr := setupTestRedis(t)
	token, err := CreateSession(uuid.New())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Burn most of the lifetime, refresh, then pass the original expiry.
	mr.FastForward(SessionDuration - time.Hour)
	if err := RefreshSession(token); err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	mr.FastForward(2 * time.Hour)

	if _, ok, _ := ValidateSession(token); !ok {
		t.Error("refreshed session should still be valid")
	}
}

func TestRefreshSessionUnknownToken(t *testing.T) {
	setupTestRedis(t)
	if err := RefreshSession("no-such-token"); err == nil {
		t.Error("expected error refreshing unknown token")
	}
	if err := RefreshSession(""); err == nil {
		t.Error("expected error refreshing empty token")
	}
}

func TestInvalidateSession(t *testing.T) {
	setupTestRedis(t)
	userID := uuid.New()
	token, err := CreateSession(userID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := InvalidateSession(token); err != nil {
		t.Fatalf("InvalidateSession: %v", err)
	}
	if _, ok, _ := ValidateSession(token); ok {
		t.Error("session should be gone after invalidation")
	}
}

func TestCreateSessionReplacesPreviousSession(t *testing.T) {
	setupTestRedis(t)
	userID := uuid.New()

	first, err := CreateSession(userID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	second, err := CreateSession(userID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if first == second {
		t.Fatal("second login should mint a new token")
	}

	if _, ok, _ := ValidateSession(first); ok {
		t.Error("first session should be invalidated by second login")
	}
	if _, ok, _ := ValidateSession(second); !ok {
		t.Error("second session should be valid")
	}
}

func TestInvalidateUserSessions(t *testing.T) {
	setupTestRedis(t)
	userID := uuid.New()
	token, err := CreateSession(userID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := InvalidateUserSessions(userID); err != nil {
		t.Fatalf("InvalidateUserSessions: %v", err)
	}
	if _, ok, _ := ValidateSession(token); ok {
		t.Error("session should be gone after user-wide invalidation")
	}
}
