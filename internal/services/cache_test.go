package services

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	setupTestRedis(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	key := CacheKey("insight_latest", "user-1")
	if err := Cache.Set(key, payload{Name: "focus", Count: 3}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got payload
	found, err := Cache.Get(key, &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if got.Name != "focus" || got.Count != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestCacheMissIsNotError(t *testing.T) {
	setupTestRedis(t)

	var dest string
	found, err := Cache.Get("nope", &dest)
	if err != nil {
		t.Fatalf("Get on miss: %v", err)
	}
	if found {
		t.Error("expected miss")
	}
}

func TestCacheDelete(t *testing.T) {
	setupTestRedis(t)

	if err := Cache.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := Cache.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var dest string
	if found, _ := Cache.Get("k", &dest); found {
		t.Error("value should be gone after delete")
	}
}

func TestCacheExists(t *testing.T) {
	setupTestRedis(t)

	if ok, err := Cache.Exists("k"); err != nil || ok {
		t.Errorf("Exists before set: ok=%v err=%v", ok, err)
	}
	if err := Cache.Set("k", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ok, err := Cache.Exists("k"); err != nil || !ok {
		t.Errorf("Exists after set: ok=%v err=%v", ok, err)
	}
}

func TestCacheTTLClamped(t *testing.T) {
	mr := setupTestRedis(t)

	// A one-minute TTL is raised to the minimum.
	if err := Cache.SetWithTTL("short", "v", time.Minute); err != nil {
		t.Fatalf("SetWithTTL: %v", err)
	}
	mr.FastForward(30 * time.Minute)
	var dest string
	if found, _ := Cache.Get("short", &dest); !found {
		t.Error("short TTL should be clamped up to MinCacheTTL")
	}

	// A week-long TTL is lowered to the maximum.
	if err := Cache.SetWithTTL("long", "v", 7*24*time.Hour); err != nil {
		t.Fatalf("SetWithTTL: %v", err)
	}
	mr.FastForward(MaxCacheTTL + time.Hour)
	if found, _ := Cache.Get("long", &dest); found {
		t.Error("long TTL should be clamped down to MaxCacheTTL")
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey("insight_latest", "abc"); got != "insight_latest:abc" {
		t.Errorf("CacheKey = %q", got)
	}
}
