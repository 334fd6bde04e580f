package services

import (
	"strings"
	"testing"
	"time"

	"github.com/lumen-journal/lumen-backend/internal/models"
)

func TestParseInsightJSON(t *testing.T) {
	payload, err := parseInsightJSON(`{"main_focus":"shipping the launch","blockers":["meetings"],"plan":["block mornings"]}`)
	if err != nil {
		t.Fatalf("parseInsightJSON: %v", err)
	}
	if payload.MainFocus != "shipping the launch" {
		t.Errorf("main_focus = %q", payload.MainFocus)
	}
	if len(payload.Blockers) != 1 || payload.Blockers[0] != "meetings" {
		t.Errorf("blockers = %v", payload.Blockers)
	}
	if len(payload.Plan) != 1 || payload.Plan[0] != "block mornings" {
		t.Errorf("plan = %v", payload.Plan)
	}
}

func TestParseInsightJSONWrappedInProse(t *testing.T) {
	raw := "Here is the summary you asked for:\n```json\n{\"main_focus\":\"rest\",\"blockers\":[],\"plan\":[\"sleep more\"]}\n```\nHope that helps!"
	payload, err := parseInsightJSON(raw)
	if err != nil {
		t.Fatalf("parseInsightJSON: %v", err)
	}
	if payload.MainFocus != "rest" {
		t.Errorf("main_focus = %q", payload.MainFocus)
	}
}

func TestParseInsightJSONRejects(t *testing.T) {
	if _, err := parseInsightJSON("no json here"); err == nil {
		t.Error("expected error for reply without JSON")
	}
	if _, err := parseInsightJSON(`{"main_focus": ""}`); err == nil {
		t.Error("expected error for empty main_focus")
	}
	if _, err := parseInsightJSON(`{"main_focus": 42}`); err == nil {
		t.Error("expected error for wrong type")
	}
}

func TestBuildInsightPrompt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	entries := []models.JournalEntry{
		{Title: "Newest", Content: "<p>Felt <b>good</b> today.</p>", CreatedAt: now},
		{Title: "Oldest", Content: "Rough start.", CreatedAt: now.AddDate(0, 0, -3)},
	}
	pulses := []models.PulseEntry{
		{Date: "2026-03-10", Scores: models.PulseScores{Mood: 70, Stress: 55, Confidence: 80}},
	}

	prompt := buildInsightPrompt(entries, pulses)

	// Entries come newest-first from Mongo and must be flipped to
	// chronological order for the model.
	if strings.Index(prompt, "Oldest") > strings.Index(prompt, "Newest") {
		t.Error("prompt should list the oldest entry first")
	}
	if strings.Contains(prompt, "<p>") || strings.Contains(prompt, "<b>") {
		t.Error("prompt should not contain HTML tags")
	}
	if !strings.Contains(prompt, "Felt good today.") {
		t.Errorf("prompt missing stripped entry text:\n%s", prompt)
	}
	if !strings.Contains(prompt, "2026-03-10 mood=70 stress=55 confidence=80") {
		t.Errorf("prompt missing pulse line:\n%s", prompt)
	}
}

func TestBuildInsightPromptCapsEntryLength(t *testing.T) {
	long := strings.Repeat("x", 5000)
	entries := []models.JournalEntry{{Title: "Long", Content: long, CreatedAt: time.Now()}}

	prompt := buildInsightPrompt(entries, nil)
	if strings.Contains(prompt, strings.Repeat("x", 1201)) {
		t.Error("entry text should be capped")
	}
	if !strings.Contains(prompt, strings.Repeat("x", 1200)) {
		t.Error("capped entry text should still be present")
	}
}
