package services

import (
	"testing"

	"github.com/lumen-journal/lumen-backend/internal/models"
)

func TestValidatePulseAnswers(t *testing.T) {
	valid := models.PulseAnswers{Q1: 1, Q2: 3, Q3: 5, Q4: 2, Q5: 4}
	if err := ValidatePulseAnswers(valid); err != nil {
		t.Errorf("valid answers rejected: %v", err)
	}
	if err := ValidatePulseAnswers(models.PulseAnswers{Q1: 0, Q2: 3, Q3: 3, Q4: 3, Q5: 3}); err == nil {
		t.Error("expected error for answer below range")
	}
	if err := ValidatePulseAnswers(models.PulseAnswers{Q1: 3, Q2: 3, Q3: 3, Q4: 3, Q5: 6}); err == nil {
		t.Error("expected error for answer above range")
	}
	// Zero value means the question was never answered.
	if err := ValidatePulseAnswers(models.PulseAnswers{}); err == nil {
		t.Error("expected error for unanswered survey")
	}
}

func TestScorePulse(t *testing.T) {
	cases := []struct {
		name    string
		answers models.PulseAnswers
		want    models.PulseScores
	}{
		{
			name:    "all neutral",
			answers: models.PulseAnswers{Q1: 3, Q2: 3, Q3: 3, Q4: 3, Q5: 3},
			want:    models.PulseScores{Mood: 50, Stress: 50, Confidence: 50},
		},
		{
			name:    "best day",
			answers: models.PulseAnswers{Q1: 5, Q2: 5, Q3: 1, Q4: 1, Q5: 5},
			want:    models.PulseScores{Mood: 100, Stress: 100, Confidence: 100},
		},
		{
			name:    "worst day",
			answers: models.PulseAnswers{Q1: 1, Q2: 1, Q3: 5, Q4: 5, Q5: 1},
			want:    models.PulseScores{Mood: 0, Stress: 0, Confidence: 0},
		},
		{
			name:    "half step rounds up",
			answers: models.PulseAnswers{Q1: 2, Q2: 3, Q3: 3, Q4: 3, Q5: 4},
			want:    models.PulseScores{Mood: 38, Stress: 50, Confidence: 75},
		},
		{
			name:    "stress inversion on raw scale",
			answers: models.PulseAnswers{Q1: 3, Q2: 3, Q3: 2, Q4: 4, Q5: 3},
			want:    models.PulseScores{Mood: 50, Stress: 50, Confidence: 50},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScorePulse(tc.answers)
			if got != tc.want {
				t.Errorf("ScorePulse(%+v) = %+v, want %+v", tc.answers, got, tc.want)
			}
		})
	}
}
