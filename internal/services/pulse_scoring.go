package services

import (
	"fmt"

	"github.com/lumen-journal/lumen-backend/internal/models"
)

const (
	// PulseAnswerMin and PulseAnswerMax bound each raw survey answer.
	PulseAnswerMin = 1
	PulseAnswerMax = 5
)

// ValidatePulseAnswers checks that every answer is on the 1-5 scale.
func ValidatePulseAnswers(a models.PulseAnswers) error {
	for i, v := range []int{a.Q1, a.Q2, a.Q3, a.Q4, a.Q5} {
		if v < PulseAnswerMin || v > PulseAnswerMax {
			return fmt.Errorf("answer q%d out of range: %d (must be %d-%d)", i+1, v, PulseAnswerMin, PulseAnswerMax)
		}
	}
	return nil
}

// ScorePulse normalizes raw answers to the three 0-100 scores.
//
//	mood       = mean(q1, q2) scaled to 0-100
//	stress     = mean(q3, q4) inverted then scaled, so 100 = calm
//	confidence = q5 scaled to 0-100
//
// Inversion happens on the raw 1-5 scale (6 - answer) before scaling.
func ScorePulse(a models.PulseAnswers) models.PulseScores {
	return models.PulseScores{
		Mood:       scaleToScore(mean(a.Q1, a.Q2)),
		Stress:     scaleToScore(mean(invert(a.Q3), invert(a.Q4))),
		Confidence: scaleToScore(float64(a.Q5)),
	}
}

// scaleToScore maps [1,5] linearly onto [0,100], rounding to nearest.
func scaleToScore(answer float64) int {
	if answer < PulseAnswerMin {
		answer = PulseAnswerMin
	}
	if answer > PulseAnswerMax {
		answer = PulseAnswerMax
	}
	score := (answer - PulseAnswerMin) / (PulseAnswerMax - PulseAnswerMin) * 100
	return int(score + 0.5)
}

func invert(answer int) int {
	return PulseAnswerMin + PulseAnswerMax - answer
}

func mean(vals ...int) float64 {
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}
