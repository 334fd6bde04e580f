package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PulseAnswers holds the raw five-question survey answers, each on a 1-5 scale.
// Q1/Q2 probe mood, Q3/Q4 probe stress (higher answer = more stressed),
// Q5 probes confidence.
type PulseAnswers struct {
	Q1 int `bson:"q1" json:"q1"`
	Q2 int `bson:"q2" json:"q2"`
	Q3 int `bson:"q3" json:"q3"`
	Q4 int `bson:"q4" json:"q4"`
	Q5 int `bson:"q5" json:"q5"`
}

// PulseScores are the normalized 0-100 scores derived from the answers.
// 100 is always the good end: Stress is inverted during normalization.
type PulseScores struct {
	Mood       int `bson:"mood" json:"mood"`
	Stress     int `bson:"stress" json:"stress"`
	Confidence int `bson:"confidence" json:"confidence"`
}

// PulseEntry is one user's survey response for one UTC calendar day.
// Date is "2006-01-02"; re-submitting the same day replaces the document.
type PulseEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
	UserIDString string             `bson:"user_id_string" json:"user_id,omitempty"`
	Date         string             `bson:"date" json:"date"`
	Answers      PulseAnswers       `bson:"answers" json:"answers"`
	Scores       PulseScores        `bson:"scores" json:"scores"`
}
