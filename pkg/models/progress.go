package models

import "time"

// DailyProgress is one learner's archived outcome for a single calendar day
type DailyProgress struct {
	ID                int64     `json:"id" db:"id"`
	LearnerID         int64     `json:"learner_id" db:"learner_id"`
	Date              string    `json:"date" db:"date"` // Learner-local date
	Attempted         int       `json:"attempted" db:"attempted"`
	Correct           int       `json:"correct" db:"correct"`
	Accuracy          float64   `json:"accuracy" db:"accuracy"` // Correct/Attempted for the day
	ListeningAccuracy *float64  `json:"listening_accuracy" db:"listening_accuracy"`
	GrammarAccuracy   *float64  `json:"grammar_accuracy" db:"grammar_accuracy"`
	ReadingAccuracy   *float64  `json:"reading_accuracy" db:"reading_accuracy"`
	EstimatedScore    int       `json:"estimated_score" db:"estimated_score"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
