package models

import "time"

// Response records a single submitted answer for the audit trail
type Response struct {
	ID         int64     `json:"id" db:"id"`
	LearnerID  int64     `json:"learner_id" db:"learner_id"`
	QuestionID int64     `json:"question_id" db:"question_id"`
	ItemID     string    `json:"item_id" db:"item_id"` // Session item the answer resolved
	Answer     string    `json:"answer" db:"answer"`   // "A".."D"
	IsCorrect  bool      `json:"is_correct" db:"is_correct"`
	Scored     bool      `json:"scored" db:"scored"` // False for late answers, kept for feedback only
	AnsweredAt time.Time `json:"answered_at" db:"answered_at"`
}
