package models

// CategoryStats holds per-category answer counts for one session
type CategoryStats struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// SessionSummary is the per-session outcome record consumed by the adaptive
// difficulty engine when a session closes. Unanswered items count toward Total
// but never toward Answered, so an expired session lowers completion without
// polluting accuracy.
type SessionSummary struct {
	LearnerID  int64                      `json:"learner_id"`
	Date       string                     `json:"date"` // Learner-local delivery date
	Total      int                        `json:"total"`
	Answered   int                        `json:"answered"`
	Correct    int                        `json:"correct"`
	ByCategory map[Category]CategoryStats `json:"by_category"`
	Completed  bool                       `json:"completed"` // All items answered before the deadline
	Expired    bool                       `json:"expired"`   // Closed by timeout with items outstanding
}

// Accuracy returns the fraction of answered items that were correct.
// The second return value is false when nothing was answered.
func (s *SessionSummary) Accuracy() (float64, bool) {
	if s.Answered == 0 {
		return 0, false
	}
	return float64(s.Correct) / float64(s.Answered), true
}
