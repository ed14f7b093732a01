package models

import "time"

// Category identifies the practice section a question belongs to
type Category string

const (
	// CategoryListening covers audio comprehension questions
	CategoryListening Category = "listening"
	// CategoryGrammar covers grammar and vocabulary questions
	CategoryGrammar Category = "grammar"
	// CategoryReading covers passage-based comprehension questions
	CategoryReading Category = "reading"
)

// Question sources
const (
	SourceAI   = "ai"   // Generated by the AI collaborator
	SourceBank = "bank" // Imported from a question-bank spreadsheet
)

// Question represents a single multiple-choice practice question
type Question struct {
	ID            int64    `json:"id" db:"id"`
	Category      Category `json:"category" db:"category"`
	Tier          int      `json:"tier" db:"tier"` // Difficulty tier at generation time
	Text          string   `json:"question_text" db:"question_text"`
	OptionA       string   `json:"option_a" db:"option_a"`
	OptionB       string   `json:"option_b" db:"option_b"`
	OptionC       string   `json:"option_c" db:"option_c"`
	OptionD       string   `json:"option_d" db:"option_d"`
	CorrectAnswer string   `json:"correct_answer" db:"correct_answer"` // "A".."D"
	Explanation   string   `json:"explanation" db:"explanation"`

	// Listening questions only
	AudioScript string `json:"audio_script" db:"audio_script"`
	AudioPath   string `json:"audio_path" db:"audio_path"`

	// Reading questions only
	Passage      string `json:"passage" db:"passage"`
	DocumentType string `json:"document_type" db:"document_type"` // "Email", "Memo", ...

	Source    string    `json:"source" db:"source"`
	UsedCount int       `json:"used_count" db:"used_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Option returns the option text for an answer letter, or "" for an unknown letter.
func (q *Question) Option(letter string) string {
	switch letter {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}
