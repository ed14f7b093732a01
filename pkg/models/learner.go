package models

import "time"

// DateLayout is the format used for learner-local calendar dates.
const DateLayout = "2006-01-02"

// Bounds of the difficulty tier scale.
const (
	MinTier = 1
	MaxTier = 10
)

// Bounds of the estimated score scale.
const (
	MinScore = 10
	MaxScore = 990
)

// Learner represents a Telegram user receiving daily practice content
type Learner struct {
	ID        int64  `json:"id" db:"telegram_id"` // Telegram User ID
	Username  string `json:"username" db:"username"`
	FirstName string `json:"first_name" db:"first_name"`

	// Delivery settings
	DeliveryTime    string `json:"delivery_time" db:"delivery_time"`       // "HH:MM" in the learner's local time
	UTCOffsetMin    int    `json:"utc_offset_min" db:"utc_offset_min"`     // Learner timezone as minutes east of UTC
	WeekendDelivery bool   `json:"weekend_delivery" db:"weekend_delivery"` // Whether to deliver on Saturday/Sunday
	ListeningPerDay int    `json:"listening_per_day" db:"listening_per_day"`
	GrammarPerDay   int    `json:"grammar_per_day" db:"grammar_per_day"`
	TTSLocale       string `json:"tts_locale" db:"tts_locale"`
	TargetScore     int    `json:"target_score" db:"target_score"`
	IsActive        bool   `json:"is_active" db:"is_active"` // Subscribed to daily delivery

	// Progress
	Tier              int       `json:"tier" db:"tier"`         // Current difficulty tier, MinTier..MaxTier
	Accuracy          *float64  `json:"accuracy" db:"accuracy"` // Rolling accuracy in [0,1], nil until the first session completes
	CurrentStreak     int       `json:"current_streak" db:"current_streak"`
	LongestStreak     int       `json:"longest_streak" db:"longest_streak"`
	EstimatedScore    int       `json:"estimated_score" db:"estimated_score"`
	LastDeliveryDate  string    `json:"last_delivery_date" db:"last_delivery_date"`   // Local date of the last delivery, empty if never delivered
	LastCompletedDate string    `json:"last_completed_date" db:"last_completed_date"` // Local date of the last fully answered session
	LastActive        time.Time `json:"last_active" db:"last_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Location returns the learner's timezone as a fixed-offset location.
func (l *Learner) Location() *time.Location {
	return time.FixedZone("learner", l.UTCOffsetMin*60)
}

// AccuracyOrZero returns the rolling accuracy, or 0 when no session has completed yet.
func (l *Learner) AccuracyOrZero() float64 {
	if l.Accuracy == nil {
		return 0
	}
	return *l.Accuracy
}
