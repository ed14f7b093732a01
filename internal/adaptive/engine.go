// Package adaptive updates a learner profile from session outcomes: rolling
// accuracy, difficulty tier, estimated score and streak. Every update is a
// pure value-in/value-out transform of (profile, summary).
package adaptive

import (
	"math"
	"time"

	"github.com/example/toeicbot/pkg/models"
)

// Default engine parameters.
const (
	DefaultAlpha = 0.3  // EWMA weight of the newest session
	DefaultHigh  = 0.85 // Session accuracy at or above this promotes the tier
	DefaultLow   = 0.5  // Session accuracy at or below this demotes the tier
)

// Engine folds session summaries into learner profiles
type Engine struct {
	Alpha float64
	High  float64
	Low   float64
}

// New creates an engine with the default parameters
func New() *Engine {
	return &Engine{Alpha: DefaultAlpha, High: DefaultHigh, Low: DefaultLow}
}

// Apply returns the profile after folding in one closed session. The input
// profile is not mutated. A summary with no answered items carries no signal
// and leaves the profile unchanged; tier moves are clamped to one step.
func (e *Engine) Apply(l models.Learner, s models.SessionSummary) models.Learner {
	sessionAcc, ok := s.Accuracy()
	if !ok {
		return l
	}

	// Rolling accuracy: EWMA, initialized directly from the first session
	if l.Accuracy == nil {
		a := sessionAcc
		l.Accuracy = &a
	} else {
		a := e.Alpha*sessionAcc + (1-e.Alpha)*(*l.Accuracy)
		l.Accuracy = &a
	}

	switch {
	case sessionAcc >= e.High && l.Tier < models.MaxTier:
		l.Tier++
	case sessionAcc <= e.Low && l.Tier > models.MinTier:
		l.Tier--
	}

	l.EstimatedScore = Score(l.Tier, *l.Accuracy)

	// Only a fully answered session counts as a completed day; an expired
	// session still moves accuracy and tier but leaves the streak to reset
	// naturally on the next completion.
	if s.Completed {
		l = applyStreak(l, s.Date)
	}

	return l
}

// Score maps (tier, rolling accuracy) onto the 10-990 scale. The mapping is
// strictly non-decreasing in both arguments.
func Score(tier int, accuracy float64) int {
	if tier < models.MinTier {
		tier = models.MinTier
	}
	if tier > models.MaxTier {
		tier = models.MaxTier
	}
	accuracy = math.Max(0, math.Min(1, accuracy))

	score := models.MinScore + (tier-1)*90 + int(math.Round(accuracy*170))
	if score > models.MaxScore {
		score = models.MaxScore
	}
	return score
}

// applyStreak counts consecutive completed due days. The first completion of
// a day extends the streak when the previous due day was also completed;
// otherwise the streak restarts at 1 (the day just completed still counts).
func applyStreak(l models.Learner, date string) models.Learner {
	if l.LastCompletedDate == date {
		return l // already counted today
	}

	if l.LastCompletedDate != "" && l.LastCompletedDate == previousDueDay(date, l.WeekendDelivery) {
		l.CurrentStreak++
	} else {
		l.CurrentStreak = 1
	}
	l.LastCompletedDate = date

	if l.CurrentStreak > l.LongestStreak {
		l.LongestStreak = l.CurrentStreak
	}
	return l
}

// previousDueDay returns the most recent day before date on which a session
// was owed. With weekend delivery disabled, Monday's previous due day is
// Friday, so a skipped weekend never breaks a streak.
func previousDueDay(date string, weekendDelivery bool) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return ""
	}
	d := t.AddDate(0, 0, -1)
	if !weekendDelivery {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, -1)
		}
	}
	return d.Format(models.DateLayout)
}
