// Package planner decides, for a single learner and a given moment, whether a
// daily delivery is owed and what content to request. Decisions are pure
// functions of the profile and the injected clock so they can be tested
// against synthetic time.
package planner

import (
	"time"

	"github.com/example/toeicbot/pkg/models"
)

// DefaultDeliveryTime is assumed when a profile carries an unparsable time.
const DefaultDeliveryTime = "07:00"

// grammarTopics rotates the daily grammar focus through the week.
var grammarTopics = map[time.Weekday]string{
	time.Monday:    "Tenses (Present, Past, Future, Perfect)",
	time.Tuesday:   "Conditionals (If clauses, Hypothetical situations)",
	time.Wednesday: "Active and Passive Voice",
	time.Thursday:  "Participles (Present/Past participles, Participial phrases)",
	time.Friday:    "Infinitives and Gerunds",
	time.Saturday:  "Relative Clauses (Who, Which, That, Whose)",
	time.Sunday:    "Comparatives and Superlatives",
}

// GrammarTopic returns the grammar focus for a weekday.
func GrammarTopic(d time.Weekday) string {
	return grammarTopics[d]
}

// Planner evaluates delivery due-ness against a tolerance window
type Planner struct {
	// DueWindow is how long before the preferred time a delivery already
	// counts as due, absorbing scheduler tick granularity. Past the
	// preferred time the delivery stays due until the end of the local day,
	// so a restarted process still delivers late.
	DueWindow time.Duration
}

// New creates a planner with the given tolerance window in minutes
func New(windowMinutes int) *Planner {
	return &Planner{DueWindow: time.Duration(windowMinutes) * time.Minute}
}

// PlanDelivery reports whether the learner is owed a delivery at now and, if
// so, the content to request. It never mutates the profile: advancing the
// last-delivery date is the caller's job, after generation and send succeed,
// via MarkDelivered.
func (p *Planner) PlanDelivery(l *models.Learner, now time.Time) (*models.DeliveryPlan, bool) {
	local := now.In(l.Location())

	// Weekend skips neither deliver nor advance the last-delivery date, so
	// Monday triggers normally and the skipped days don't read as missed.
	if isWeekend(local.Weekday()) && !l.WeekendDelivery {
		return nil, false
	}

	today := local.Format(models.DateLayout)
	if l.LastDeliveryDate == today {
		return nil, false
	}

	hour, minute := parseDeliveryTime(l.DeliveryTime)
	preferred := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, local.Location())
	if local.Before(preferred.Add(-p.DueWindow)) {
		return nil, false
	}

	return &models.DeliveryPlan{
		LearnerID:    l.ID,
		Date:         today,
		Tier:         l.Tier,
		Listening:    l.ListeningPerDay,
		Grammar:      l.GrammarPerDay,
		GrammarTopic: GrammarTopic(local.Weekday()),
	}, true
}

// MarkDelivered advances the learner's last-delivery date to now's local
// calendar date. Call only after the content was generated and sent.
func MarkDelivered(l *models.Learner, now time.Time) {
	l.LastDeliveryDate = now.In(l.Location()).Format(models.DateLayout)
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// parseDeliveryTime parses "HH:MM", falling back to the default on bad input.
func parseDeliveryTime(s string) (hour, minute int) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		t, _ = time.Parse("15:04", DefaultDeliveryTime)
	}
	return t.Hour(), t.Minute()
}
