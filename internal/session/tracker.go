// Package session tracks in-flight quiz sessions and reconciles incoming
// answers against them. Sessions are transient process state: a learner has
// at most one active session, and closed sessions are summarized into the
// profile rather than retained.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/toeicbot/pkg/models"
)

// Item is one delivered question awaiting an answer
type Item struct {
	ID            string
	QuestionID    int64
	Category      models.Category
	Tier          int
	CorrectAnswer string // "A".."D"
	IssuedAt      time.Time
}

// NewItemID returns a fresh unique item id.
func NewItemID() string {
	return uuid.NewString()
}

// Outcome is the graded result of a single answer
type Outcome struct {
	Correct       bool
	CorrectAnswer string
	Scored        bool // False when the answer arrived after the deadline
	QuestionID    int64
	Category      models.Category
}

type activeSession struct {
	id        string
	learnerID int64
	date      string // learner-local delivery date
	openedAt  time.Time
	deadline  time.Time
	items     []Item
	byItemID  map[string]*Item
	answered  map[string]bool // item id -> was the answer correct
}

// Tracker holds active sessions keyed by session id, one per learner.
// All operations are serialized by a single mutex; the session population is
// bounded by the learner count so contention stays negligible.
type Tracker struct {
	mu        sync.Mutex
	timeout   time.Duration
	sessions  map[string]*activeSession
	byLearner map[int64]string
}

// NewTracker creates a tracker whose sessions expire after timeout.
func NewTracker(timeout time.Duration) *Tracker {
	return &Tracker{
		timeout:   timeout,
		sessions:  make(map[string]*activeSession),
		byLearner: make(map[int64]string),
	}
}

// Open registers a new session for a learner and returns its id. An active
// unexpired session causes a ConflictError; an expired leftover is evicted
// silently (its summary is recovered by SweepExpired before planning).
func (t *Tracker) Open(learnerID int64, date string, items []Item, now time.Time) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sid, ok := t.byLearner[learnerID]; ok {
		if s, ok := t.sessions[sid]; ok && now.Before(s.deadline) {
			return "", &ConflictError{LearnerID: learnerID}
		}
		delete(t.sessions, sid)
		delete(t.byLearner, learnerID)
	}

	s := &activeSession{
		id:        uuid.NewString(),
		learnerID: learnerID,
		date:      date,
		openedAt:  now,
		deadline:  now.Add(t.timeout),
		items:     items,
		byItemID:  make(map[string]*Item, len(items)),
		answered:  make(map[string]bool),
	}
	for i := range items {
		s.byItemID[items[i].ID] = &items[i]
	}

	t.sessions[s.id] = s
	t.byLearner[learnerID] = s.id
	return s.id, nil
}

// ActiveSession returns the learner's active session id, if any.
func (t *Tracker) ActiveSession(learnerID int64) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sid, ok := t.byLearner[learnerID]
	return sid, ok
}

// Record grades an answer against a session item. Late answers are still
// graded for user feedback but flagged non-scoring, alongside an
// ExpiredError. Answering the same item twice is a NotFoundError and leaves
// the first outcome untouched.
func (t *Tracker) Record(sessionID, itemID, answer string, now time.Time) (Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[sessionID]
	if !ok {
		return Outcome{}, &NotFoundError{SessionID: sessionID}
	}

	item, ok := s.byItemID[itemID]
	if !ok {
		return Outcome{}, &NotFoundError{SessionID: sessionID, ItemID: itemID}
	}
	if _, done := s.answered[itemID]; done {
		return Outcome{}, &NotFoundError{SessionID: sessionID, ItemID: itemID}
	}

	correct := strings.EqualFold(strings.TrimSpace(answer), item.CorrectAnswer)
	out := Outcome{
		Correct:       correct,
		CorrectAnswer: item.CorrectAnswer,
		Scored:        true,
		QuestionID:    item.QuestionID,
		Category:      item.Category,
	}

	if now.After(s.deadline) {
		out.Scored = false
		return out, &ExpiredError{SessionID: sessionID}
	}

	s.answered[itemID] = correct
	return out, nil
}

// CloseIfComplete closes the session when all items are answered or the
// deadline has passed, returning its summary. The close is atomic with the
// tracker lock, so concurrent final answers produce exactly one summary.
func (t *Tracker) CloseIfComplete(sessionID string, now time.Time) (*models.SessionSummary, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[sessionID]
	if !ok {
		return nil, false
	}

	complete := len(s.answered) == len(s.items)
	expired := now.After(s.deadline)
	if !complete && !expired {
		return nil, false
	}

	summary := t.summarize(s, complete, expired)
	delete(t.sessions, s.id)
	delete(t.byLearner, s.learnerID)
	return summary, true
}

// Abandon drops a session without producing a summary, used when the
// delivery send fails after the session was opened.
func (t *Tracker) Abandon(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[sessionID]; ok {
		delete(t.sessions, s.id)
		delete(t.byLearner, s.learnerID)
	}
}

// SweepExpired closes every session past its deadline and returns their
// summaries, oldest first.
func (t *Tracker) SweepExpired(now time.Time) []*models.SessionSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	var summaries []*models.SessionSummary
	for sid, s := range t.sessions {
		if now.After(s.deadline) {
			summaries = append(summaries, t.summarize(s, false, true))
			delete(t.sessions, sid)
			delete(t.byLearner, s.learnerID)
		}
	}
	return summaries
}

// summarize builds the transition record for a closing session.
// Caller must hold t.mu.
func (t *Tracker) summarize(s *activeSession, complete, expired bool) *models.SessionSummary {
	summary := &models.SessionSummary{
		LearnerID:  s.learnerID,
		Date:       s.date,
		Total:      len(s.items),
		ByCategory: make(map[models.Category]models.CategoryStats),
		Completed:  complete,
		Expired:    expired && !complete,
	}
	for i := range s.items {
		item := &s.items[i]
		correct, done := s.answered[item.ID]
		if !done {
			continue
		}
		summary.Answered++
		stats := summary.ByCategory[item.Category]
		stats.Total++
		if correct {
			summary.Correct++
			stats.Correct++
		}
		summary.ByCategory[item.Category] = stats
	}
	return summary
}
