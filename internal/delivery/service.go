// Package delivery wires the planner, session tracker, adaptive engine,
// generators and stores into the two entry points the outside world calls:
// the scheduler tick and the answer callback.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/toeicbot/internal/adaptive"
	"github.com/example/toeicbot/internal/generator"
	"github.com/example/toeicbot/internal/planner"
	"github.com/example/toeicbot/internal/session"
	"github.com/example/toeicbot/internal/tts"
	"github.com/example/toeicbot/pkg/models"
)

// ProfileStore is the learner profile persistence used by the core
type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (*models.Learner, error)
	GetActive(ctx context.Context) ([]models.Learner, error)
	Update(ctx context.Context, l *models.Learner) error
}

// QuestionStore persists generated questions and resolves them for feedback
type QuestionStore interface {
	Save(ctx context.Context, q *models.Question) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Question, error)
	IncrementUsed(ctx context.Context, id int64) error
}

// ProgressStore archives per-day outcomes
type ProgressStore interface {
	Record(ctx context.Context, p *models.DailyProgress) error
}

// ResponseStore keeps the answer audit trail
type ResponseStore interface {
	Create(ctx context.Context, r *models.Response) error
}

// OutgoingItem pairs a stored question with its session item id, so the
// transport can build answer buttons that route back to the right item
type OutgoingItem struct {
	ItemID   string
	Question models.Question
}

// Transport delivers a batch of questions to the learner's chat
type Transport interface {
	SendDaily(ctx context.Context, l *models.Learner, items []OutgoingItem) error
}

// Feedback is what the transport shows the learner after an answer
type Feedback struct {
	Correct       bool
	CorrectAnswer string
	CorrectOption string // Text of the correct option, for display
	Explanation   string
	Scored        bool // False for late answers
	SessionDone   bool
	Summary       *models.SessionSummary
}

// Deps bundles the service's collaborators
type Deps struct {
	Planner   *planner.Planner
	Engine    *adaptive.Engine
	Tracker   *session.Tracker
	Generator generator.Generator
	TTS       tts.Renderer
	Transport Transport
	Learners  ProfileStore
	Questions QuestionStore
	Progress  ProgressStore
	Responses ResponseStore
}

// Service is the delivery and answer-handling core
type Service struct {
	deps  Deps
	locks *learnerLocks
}

// NewService creates the core service
func NewService(deps Deps) *Service {
	return &Service{deps: deps, locks: newLearnerLocks()}
}

// SetTransport attaches the outbound transport after construction; the
// transport and the core reference each other.
func (s *Service) SetTransport(t Transport) {
	s.deps.Transport = t
}

// DeliverDue runs one scheduler tick: closes overdue sessions, then plans
// and delivers to every learner whose due window has opened. Failures are
// per-learner and deferred to the next tick.
func (s *Service) DeliverDue(ctx context.Context, now time.Time) {
	s.SweepSessions(ctx, now)

	learners, err := s.deps.Learners.GetActive(ctx)
	if err != nil {
		log.Printf("Error getting active learners: %v", err)
		return
	}

	for i := range learners {
		l := learners[i]
		if err := s.deliverOne(ctx, &l, now); err != nil {
			log.Printf("Error delivering to learner %d: %v", l.ID, err)
		}
	}
}

// SweepSessions closes every expired session and folds its outcome into the
// owning profile.
func (s *Service) SweepSessions(ctx context.Context, now time.Time) {
	for _, summary := range s.deps.Tracker.SweepExpired(now) {
		if err := s.applySummary(ctx, summary, now); err != nil {
			log.Printf("Error applying expired session for learner %d: %v", summary.LearnerID, err)
		}
	}
}

func (s *Service) deliverOne(ctx context.Context, l *models.Learner, now time.Time) error {
	// The lock covers only the due decision; generation and send run
	// outside it so slow collaborators don't serialize the whole tick.
	unlock := s.locks.lock(l.ID)
	plan, due := s.deps.Planner.PlanDelivery(l, now)
	if due {
		if _, active := s.deps.Tracker.ActiveSession(l.ID); active {
			// Yesterday's quiz is still open: reject rather than stack
			// sessions. The expiry sweep will free the learner up.
			due = false
		}
	}
	unlock()
	if !due {
		return nil
	}

	questions, err := s.generateContent(ctx, l, plan)
	if err != nil {
		// Last-delivery date untouched; the next tick retries.
		return err
	}

	items := make([]session.Item, len(questions))
	outgoing := make([]OutgoingItem, len(questions))
	for i, q := range questions {
		items[i] = session.Item{
			ID:            session.NewItemID(),
			QuestionID:    q.ID,
			Category:      q.Category,
			Tier:          q.Tier,
			CorrectAnswer: q.CorrectAnswer,
			IssuedAt:      now,
		}
		outgoing[i] = OutgoingItem{ItemID: items[i].ID, Question: q}
	}

	sid, err := s.deps.Tracker.Open(l.ID, plan.Date, items, now)
	if err != nil {
		var conflict *session.ConflictError
		if errors.As(err, &conflict) {
			// A concurrent trigger won the race; this delivery is dropped.
			return nil
		}
		return err
	}

	if err := s.deps.Transport.SendDaily(ctx, l, outgoing); err != nil {
		s.deps.Tracker.Abandon(sid)
		return fmt.Errorf("failed to send daily content: %v", err)
	}

	// Commit: re-read the profile under the lock so a concurrent update
	// isn't clobbered, then advance the last-delivery date.
	unlock = s.locks.lock(l.ID)
	defer unlock()

	fresh, err := s.deps.Learners.GetByID(ctx, l.ID)
	if err != nil {
		return fmt.Errorf("failed to reload learner %d: %v", l.ID, err)
	}
	planner.MarkDelivered(fresh, now)
	fresh.LastActive = now
	return s.deps.Learners.Update(ctx, fresh)
}

// generateContent requests the planned questions, renders listening audio
// and persists everything, returning the stored questions.
func (s *Service) generateContent(ctx context.Context, l *models.Learner, plan *models.DeliveryPlan) ([]models.Question, error) {
	var questions []models.Question

	if plan.Listening > 0 {
		listening, err := s.deps.Generator.Generate(ctx, models.CategoryListening, plan.Tier, plan.Listening, "")
		if err != nil {
			return nil, fmt.Errorf("failed to generate listening questions: %v", err)
		}
		for i := range listening {
			q := &listening[i]
			if q.AudioScript != "" && q.AudioPath == "" && s.deps.TTS != nil {
				path, err := s.deps.TTS.Render(ctx, q.AudioScript, l.TTSLocale)
				if err != nil {
					// Text-only delivery is acceptable.
					log.Printf("TTS failed for learner %d, sending script as text: %v", l.ID, err)
				} else {
					q.AudioPath = path
				}
			}
		}
		questions = append(questions, listening...)
	}

	if plan.Grammar > 0 {
		grammar, err := s.deps.Generator.Generate(ctx, models.CategoryGrammar, plan.Tier, plan.Grammar, plan.GrammarTopic)
		if err != nil {
			return nil, fmt.Errorf("failed to generate grammar questions: %v", err)
		}
		questions = append(questions, grammar...)
	}

	if plan.Reading > 0 {
		reading, err := s.deps.Generator.Generate(ctx, models.CategoryReading, plan.Tier, plan.Reading, "")
		if err != nil {
			return nil, fmt.Errorf("failed to generate reading questions: %v", err)
		}
		questions = append(questions, reading...)
	}

	for i := range questions {
		q := &questions[i]
		if q.ID != 0 {
			continue // bank questions are already stored
		}
		if _, err := s.deps.Questions.Save(ctx, q); err != nil {
			return nil, err
		}
	}

	return questions, nil
}

// Practice delivers an immediate session of grammar questions on the day's
// topic plus one passage-based reading question, outside the daily schedule.
// It does not advance the last-delivery date, so the scheduled delivery for
// the day is unaffected.
func (s *Service) Practice(ctx context.Context, learnerID int64, count int, now time.Time) error {
	// Close out an expired session first so it doesn't read as a conflict.
	s.SweepSessions(ctx, now)

	l, err := s.deps.Learners.GetByID(ctx, learnerID)
	if err != nil {
		return err
	}

	if _, active := s.deps.Tracker.ActiveSession(l.ID); active {
		return &session.ConflictError{LearnerID: l.ID}
	}

	local := now.In(l.Location())
	plan := &models.DeliveryPlan{
		LearnerID:    l.ID,
		Date:         local.Format(models.DateLayout),
		Tier:         l.Tier,
		Grammar:      count,
		Reading:      1,
		GrammarTopic: planner.GrammarTopic(local.Weekday()),
	}

	questions, err := s.generateContent(ctx, l, plan)
	if err != nil {
		return err
	}

	items := make([]session.Item, len(questions))
	outgoing := make([]OutgoingItem, len(questions))
	for i, q := range questions {
		items[i] = session.Item{
			ID:            session.NewItemID(),
			QuestionID:    q.ID,
			Category:      q.Category,
			Tier:          q.Tier,
			CorrectAnswer: q.CorrectAnswer,
			IssuedAt:      now,
		}
		outgoing[i] = OutgoingItem{ItemID: items[i].ID, Question: q}
	}

	sid, err := s.deps.Tracker.Open(l.ID, plan.Date, items, now)
	if err != nil {
		return err
	}

	if err := s.deps.Transport.SendDaily(ctx, l, outgoing); err != nil {
		s.deps.Tracker.Abandon(sid)
		return fmt.Errorf("failed to send practice content: %v", err)
	}
	return nil
}

// OnAnswer resolves an incoming answer against the learner's active session,
// records the audit row, and closes the session when it was the last item.
func (s *Service) OnAnswer(ctx context.Context, learnerID int64, itemID, answer string, now time.Time) (*Feedback, error) {
	sid, ok := s.deps.Tracker.ActiveSession(learnerID)
	if !ok {
		return nil, &session.NotFoundError{SessionID: "", ItemID: itemID}
	}

	out, err := s.deps.Tracker.Record(sid, itemID, answer, now)
	if err != nil {
		var expired *session.ExpiredError
		if !errors.As(err, &expired) {
			return nil, err
		}
		// Late answer: graded for feedback, excluded from scoring.
	}

	if err := s.deps.Responses.Create(ctx, &models.Response{
		LearnerID:  learnerID,
		QuestionID: out.QuestionID,
		ItemID:     itemID,
		Answer:     answer,
		IsCorrect:  out.Correct,
		Scored:     out.Scored,
		AnsweredAt: now,
	}); err != nil {
		log.Printf("Error recording response for learner %d: %v", learnerID, err)
	}

	fb := &Feedback{
		Correct:       out.Correct,
		CorrectAnswer: out.CorrectAnswer,
		Scored:        out.Scored,
	}

	if q, err := s.deps.Questions.GetByID(ctx, out.QuestionID); err == nil {
		fb.CorrectOption = q.Option(out.CorrectAnswer)
		fb.Explanation = q.Explanation
	}
	if err := s.deps.Questions.IncrementUsed(ctx, out.QuestionID); err != nil {
		log.Printf("Error counting usage for question %d: %v", out.QuestionID, err)
	}

	if summary, closed := s.deps.Tracker.CloseIfComplete(sid, now); closed {
		fb.SessionDone = true
		fb.Summary = summary
		if err := s.applySummary(ctx, summary, now); err != nil {
			return fb, fmt.Errorf("failed to apply session outcome: %v", err)
		}
	}

	return fb, nil
}

// applySummary folds a closed session into the learner profile and the daily
// progress archive, atomically per learner.
func (s *Service) applySummary(ctx context.Context, summary *models.SessionSummary, now time.Time) error {
	unlock := s.locks.lock(summary.LearnerID)
	defer unlock()

	l, err := s.deps.Learners.GetByID(ctx, summary.LearnerID)
	if err != nil {
		return err
	}

	updated := s.deps.Engine.Apply(*l, *summary)
	updated.LastActive = now
	if err := s.deps.Learners.Update(ctx, &updated); err != nil {
		return err
	}

	if summary.Answered == 0 {
		return nil
	}

	progress := &models.DailyProgress{
		LearnerID:      summary.LearnerID,
		Date:           summary.Date,
		Attempted:      summary.Answered,
		Correct:        summary.Correct,
		EstimatedScore: updated.EstimatedScore,
	}
	if acc, ok := summary.Accuracy(); ok {
		progress.Accuracy = acc
	}
	if stats, ok := summary.ByCategory[models.CategoryListening]; ok && stats.Total > 0 {
		a := float64(stats.Correct) / float64(stats.Total)
		progress.ListeningAccuracy = &a
	}
	if stats, ok := summary.ByCategory[models.CategoryGrammar]; ok && stats.Total > 0 {
		a := float64(stats.Correct) / float64(stats.Total)
		progress.GrammarAccuracy = &a
	}
	if stats, ok := summary.ByCategory[models.CategoryReading]; ok && stats.Total > 0 {
		a := float64(stats.Correct) / float64(stats.Total)
		progress.ReadingAccuracy = &a
	}

	return s.deps.Progress.Record(ctx, progress)
}
