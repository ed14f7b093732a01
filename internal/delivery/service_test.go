package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/toeicbot/internal/adaptive"
	"github.com/example/toeicbot/internal/planner"
	"github.com/example/toeicbot/internal/session"
	"github.com/example/toeicbot/pkg/models"
)

type fakeLearners struct {
	mu       sync.Mutex
	learners map[int64]models.Learner
}

func newFakeLearners(ls ...models.Learner) *fakeLearners {
	f := &fakeLearners{learners: make(map[int64]models.Learner)}
	for _, l := range ls {
		f.learners[l.ID] = l
	}
	return f
}

func (f *fakeLearners) GetByID(_ context.Context, id int64) (*models.Learner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.learners[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &l, nil
}

func (f *fakeLearners) GetActive(_ context.Context) ([]models.Learner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Learner
	for _, l := range f.learners {
		if l.IsActive {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLearners) Update(_ context.Context, l *models.Learner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.learners[l.ID] = *l
	return nil
}

type fakeQuestions struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.Question
	used   map[int64]int
}

func newFakeQuestions() *fakeQuestions {
	return &fakeQuestions{byID: make(map[int64]models.Question), used: make(map[int64]int)}
}

func (f *fakeQuestions) Save(_ context.Context, q *models.Question) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	q.ID = f.nextID
	f.byID[q.ID] = *q
	return q.ID, nil
}

func (f *fakeQuestions) GetByID(_ context.Context, id int64) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byID[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return &q, nil
}

func (f *fakeQuestions) IncrementUsed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used[id]++
	return nil
}

type fakeProgress struct {
	mu   sync.Mutex
	rows []models.DailyProgress
}

func (f *fakeProgress) Record(_ context.Context, p *models.DailyProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *p)
	return nil
}

type fakeResponses struct {
	mu   sync.Mutex
	rows []models.Response
}

func (f *fakeResponses) Create(_ context.Context, r *models.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *r)
	return nil
}

// fakeGenerator serves synthetic questions, failing the first failures calls.
type fakeGenerator struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *fakeGenerator) Generate(_ context.Context, category models.Category, tier, count int, topic string) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("generator unavailable")
	}
	out := make([]models.Question, count)
	for i := range out {
		out[i] = models.Question{
			Category:      category,
			Tier:          tier,
			Text:          fmt.Sprintf("%s question %d on %s", category, i+1, topic),
			OptionA:       "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectAnswer: "A",
			Explanation:   "because",
			Source:        models.SourceAI,
		}
	}
	return out, nil
}

// fakeTransport records deliveries, failing the first failures sends.
type fakeTransport struct {
	mu       sync.Mutex
	failures int
	sent     [][]OutgoingItem
}

func (f *fakeTransport) SendDaily(_ context.Context, l *models.Learner, items []OutgoingItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("telegram unreachable")
	}
	f.sent = append(f.sent, items)
	return nil
}

type harness struct {
	svc       *Service
	learners  *fakeLearners
	questions *fakeQuestions
	progress  *fakeProgress
	responses *fakeResponses
	gen       *fakeGenerator
	transport *fakeTransport
}

func newHarness(ls ...models.Learner) *harness {
	h := &harness{
		learners:  newFakeLearners(ls...),
		questions: newFakeQuestions(),
		progress:  &fakeProgress{},
		responses: &fakeResponses{},
		gen:       &fakeGenerator{},
		transport: &fakeTransport{},
	}
	h.svc = NewService(Deps{
		Planner:   planner.New(30),
		Engine:    adaptive.New(),
		Tracker:   session.NewTracker(20 * time.Hour),
		Generator: h.gen,
		Transport: h.transport,
		Learners:  h.learners,
		Questions: h.questions,
		Progress:  h.progress,
		Responses: h.responses,
	})
	return h
}

func dueLearner() models.Learner {
	return models.Learner{
		ID:              100,
		DeliveryTime:    "07:00",
		WeekendDelivery: true,
		ListeningPerDay: 1,
		GrammarPerDay:   2,
		Tier:            4,
		IsActive:        true,
	}
}

// Monday 07:05 UTC, learner offset 0.
var tick = time.Date(2026, time.March, 2, 7, 5, 0, 0, time.UTC)

func TestDeliverDueDeliversOnce(t *testing.T) {
	h := newHarness(dueLearner())
	ctx := context.Background()

	h.svc.DeliverDue(ctx, tick)

	require.Len(t, h.transport.sent, 1)
	assert.Len(t, h.transport.sent[0], 3, "1 listening + 2 grammar")
	for _, item := range h.transport.sent[0] {
		assert.NotEmpty(t, item.ItemID)
		assert.NotZero(t, item.Question.ID, "questions are persisted before sending")
	}

	l, err := h.learners.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", l.LastDeliveryDate)

	// Subsequent ticks the same day do nothing.
	h.svc.DeliverDue(ctx, tick.Add(time.Minute))
	h.svc.DeliverDue(ctx, tick.Add(3*time.Hour))
	assert.Len(t, h.transport.sent, 1)
}

func TestDeliverDueSkipsInactiveAndNotDue(t *testing.T) {
	early := dueLearner()
	early.ID = 200
	early.DeliveryTime = "20:00"
	inactive := dueLearner()
	inactive.ID = 300
	inactive.IsActive = false

	h := newHarness(early, inactive)
	h.svc.DeliverDue(context.Background(), tick)

	assert.Empty(t, h.transport.sent)
	assert.Zero(t, h.gen.calls, "no generation for learners that aren't due")
}

func TestDeliverDueRetriesAfterGeneratorFailure(t *testing.T) {
	h := newHarness(dueLearner())
	h.gen.failures = 1
	ctx := context.Background()

	h.svc.DeliverDue(ctx, tick)
	assert.Empty(t, h.transport.sent)

	l, _ := h.learners.GetByID(ctx, 100)
	assert.Empty(t, l.LastDeliveryDate, "failed delivery must not consume the day")

	h.svc.DeliverDue(ctx, tick.Add(time.Minute))
	assert.Len(t, h.transport.sent, 1)

	// No duplicate on the tick after the successful one.
	h.svc.DeliverDue(ctx, tick.Add(2*time.Minute))
	assert.Len(t, h.transport.sent, 1)
}

func TestDeliverDueRetriesAfterTransportFailure(t *testing.T) {
	h := newHarness(dueLearner())
	h.transport.failures = 1
	ctx := context.Background()

	h.svc.DeliverDue(ctx, tick)
	assert.Empty(t, h.transport.sent)

	// The failed session was abandoned, so the retry can open a fresh one.
	h.svc.DeliverDue(ctx, tick.Add(time.Minute))
	require.Len(t, h.transport.sent, 1)
}

func TestOnAnswerFullSession(t *testing.T) {
	h := newHarness(dueLearner())
	ctx := context.Background()

	h.svc.DeliverDue(ctx, tick)
	require.Len(t, h.transport.sent, 1)
	items := h.transport.sent[0]

	answerAt := tick.Add(time.Hour)
	for i, item := range items {
		answer := "A"
		if i == len(items)-1 {
			answer = "C" // one wrong
		}
		fb, err := h.svc.OnAnswer(ctx, 100, item.ItemID, answer, answerAt)
		require.NoError(t, err)
		assert.Equal(t, answer == "A", fb.Correct)
		assert.True(t, fb.Scored)
		assert.Equal(t, "because", fb.Explanation)

		if i == len(items)-1 {
			assert.Equal(t, "a", fb.CorrectOption)
			require.True(t, fb.SessionDone)
			require.NotNil(t, fb.Summary)
			assert.Equal(t, 3, fb.Summary.Answered)
			assert.Equal(t, 2, fb.Summary.Correct)
			assert.True(t, fb.Summary.Completed)
		} else {
			assert.False(t, fb.SessionDone)
		}
	}

	// 2/3 is mid-band: tier holds, accuracy initializes, streak starts.
	l, err := h.learners.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, l.Tier)
	require.NotNil(t, l.Accuracy)
	assert.InDelta(t, 2.0/3.0, *l.Accuracy, 1e-9)
	assert.Equal(t, 1, l.CurrentStreak)
	assert.Equal(t, adaptive.Score(4, 2.0/3.0), l.EstimatedScore)

	require.Len(t, h.responses.rows, 3)
	for _, r := range h.responses.rows {
		assert.True(t, r.Scored)
		assert.Equal(t, int64(100), r.LearnerID)
	}

	require.Len(t, h.progress.rows, 1)
	p := h.progress.rows[0]
	assert.Equal(t, "2026-03-02", p.Date)
	assert.Equal(t, 3, p.Attempted)
	assert.Equal(t, 2, p.Correct)
	require.NotNil(t, p.ListeningAccuracy)
	require.NotNil(t, p.GrammarAccuracy)

	// The session closed, so a manual practice can start.
	require.NoError(t, h.svc.Practice(ctx, 100, 2, answerAt.Add(time.Minute)))
}

func TestOnAnswerUnknownItem(t *testing.T) {
	h := newHarness(dueLearner())
	ctx := context.Background()

	_, err := h.svc.OnAnswer(ctx, 100, "bogus", "A", tick)
	var notFound *session.NotFoundError
	assert.ErrorAs(t, err, &notFound, "no active session")

	h.svc.DeliverDue(ctx, tick)
	_, err = h.svc.OnAnswer(ctx, 100, "bogus", "A", tick.Add(time.Minute))
	assert.ErrorAs(t, err, &notFound, "active session, wrong item id")
}

func TestPracticeSendsGrammarAndReading(t *testing.T) {
	h := newHarness(dueLearner())
	ctx := context.Background()

	require.NoError(t, h.svc.Practice(ctx, 100, 2, tick))
	require.Len(t, h.transport.sent, 1)

	items := h.transport.sent[0]
	require.Len(t, items, 3, "2 grammar + 1 reading")
	byCategory := make(map[models.Category]int)
	for _, item := range items {
		byCategory[item.Question.Category]++
	}
	assert.Equal(t, 2, byCategory[models.CategoryGrammar])
	assert.Equal(t, 1, byCategory[models.CategoryReading])
}

func TestPracticeAfterSessionExpires(t *testing.T) {
	h := newHarness(dueLearner())
	ctx := context.Background()

	h.svc.DeliverDue(ctx, tick)
	require.Len(t, h.transport.sent, 1)
	_, err := h.svc.OnAnswer(ctx, 100, h.transport.sent[0][0].ItemID, "A", tick.Add(time.Hour))
	require.NoError(t, err)

	// The daily session is past its deadline but no sweep has run yet; a
	// practice request must not read it as a conflict.
	late := tick.Add(21 * time.Hour)
	require.NoError(t, h.svc.Practice(ctx, 100, 2, late))
	assert.Len(t, h.transport.sent, 2)

	// The expired session was closed and applied on the way in.
	l, err := h.learners.GetByID(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, l.Accuracy)
	assert.InDelta(t, 1.0, *l.Accuracy, 1e-9)
}

func TestPracticeConflictsWithOpenSession(t *testing.T) {
	h := newHarness(dueLearner())
	ctx := context.Background()

	h.svc.DeliverDue(ctx, tick)
	require.Len(t, h.transport.sent, 1)

	err := h.svc.Practice(ctx, 100, 2, tick.Add(time.Minute))
	var conflict *session.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Len(t, h.transport.sent, 1)
}

func TestSweepAppliesExpiredSessions(t *testing.T) {
	h := newHarness(dueLearner())
	ctx := context.Background()

	h.svc.DeliverDue(ctx, tick)
	items := h.transport.sent[0]

	// One answer, then the deadline passes.
	_, err := h.svc.OnAnswer(ctx, 100, items[0].ItemID, "A", tick.Add(time.Hour))
	require.NoError(t, err)

	h.svc.SweepSessions(ctx, tick.Add(21*time.Hour))

	l, _ := h.learners.GetByID(ctx, 100)
	require.NotNil(t, l.Accuracy)
	assert.InDelta(t, 1.0, *l.Accuracy, 1e-9, "partial answers still feed accuracy")
	assert.Equal(t, 0, l.CurrentStreak, "expired session doesn't extend the streak")
	assert.Equal(t, 5, l.Tier, "1/1 answered promotes")

	require.Len(t, h.progress.rows, 1)
	assert.Equal(t, 1, h.progress.rows[0].Attempted)

	_, active := h.svc.deps.Tracker.ActiveSession(100)
	assert.False(t, active)
}
