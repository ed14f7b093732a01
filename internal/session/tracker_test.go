package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/toeicbot/pkg/models"
)

func testItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		category := models.CategoryGrammar
		if i == 0 {
			category = models.CategoryListening
		}
		items[i] = Item{
			ID:            NewItemID(),
			QuestionID:    int64(i + 1),
			Category:      category,
			Tier:          4,
			CorrectAnswer: "B",
		}
	}
	return items
}

func TestOpenRejectsSecondSession(t *testing.T) {
	tr := NewTracker(20 * time.Hour)
	now := time.Now()

	_, err := tr.Open(100, "2026-03-02", testItems(3), now)
	require.NoError(t, err)

	_, err = tr.Open(100, "2026-03-02", testItems(3), now.Add(time.Hour))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(100), conflict.LearnerID)

	// A different learner is unaffected.
	_, err = tr.Open(200, "2026-03-02", testItems(3), now)
	assert.NoError(t, err)
}

func TestOpenEvictsExpiredLeftover(t *testing.T) {
	tr := NewTracker(20 * time.Hour)
	now := time.Now()

	_, err := tr.Open(100, "2026-03-02", testItems(3), now)
	require.NoError(t, err)

	_, err = tr.Open(100, "2026-03-03", testItems(3), now.Add(21*time.Hour))
	assert.NoError(t, err)
}

func TestRecordGradesAnswers(t *testing.T) {
	tr := NewTracker(20 * time.Hour)
	now := time.Now()
	items := testItems(2)

	sid, err := tr.Open(100, "2026-03-02", items, now)
	require.NoError(t, err)

	out, err := tr.Record(sid, items[0].ID, "b", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, out.Correct, "answers are case-insensitive")
	assert.True(t, out.Scored)
	assert.Equal(t, "B", out.CorrectAnswer)
	assert.Equal(t, int64(1), out.QuestionID)
	assert.Equal(t, models.CategoryListening, out.Category)

	out, err = tr.Record(sid, items[1].ID, "C", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, out.Correct)
}

func TestRecordDuplicateAndUnknown(t *testing.T) {
	tr := NewTracker(20 * time.Hour)
	now := time.Now()
	items := testItems(2)

	sid, err := tr.Open(100, "2026-03-02", items, now)
	require.NoError(t, err)

	_, err = tr.Record(sid, items[0].ID, "B", now)
	require.NoError(t, err)

	var notFound *NotFoundError
	_, err = tr.Record(sid, items[0].ID, "A", now)
	assert.ErrorAs(t, err, &notFound, "second answer to the same item")

	_, err = tr.Record(sid, "no-such-item", "A", now)
	assert.ErrorAs(t, err, &notFound)

	_, err = tr.Record("no-such-session", items[1].ID, "A", now)
	assert.ErrorAs(t, err, &notFound)
}

func TestRecordLateAnswerNotScored(t *testing.T) {
	tr := NewTracker(20 * time.Hour)
	now := time.Now()
	items := testItems(1)

	sid, err := tr.Open(100, "2026-03-02", items, now)
	require.NoError(t, err)

	out, err := tr.Record(sid, items[0].ID, "B", now.Add(21*time.Hour))
	var expired *ExpiredError
	require.ErrorAs(t, err, &expired)
	assert.True(t, out.Correct, "late answers are still graded for feedback")
	assert.False(t, out.Scored)
}

func TestCloseIfCompleteSummarizes(t *testing.T) {
	tr := NewTracker(20 * time.Hour)
	now := time.Now()
	items := testItems(3)

	sid, err := tr.Open(100, "2026-03-02", items, now)
	require.NoError(t, err)

	_, closed := tr.CloseIfComplete(sid, now)
	assert.False(t, closed, "unanswered session stays open")

	tr.Record(sid, items[0].ID, "B", now) // listening, correct
	tr.Record(sid, items[1].ID, "A", now) // grammar, wrong
	tr.Record(sid, items[2].ID, "B", now) // grammar, correct

	summary, closed := tr.CloseIfComplete(sid, now)
	require.True(t, closed)
	assert.Equal(t, int64(100), summary.LearnerID)
	assert.Equal(t, "2026-03-02", summary.Date)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Answered)
	assert.Equal(t, 2, summary.Correct)
	assert.True(t, summary.Completed)
	assert.False(t, summary.Expired)
	assert.Equal(t, models.CategoryStats{Total: 1, Correct: 1}, summary.ByCategory[models.CategoryListening])
	assert.Equal(t, models.CategoryStats{Total: 2, Correct: 1}, summary.ByCategory[models.CategoryGrammar])

	// The close freed the learner for the next session.
	_, closed = tr.CloseIfComplete(sid, now)
	assert.False(t, closed)
	_, active := tr.ActiveSession(100)
	assert.False(t, active)
}

func TestSweepExpired(t *testing.T) {
	tr := NewTracker(20 * time.Hour)
	now := time.Now()

	itemsA := testItems(2)
	sidA, err := tr.Open(100, "2026-03-02", itemsA, now)
	require.NoError(t, err)
	_, err = tr.Open(200, "2026-03-02", testItems(2), now.Add(5*time.Hour))
	require.NoError(t, err)

	tr.Record(sidA, itemsA[0].ID, "B", now)

	summaries := tr.SweepExpired(now.Add(21 * time.Hour))
	require.Len(t, summaries, 1, "only the first session is past its deadline")

	s := summaries[0]
	assert.Equal(t, int64(100), s.LearnerID)
	assert.Equal(t, 1, s.Answered)
	assert.Equal(t, 1, s.Correct)
	assert.True(t, s.Expired)
	assert.False(t, s.Completed)

	_, active := tr.ActiveSession(100)
	assert.False(t, active)
	_, active = tr.ActiveSession(200)
	assert.True(t, active)

	assert.Empty(t, tr.SweepExpired(now.Add(21*time.Hour)), "sweep is idempotent")
}

func TestAbandonDropsSession(t *testing.T) {
	tr := NewTracker(20 * time.Hour)
	now := time.Now()

	sid, err := tr.Open(100, "2026-03-02", testItems(2), now)
	require.NoError(t, err)

	tr.Abandon(sid)

	_, active := tr.ActiveSession(100)
	assert.False(t, active)
	assert.Empty(t, tr.SweepExpired(now.Add(48*time.Hour)))

	// Reopening right away works.
	_, err = tr.Open(100, "2026-03-02", testItems(2), now)
	assert.NoError(t, err)
}
