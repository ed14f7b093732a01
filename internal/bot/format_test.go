package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/toeicbot/internal/delivery"
	"github.com/example/toeicbot/pkg/models"
)

func TestParseAnswerCallback(t *testing.T) {
	itemID, letter, ok := parseAnswerCallback("answer_0b8f6c3a-1111-2222-3333-444455556666_B")
	require.True(t, ok)
	assert.Equal(t, "0b8f6c3a-1111-2222-3333-444455556666", itemID)
	assert.Equal(t, "B", letter)

	for _, data := range []string{"", "answer_", "answer_x", "answer__A", "settings_foo", "answer_abc_"} {
		_, _, ok := parseAnswerCallback(data)
		assert.False(t, ok, "data %q", data)
	}
}

func TestAnswerKeyboardRoundTrips(t *testing.T) {
	kb := answerKeyboard("item-1")
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 4)

	for i, letter := range []string{"A", "B", "C", "D"} {
		btn := kb.InlineKeyboard[0][i]
		assert.Equal(t, letter, btn.Text)
		itemID, parsed, ok := parseAnswerCallback(*btn.CallbackData)
		require.True(t, ok)
		assert.Equal(t, "item-1", itemID)
		assert.Equal(t, letter, parsed)
	}
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("░", 10), progressBar(0, 800))
	assert.Equal(t, strings.Repeat("▓", 10), progressBar(800, 800))
	assert.Equal(t, strings.Repeat("▓", 10), progressBar(990, 800), "past the target stays full")
	assert.Equal(t, strings.Repeat("▓", 5)+strings.Repeat("░", 5), progressBar(400, 800))
}

func TestFormatSessionSummaryTone(t *testing.T) {
	s := &models.SessionSummary{
		Answered:  5,
		Correct:   5,
		Completed: true,
		ByCategory: map[models.Category]models.CategoryStats{
			models.CategoryGrammar: {Total: 5, Correct: 5},
		},
	}
	assert.Contains(t, formatSessionSummary(s), "harder")

	s.Correct = 2
	s.ByCategory[models.CategoryGrammar] = models.CategoryStats{Total: 5, Correct: 2}
	assert.Contains(t, formatSessionSummary(s), "easier")

	s.Correct = 3
	assert.Contains(t, formatSessionSummary(s), "tomorrow")
}

func TestFormatReadingQuestionShowsPassage(t *testing.T) {
	q := &models.Question{
		Category:      models.CategoryReading,
		Text:          "What is the purpose of this email?",
		Passage:       "Dear team, the office will close early on Friday.",
		DocumentType:  "Email",
		OptionA:       "a",
		OptionB:       "b",
		OptionC:       "c",
		OptionD:       "d",
		CorrectAnswer: "A",
	}
	text := formatReadingQuestion(q, 1)
	assert.Contains(t, text, "Email")
	assert.Contains(t, text, "the office will close early")
	assert.Contains(t, text, "What is the purpose of this email?")

	q.DocumentType = ""
	assert.Contains(t, formatReadingQuestion(q, 1), "Document")
}

func TestFormatAnsweredQuestionEscapesOriginal(t *testing.T) {
	fb := &delivery.Feedback{Correct: true, CorrectAnswer: "A", Scored: true}

	// The callback hands back the question as plain text; characters HTML
	// cares about must survive the round trip into an HTML-mode edit.
	text := formatAnsweredQuestion("Choose <the> answer & win", fb, "A")
	assert.NotContains(t, text, "<the>")
	assert.Contains(t, text, "&lt;the&gt;")
	assert.Contains(t, text, "&amp; win")
	assert.Contains(t, text, "correct")
}

func TestWeakestArea(t *testing.T) {
	listening, grammar, reading := 0.9, 0.4, 0.7
	recent := []models.DailyProgress{
		{ListeningAccuracy: &listening, GrammarAccuracy: &grammar},
		{ReadingAccuracy: &reading},
	}

	cat, acc, ok := weakestArea(recent)
	require.True(t, ok)
	assert.Equal(t, models.CategoryGrammar, cat)
	assert.InDelta(t, 0.4, acc, 1e-9)

	// A single category has nothing to compare against.
	_, _, ok = weakestArea([]models.DailyProgress{{GrammarAccuracy: &grammar}})
	assert.False(t, ok)
	_, _, ok = weakestArea(nil)
	assert.False(t, ok)
}

func TestFormatQuestionEscapesHTML(t *testing.T) {
	q := &models.Question{
		Text:          "Choose <the> answer & win",
		OptionA:       "a<b",
		OptionB:       "b",
		OptionC:       "c",
		OptionD:       "d",
		CorrectAnswer: "A",
	}
	text := formatGrammarQuestion(q, 1)
	assert.NotContains(t, text, "<the>")
	assert.Contains(t, text, "&lt;the&gt;")
	assert.Contains(t, text, "a&lt;b")
}
