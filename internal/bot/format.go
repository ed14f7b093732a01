package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/toeicbot/internal/delivery"
	"github.com/example/toeicbot/pkg/models"
)

const (
	practiceCount = 3 // questions per /practice session
	statsDays     = 7 // days shown by /stats
)

const helpText = `📚 <b>TOEIC Practice Bot</b>

Every day I send you listening and grammar questions matched to your level. Answer with the A/B/C/D buttons and I adjust the difficulty as you improve.

<b>Commands</b>
/start — register and see your profile
/practice — extra grammar and reading questions right now
/stats — your recent results and streak
/settings — current delivery settings
/time HH:MM — change your delivery time
/subscribe — resume daily delivery
/unsubscribe — pause daily delivery
/help — this message`

func formatWelcome(l *models.Learner) string {
	name := html.EscapeString(l.FirstName)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`👋 Hi %s, welcome to TOEIC practice!

You'll get <b>%d listening</b> and <b>%d grammar</b> questions every day at <b>%s</b>.

🎯 Target score: <b>%d</b>
📈 Current estimate: <b>%d</b>

Send /help to see all commands, or /practice to start right away.`,
		name, l.ListeningPerDay, l.GrammarPerDay, l.DeliveryTime,
		l.TargetScore, l.EstimatedScore)
}

// formatDailyIntro heads the daily batch with streak, estimate and the
// progress bar toward the learner's target score.
func formatDailyIntro(l *models.Learner) string {
	var sb strings.Builder
	sb.WriteString("🌅 <b>Today's TOEIC Practice</b>\n")
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━\n")
	if l.CurrentStreak > 0 {
		sb.WriteString(fmt.Sprintf("🔥 Streak: <b>%d days</b>\n", l.CurrentStreak))
	}
	sb.WriteString(fmt.Sprintf("📈 Estimated score: <b>%d</b> / %d\n", l.EstimatedScore, l.TargetScore))
	sb.WriteString(progressBar(l.EstimatedScore, l.TargetScore))
	sb.WriteString("\n\nAnswer each question with the buttons below it.")
	return sb.String()
}

// progressBar renders a ten-segment bar of score toward target.
func progressBar(score, target int) string {
	if target <= 0 {
		target = models.MaxScore
	}
	filled := score * 10 / target
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", 10-filled)
}

func formatListeningQuestion(q *models.Question, num int) string {
	return fmt.Sprintf("🎧 <b>Listening %d</b>\n\n%s\n\n%s", num,
		html.EscapeString(q.Text), formatOptions(q))
}

func formatGrammarQuestion(q *models.Question, num int) string {
	return fmt.Sprintf("✏️ <b>Grammar %d</b>\n\n%s\n\n%s", num,
		html.EscapeString(q.Text), formatOptions(q))
}

// formatReadingQuestion shows the document before its question.
func formatReadingQuestion(q *models.Question, num int) string {
	docType := q.DocumentType
	if docType == "" {
		docType = "Document"
	}
	return fmt.Sprintf("📖 <b>Reading %d</b>\n\n<b>%s:</b>\n%s\n\n<b>Question:</b> %s\n\n%s", num,
		html.EscapeString(docType), html.EscapeString(q.Passage),
		html.EscapeString(q.Text), formatOptions(q))
}

func formatOptions(q *models.Question) string {
	return fmt.Sprintf("A) %s\nB) %s\nC) %s\nD) %s",
		html.EscapeString(q.OptionA), html.EscapeString(q.OptionB),
		html.EscapeString(q.OptionC), html.EscapeString(q.OptionD))
}

// formatAnsweredQuestion rebuilds an answered question message with the
// outcome appended. The original arrives as plain text from the callback, so
// it is re-escaped before going back out in HTML mode.
func formatAnsweredQuestion(original string, fb *delivery.Feedback, chosen string) string {
	return html.EscapeString(original) + "\n\n" + formatFeedback(fb, chosen)
}

// formatFeedback is appended to an answered question message.
func formatFeedback(fb *delivery.Feedback, chosen string) string {
	var sb strings.Builder
	if fb.Correct {
		sb.WriteString(fmt.Sprintf("✅ <b>%s — correct!</b>", chosen))
	} else {
		sb.WriteString(fmt.Sprintf("❌ You chose %s. Correct answer: <b>%s</b>", chosen, fb.CorrectAnswer))
		if fb.CorrectOption != "" {
			sb.WriteString(") " + html.EscapeString(fb.CorrectOption))
		}
	}
	if fb.Explanation != "" {
		sb.WriteString("\n💡 " + html.EscapeString(fb.Explanation))
	}
	if !fb.Scored {
		sb.WriteString("\n⏰ <i>This session had expired, so the answer doesn't count toward your level.</i>")
	}
	return sb.String()
}

func formatSessionSummary(s *models.SessionSummary) string {
	var sb strings.Builder
	sb.WriteString("🏁 <b>Session complete!</b>\n")
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("Score: <b>%d / %d</b>\n", s.Correct, s.Answered))

	if stats, ok := s.ByCategory[models.CategoryListening]; ok && stats.Total > 0 {
		sb.WriteString(fmt.Sprintf("🎧 Listening: %d/%d\n", stats.Correct, stats.Total))
	}
	if stats, ok := s.ByCategory[models.CategoryGrammar]; ok && stats.Total > 0 {
		sb.WriteString(fmt.Sprintf("✏️ Grammar: %d/%d\n", stats.Correct, stats.Total))
	}
	if stats, ok := s.ByCategory[models.CategoryReading]; ok && stats.Total > 0 {
		sb.WriteString(fmt.Sprintf("📖 Reading: %d/%d\n", stats.Correct, stats.Total))
	}

	if acc, ok := s.Accuracy(); ok {
		switch {
		case acc >= 0.85:
			sb.WriteString("\n🌟 Excellent! Tomorrow's questions will be a bit harder.")
		case acc <= 0.5:
			sb.WriteString("\n💪 Keep going! Tomorrow's questions will be a bit easier.")
		default:
			sb.WriteString("\n👍 Good work, see you tomorrow!")
		}
	}
	return sb.String()
}

func formatSettings(l *models.Learner) string {
	weekend := "off"
	if l.WeekendDelivery {
		weekend = "on"
	}
	status := "paused 🔕"
	if l.IsActive {
		status = "active ✅"
	}
	offset := l.UTCOffsetMin / 60
	return fmt.Sprintf(`⚙️ <b>Your settings</b>

Delivery: %s
Time: <b>%s</b> (UTC%+d)
Weekend delivery: %s
Questions per day: %d listening + %d grammar
Target score: <b>%d</b>

Change the time with <code>/time HH:MM</code>.`,
		status, l.DeliveryTime, offset, weekend,
		l.ListeningPerDay, l.GrammarPerDay, l.TargetScore)
}

// weakestArea averages each category's recorded daily accuracy over the
// recent rows and returns the lowest. Nothing is reported until at least two
// categories have data to compare.
func weakestArea(recent []models.DailyProgress) (models.Category, float64, bool) {
	sums := make(map[models.Category]float64)
	counts := make(map[models.Category]int)
	for _, p := range recent {
		for cat, acc := range map[models.Category]*float64{
			models.CategoryListening: p.ListeningAccuracy,
			models.CategoryGrammar:   p.GrammarAccuracy,
			models.CategoryReading:   p.ReadingAccuracy,
		} {
			if acc != nil {
				sums[cat] += *acc
				counts[cat]++
			}
		}
	}
	if len(counts) < 2 {
		return "", 0, false
	}

	var weakest models.Category
	lowest := 0.0
	for cat, n := range counts {
		avg := sums[cat] / float64(n)
		if weakest == "" || avg < lowest {
			weakest, lowest = cat, avg
		}
	}
	return weakest, lowest, true
}

func categoryLabel(cat models.Category) string {
	switch cat {
	case models.CategoryListening:
		return "Listening"
	case models.CategoryGrammar:
		return "Grammar"
	case models.CategoryReading:
		return "Reading"
	}
	return string(cat)
}

func formatStats(l *models.Learner, total, correct int, recent []models.DailyProgress) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Your progress</b>\n")
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("📈 Estimated score: <b>%d</b> / %d\n", l.EstimatedScore, l.TargetScore))
	sb.WriteString(progressBar(l.EstimatedScore, l.TargetScore) + "\n")
	sb.WriteString(fmt.Sprintf("🎚 Difficulty level: %d/%d\n", l.Tier, models.MaxTier))
	sb.WriteString(fmt.Sprintf("🔥 Streak: %d days (best %d)\n", l.CurrentStreak, l.LongestStreak))

	if total > 0 {
		sb.WriteString(fmt.Sprintf("✅ All time: %d/%d correct (%.0f%%)\n",
			correct, total, float64(correct)/float64(total)*100))
	}
	if cat, acc, ok := weakestArea(recent); ok {
		sb.WriteString(fmt.Sprintf("🎯 Focus area: %s (%.0f%% recently)\n", categoryLabel(cat), acc*100))
	}

	if len(recent) > 0 {
		sb.WriteString("\n<b>Last days</b>\n")
		for _, p := range recent {
			sb.WriteString(fmt.Sprintf("%s — %d/%d", p.Date, p.Correct, p.Attempted))
			if p.Attempted > 0 {
				sb.WriteString(fmt.Sprintf(" (%.0f%%)", p.Accuracy*100))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("\nNo sessions recorded yet — try /practice!")
	}
	return sb.String()
}
