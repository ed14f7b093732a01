package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/toeicbot/internal/session"
)

var deliveryTimeRe = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	l, err := b.getOrCreateLearner(ctx, msg.From)
	if err != nil {
		return fmt.Errorf("failed to load learner %d: %v", msg.From.ID, err)
	}

	if err := b.learners.TouchLastActive(ctx, l.ID); err != nil {
		log.Printf("Error touching last active for %d: %v", l.ID, err)
	}

	switch msg.Command() {
	case "start":
		b.send(l.ID, formatWelcome(l))
	case "help":
		b.send(l.ID, helpText)
	case "practice":
		return b.handlePractice(ctx, l.ID)
	case "subscribe":
		if err := b.learners.SetActive(ctx, l.ID, true); err != nil {
			return err
		}
		b.send(l.ID, fmt.Sprintf("✅ Subscribed! Your daily questions arrive at <b>%s</b>.", l.DeliveryTime))
	case "unsubscribe":
		if err := b.learners.SetActive(ctx, l.ID, false); err != nil {
			return err
		}
		b.send(l.ID, "🔕 Daily delivery paused. Send /subscribe to resume.")
	case "stats":
		return b.handleStats(ctx, l.ID)
	case "settings":
		out := tgbotapi.NewMessage(l.ID, formatSettings(l))
		out.ParseMode = tgbotapi.ModeHTML
		out.ReplyMarkup = settingsKeyboard()
		if _, err := b.api.Send(out); err != nil {
			return fmt.Errorf("failed to send settings: %v", err)
		}
	case "time":
		return b.handleSetTime(ctx, l.ID, strings.TrimSpace(msg.CommandArguments()))
	case "deliver":
		// Admin-only manual tick, useful after importing a new question bank
		if !b.isAdmin(l.ID) {
			b.send(l.ID, "Unknown command. Send /help to see what I can do.")
			return nil
		}
		b.core.DeliverDue(ctx, nowUTC())
		b.send(l.ID, "Delivery tick triggered.")
	default:
		b.send(l.ID, "Unknown command. Send /help to see what I can do.")
	}
	return nil
}

func (b *Bot) handlePractice(ctx context.Context, learnerID int64) error {
	b.send(learnerID, "📝 Preparing your practice questions...")

	err := b.core.Practice(ctx, learnerID, practiceCount, nowUTC())
	if err == nil {
		return nil
	}

	var conflict *session.ConflictError
	if errors.As(err, &conflict) {
		b.send(learnerID, "You already have an open quiz. Finish it before starting a new one!")
		return nil
	}
	b.send(learnerID, "😔 Couldn't prepare questions right now. Please try again later.")
	return err
}

func (b *Bot) handleStats(ctx context.Context, learnerID int64) error {
	l, err := b.learners.GetByID(ctx, learnerID)
	if err != nil {
		return err
	}

	total, correct, err := b.responses.CountByLearner(ctx, learnerID)
	if err != nil {
		return err
	}

	recent, err := b.progress.GetRecent(ctx, learnerID, statsDays)
	if err != nil {
		return err
	}

	b.send(learnerID, formatStats(l, total, correct, recent))
	return nil
}

func (b *Bot) handleSetTime(ctx context.Context, learnerID int64, arg string) error {
	if !deliveryTimeRe.MatchString(arg) {
		b.send(learnerID, "Usage: <code>/time HH:MM</code> (24-hour, your local time). Example: <code>/time 07:30</code>")
		return nil
	}

	// Normalize "7:30" to "07:30" so string comparison against the clock works
	if len(arg) == 4 {
		arg = "0" + arg
	}

	if err := b.learners.SetDeliveryTime(ctx, learnerID, arg); err != nil {
		return err
	}
	b.send(learnerID, fmt.Sprintf("⏰ Delivery time set to <b>%s</b>.", arg))
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if t, ok := strings.CutPrefix(cb.Data, "settime_"); ok {
		if !deliveryTimeRe.MatchString(t) {
			b.answerCallback(cb.ID, "")
			return nil
		}
		if err := b.learners.SetDeliveryTime(ctx, cb.From.ID, t); err != nil {
			b.answerCallback(cb.ID, "Something went wrong, please try again.")
			return err
		}
		b.answerCallback(cb.ID, "Delivery time set to "+t)
		return nil
	}

	itemID, letter, ok := parseAnswerCallback(cb.Data)
	if !ok {
		b.answerCallback(cb.ID, "")
		return nil
	}

	fb, err := b.core.OnAnswer(ctx, cb.From.ID, itemID, letter, nowUTC())
	if err != nil {
		var notFound *session.NotFoundError
		if errors.As(err, &notFound) {
			b.answerCallback(cb.ID, "This question is no longer active.")
			return nil
		}
		b.answerCallback(cb.ID, "Something went wrong, please try again.")
		return err
	}

	if fb.Correct {
		b.answerCallback(cb.ID, "✅ Correct!")
	} else {
		b.answerCallback(cb.ID, fmt.Sprintf("❌ The answer was %s", fb.CorrectAnswer))
	}

	// Replace the keyboard with the outcome so the question can't be
	// answered twice from the same message.
	if cb.Message != nil {
		edited := formatAnsweredQuestion(cb.Message.Text, fb, letter)
		edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, edited)
		edit.ParseMode = tgbotapi.ModeHTML
		if _, err := b.api.Send(edit); err != nil {
			log.Printf("Error editing answered message: %v", err)
		}
	}

	if fb.SessionDone && fb.Summary != nil {
		b.send(cb.From.ID, formatSessionSummary(fb.Summary))
	}
	return nil
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		log.Printf("Error answering callback: %v", err)
	}
}
