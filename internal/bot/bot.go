// Package bot is the Telegram transport: it registers learners, relays
// commands, delivers daily content and routes answer callbacks into the core.
package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/toeicbot/internal/config"
	"github.com/example/toeicbot/internal/database"
	"github.com/example/toeicbot/internal/delivery"
	"github.com/example/toeicbot/pkg/models"
)

// Bot represents the Telegram bot application
type Bot struct {
	api       *tgbotapi.BotAPI
	core      *delivery.Service
	learners  *database.LearnerRepository
	progress  *database.ProgressRepository
	responses *database.ResponseRepository
	cfg       *config.Config
	admins    map[int64]bool
}

// New creates a new bot instance
func New(cfg *config.Config, core *delivery.Service, learners *database.LearnerRepository,
	progress *database.ProgressRepository, responses *database.ResponseRepository) (*Bot, error) {

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %v", err)
	}

	admins := make(map[int64]bool)
	for _, id := range cfg.AdminUserIDs {
		admins[id] = true
	}

	return &Bot{
		api:       api,
		core:      core,
		learners:  learners,
		progress:  progress,
		responses: responses,
		cfg:       cfg,
		admins:    admins,
	}, nil
}

// Start runs the update loop until the context is canceled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop shuts down the update channel
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		if err := b.handleCommand(ctx, update.Message); err != nil {
			log.Printf("Error handling command /%s: %v", update.Message.Command(), err)
		}
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			log.Printf("Error handling callback: %v", err)
		}
	}
}

// getOrCreateLearner loads the sender's profile, registering a new learner
// with the configured defaults on first contact.
func (b *Bot) getOrCreateLearner(ctx context.Context, from *tgbotapi.User) (*models.Learner, error) {
	l, err := b.learners.GetByID(ctx, from.ID)
	if err == nil {
		return l, nil
	}
	if err != database.ErrNotFound {
		return nil, err
	}

	l = &models.Learner{
		ID:              from.ID,
		Username:        from.UserName,
		FirstName:       from.FirstName,
		DeliveryTime:    b.cfg.DefaultDeliveryTime,
		UTCOffsetMin:    b.cfg.DefaultUTCOffsetMin,
		WeekendDelivery: b.cfg.WeekendDelivery,
		ListeningPerDay: b.cfg.ListeningPerDay,
		GrammarPerDay:   b.cfg.GrammarPerDay,
		TTSLocale:       b.cfg.TTSLanguage,
		TargetScore:     b.cfg.DefaultTargetScore,
		IsActive:        true,
		Tier:            3,
		EstimatedScore:  600,
	}
	if err := b.learners.Create(ctx, l); err != nil {
		return nil, err
	}
	log.Printf("Registered new learner %d (%s)", l.ID, l.Username)
	return l, nil
}

// send delivers an HTML-formatted message, logging failures
func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to %d: %v", chatID, err)
	}
}

// SendDaily implements delivery.Transport: it sends the intro, each question
// with its answer keyboard, and the closing line. Listening audio goes out
// before its question; a missing audio path degrades to the script as text.
func (b *Bot) SendDaily(ctx context.Context, l *models.Learner, items []delivery.OutgoingItem) error {
	intro := formatDailyIntro(l)
	msg := tgbotapi.NewMessage(l.ID, intro)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send intro: %v", err)
	}

	listeningNum, grammarNum, readingNum := 0, 0, 0
	for _, item := range items {
		q := item.Question

		var text string
		switch q.Category {
		case models.CategoryReading:
			readingNum++
			text = formatReadingQuestion(&q, readingNum)
		case models.CategoryListening:
			listeningNum++
			if q.AudioPath != "" {
				audio := tgbotapi.NewAudio(l.ID, tgbotapi.FilePath(q.AudioPath))
				audio.Title = fmt.Sprintf("Listening Question %d", listeningNum)
				if _, err := b.api.Send(audio); err != nil {
					log.Printf("Error sending audio to %d, falling back to text: %v", l.ID, err)
					b.send(l.ID, "<i>"+html.EscapeString(q.AudioScript)+"</i>")
				}
			} else if q.AudioScript != "" {
				b.send(l.ID, "<i>"+html.EscapeString(q.AudioScript)+"</i>")
			}
			text = formatListeningQuestion(&q, listeningNum)
		default:
			grammarNum++
			text = formatGrammarQuestion(&q, grammarNum)
		}

		qMsg := tgbotapi.NewMessage(l.ID, text)
		qMsg.ParseMode = tgbotapi.ModeHTML
		qMsg.ReplyMarkup = answerKeyboard(item.ItemID)
		if _, err := b.api.Send(qMsg); err != nil {
			return fmt.Errorf("failed to send question: %v", err)
		}
	}

	b.send(l.ID, "━━━━━━━━━━━━━━━━━━━━━\n💡 Answer at your convenience. Good luck!")
	return nil
}

// answerKeyboard builds the inline A/B/C/D keyboard for a session item.
func answerKeyboard(itemID string) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 4)
	for _, letter := range []string{"A", "B", "C", "D"} {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(letter, "answer_"+itemID+"_"+letter))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// settingsKeyboard offers common delivery times; arbitrary times go through
// the /time command.
func settingsKeyboard() tgbotapi.InlineKeyboardMarkup {
	times := []string{"06:00", "07:00", "08:00", "12:00", "19:00", "21:00"}
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(times))
	for _, t := range times {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(t, "settime_"+t))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row[:3], row[3:])
}

// parseAnswerCallback splits "answer_<itemID>_<letter>" callback data.
func parseAnswerCallback(data string) (itemID, letter string, ok bool) {
	if !strings.HasPrefix(data, "answer_") {
		return "", "", false
	}
	rest := strings.TrimPrefix(data, "answer_")
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.admins[userID]
}

// nowUTC is the single clock the transport feeds into the core.
func nowUTC() time.Time {
	return time.Now().UTC()
}
