// Package notify pushes operator alerts to a Telegram admin chat.
// Integrity violations should never occur if the state machine is correct,
// so they are worth waking someone up for.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAlerter sends alerts through a bot to a fixed admin chat.
type TelegramAlerter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramAlerter(token string, adminChatID int64) (*TelegramAlerter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	log.Printf("Telegram alerter authorized as @%s", bot.Self.UserName)
	return &TelegramAlerter{bot: bot, chatID: adminChatID}, nil
}

// IntegrityAlert reports a stored-data invariant violation.
func (t *TelegramAlerter) IntegrityAlert(roomID, detail string) {
	t.send(fmt.Sprintf("⚠️ Data integrity violation in room %s\n%s", roomID, detail))
}

// ComparisonCompleted reports a successfully adjudicated room.
func (t *TelegramAlerter) ComparisonCompleted(roomID string) {
	t.send(fmt.Sprintf("✅ Room %s completed: verdict stored", roomID))
}

func (t *TelegramAlerter) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send telegram alert: %v", err)
	}
}
