package notify

import (
	"context"

	"svidanie/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier доставляет сообщения пользователям мини-аппа
// через чат с ботом.
type TelegramNotifier struct {
	bot    domain.TelegramSender
	logger *zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:    bot,
		logger: logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, chatID int64, message string) error {
	msg := tgbotapi.NewMessage(chatID, message)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return err
	}

	n.logger.Debug().Int64("chat_id", chatID).Msg("Уведомление отправлено")
	return nil
}

func (n *TelegramNotifier) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	return n.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (n *TelegramNotifier) SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return n.bot.Send(msg)
}

func (n *TelegramNotifier) AnswerCallback(callbackID, text string) error {
	callback := tgbotapi.NewCallback(callbackID, text)
	_, err := n.bot.Request(callback)
	return err
}
