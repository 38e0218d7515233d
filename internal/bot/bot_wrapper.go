package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"svidanie/internal/domain"
)

// TelegramClient адаптирует *tgbotapi.BotAPI под domain.TelegramService:
// у библиотеки Self — поле, а не метод, поэтому голый BotAPI
// интерфейсу не удовлетворяет.
type TelegramClient struct {
	*tgbotapi.BotAPI
}

var _ domain.TelegramService = (*TelegramClient)(nil)

func NewTelegramClient(api *tgbotapi.BotAPI) *TelegramClient {
	return &TelegramClient{BotAPI: api}
}

func (c *TelegramClient) GetSelf() tgbotapi.User {
	return c.Self
}

func (c *TelegramClient) StopReceivingUpdates() {
	c.BotAPI.StopReceivingUpdates()
}
