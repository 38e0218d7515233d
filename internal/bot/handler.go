package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"svidanie/internal/booking"
	"svidanie/internal/models"
	"svidanie/internal/notify"
)

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
		case "help":
			b.sendMessage(chatID, helpText)
		case "balance":
			b.handleBalance(ctx, msg)
		case "bookings":
			b.handleBookings(ctx, msg)
		case "referral":
			b.handleReferral(ctx, msg)
		default:
			b.sendMessage(chatID, "Неизвестная команда. /help — список команд.")
		}
		return
	}

	// Весь основной сценарий живет в мини-аппе
	b.sendMainMenu(chatID)
}

const helpText = `Доступные команды:
/start — регистрация и главное меню
/bookings — мои встречи
/balance — баланс кошелька
/referral — реферальная ссылка
/help — эта справка`

// handleStart регистрирует пользователя; payload команды — реферальный код.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	if name == "" {
		name = msg.From.UserName
	}

	user := &models.User{
		TelegramID:  userID,
		Username:    msg.From.UserName,
		DisplayName: name,
		Role:        "buyer",
	}
	if err := b.users.SaveUser(ctx, user); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("start: save user")
		b.sendMessage(msg.Chat.ID, "Не удалось зарегистрироваться, попробуйте позже.")
		return
	}

	if code := strings.TrimSpace(msg.CommandArguments()); code != "" {
		if err := b.referral.RegisterReferral(ctx, userID, code); err != nil {
			b.logger.Warn().Err(err).Int64("user_id", userID).Str("code", code).Msg("start: referral rejected")
		}
	}

	if err := b.sessions.ClearSession(ctx, userID); err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("start: clear session")
	}
	if err := b.sessions.SetScreen(ctx, userID, ScreenMainMenu, nil); err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("start: set screen")
	}

	b.sendMainMenu(msg.Chat.ID)
}

func (b *Bot) sendMainMenu(chatID int64) {
	text := "Добро пожаловать! Откройте мини-приложение, чтобы выбрать услугу и назначить встречу."
	msg := tgbotapi.NewMessage(chatID, text)
	if b.config.Telegram.MiniAppURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("📱 Открыть приложение", b.config.Telegram.MiniAppURL),
			),
		)
	}
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send main menu")
	}
}

func (b *Bot) handleBalance(ctx context.Context, msg *tgbotapi.Message) {
	balance, err := b.wallet.GetBalance(ctx, msg.From.ID, models.CurrencyRUB)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("balance: get")
		b.sendMessage(msg.Chat.ID, "Не удалось получить баланс.")
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("💰 Баланс: %.2f RUB", balance))
}

func (b *Bot) handleBookings(ctx context.Context, msg *tgbotapi.Message) {
	bookings, err := b.bookings.GetUserBookings(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("bookings: list")
		b.sendMessage(msg.Chat.ID, "Не удалось получить список встреч.")
		return
	}
	if len(bookings) == 0 {
		b.sendMessage(msg.Chat.ID, "У вас пока нет встреч.")
		return
	}

	if err := b.sessions.SetScreen(ctx, msg.From.ID, ScreenBookings, nil); err != nil {
		b.logger.Warn().Err(err).Int64("user_id", msg.From.ID).Msg("bookings: set screen")
	}

	// Показываем до пяти последних, остальное в мини-аппе
	limit := len(bookings)
	if limit > 5 {
		limit = 5
	}
	for _, bk := range bookings[:limit] {
		out := tgbotapi.NewMessage(msg.Chat.ID, notify.FormatBooking(bk))
		out.ParseMode = tgbotapi.ModeMarkdown
		if kb, ok := bookingActionsKeyboard(msg.From.ID, bk); ok {
			out.ReplyMarkup = kb
		}
		if _, err := b.tg.Send(out); err != nil {
			b.logger.Error().Err(err).Int64("booking_id", bk.ID).Msg("bookings: send")
		}
	}
}

func (b *Bot) handleReferral(ctx context.Context, msg *tgbotapi.Message) {
	link, err := b.referral.GetReferralLink(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("referral: link")
		b.sendMessage(msg.Chat.ID, "Сначала зарегистрируйтесь: /start")
		return
	}
	b.sendMessage(msg.Chat.ID, "🔗 Ваша реферальная ссылка:\n"+link)
}

// bookingActionsKeyboard подбирает кнопки под роль пользователя и статус.
func bookingActionsKeyboard(userID int64, bk *models.Booking) (tgbotapi.InlineKeyboardMarkup, bool) {
	var buttons []tgbotapi.InlineKeyboardButton

	isSeller := bk.SellerID == userID
	isBuyer := bk.BuyerID == userID

	switch bk.Status {
	case models.StatusPendingConfirmation:
		if isSeller {
			buttons = append(buttons,
				tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", callbackData("confirm", bk.ID)),
				tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", callbackData("reject", bk.ID)),
			)
		}
	case models.StatusConfirmed:
		if isSeller {
			buttons = append(buttons,
				tgbotapi.NewInlineKeyboardButtonData("⭐ Я на месте", callbackData("seller_ready", bk.ID)),
			)
		}
	case models.StatusSellerReady:
		if isBuyer {
			buttons = append(buttons,
				tgbotapi.NewInlineKeyboardButtonData("▶️ Начать встречу", callbackData("buyer_ready", bk.ID)),
			)
		}
	case models.StatusInProgress:
		buttons = append(buttons,
			tgbotapi.NewInlineKeyboardButtonData("🏁 Завершить", callbackData("complete", bk.ID)),
		)
	}

	if !bk.Status.IsTerminal() {
		buttons = append(buttons,
			tgbotapi.NewInlineKeyboardButtonData("🚫 Отменить", callbackData("cancel", bk.ID)),
		)
	}

	if len(buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...)), true
}

func callbackData(action string, bookingID int64) string {
	return fmt.Sprintf("booking:%s:%d", action, bookingID)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	cb := update.CallbackQuery
	parts := strings.Split(cb.Data, ":")
	if len(parts) != 3 || parts[0] != "booking" {
		b.answerCallback(cb.ID, "")
		return
	}

	bookingID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		b.answerCallback(cb.ID, "Некорректный запрос")
		return
	}

	var result *models.Booking
	switch parts[1] {
	case "confirm":
		result, err = b.bookings.ConfirmBooking(ctx, bookingID)
	case "reject":
		result, err = b.bookings.RejectBooking(ctx, bookingID)
	case "seller_ready":
		result, err = b.bookings.SellerReady(ctx, bookingID)
	case "buyer_ready":
		result, err = b.bookings.BuyerReady(ctx, bookingID)
	case "complete":
		result, err = b.bookings.CompleteBooking(ctx, bookingID)
	case "cancel":
		result, err = b.bookings.CancelBooking(ctx, bookingID, "Отменено через бота")
	default:
		b.answerCallback(cb.ID, "Неизвестное действие")
		return
	}

	if err != nil {
		b.logger.Warn().Err(err).Int64("booking_id", bookingID).Str("action", parts[1]).Msg("callback: transition failed")
		b.answerCallback(cb.ID, "Действие недоступно в текущем статусе")
		return
	}

	if result.Status == models.StatusInProgress && result.BuyerID == cb.From.ID {
		if err := b.sessions.SetActiveBooking(ctx, cb.From.ID, result.ID); err != nil {
			b.logger.Warn().Err(err).Int64("booking_id", result.ID).Msg("callback: set active booking")
		}
	}

	b.answerCallback(cb.ID, "Готово: "+booking.StatusLabel(result.Status).Text)

	if cb.Message != nil {
		edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, notify.FormatBooking(result))
		edit.ParseMode = tgbotapi.ModeMarkdown
		if _, err := b.tg.Send(edit); err != nil {
			b.logger.Warn().Err(err).Int64("booking_id", result.ID).Msg("callback: edit message")
		}
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	cb := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.tg.Request(cb); err != nil {
		b.logger.Warn().Err(err).Msg("answer callback")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}
