package bot

import (
	"context"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"svidanie/internal/config"
	"svidanie/internal/domain"
	"svidanie/internal/models"
)

type Bot struct {
	tg       domain.TelegramService
	config   *config.Config
	sessions domain.SessionManager
	users    domain.UserService
	bookings domain.BookingService
	wallet   domain.WalletService
	referral domain.ReferralService
	repo     domain.Repository
	notifyQ  domain.NotifyQueue
	clock    func() time.Time
	logger   *zerolog.Logger
}

func NewBot(
	tg domain.TelegramService,
	cfg *config.Config,
	sessions domain.SessionManager,
	users domain.UserService,
	bookings domain.BookingService,
	wallet domain.WalletService,
	referral domain.ReferralService,
	repo domain.Repository,
	notifyQ domain.NotifyQueue,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	return &Bot{
		tg:       tg,
		config:   cfg,
		sessions: sessions,
		users:    users,
		bookings: bookings,
		wallet:   wallet,
		referral: referral,
		repo:     repo,
		notifyQ:  notifyQ,
		clock:    time.Now,
		logger:   logger,
	}
}

const (
	ScreenMainMenu = "main_menu"
	ScreenBookings = "bookings"
	ScreenWallet   = "wallet"
)

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	// Контекст на обработку каждого обновления
	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID int64
		if update.Message != nil {
			userID = update.Message.From.ID
		} else if update.CallbackQuery != nil {
			userID = update.CallbackQuery.From.ID
		}

		if userID == 0 {
			return
		}

		b.trackActivity(userID)

		allowed, err := b.sessions.CheckRateLimit(updateCtx, userID, models.RateLimitRequests, time.Duration(models.RateLimitWindow)*time.Second)
		if err != nil {
			b.logger.Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
		} else if !allowed {
			b.logger.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
			if update.Message != nil {
				b.sendMessage(update.Message.Chat.ID, "⚠️ Вы отправляете сообщения слишком часто. Пожалуйста, подождите немного.")
			}
			return
		}

		if b.users.IsBlacklisted(updateCtx, userID) {
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update)
			return
		}

		if update.Message == nil {
			return
		}

		b.handleMessage(updateCtx, update)
	})
}
