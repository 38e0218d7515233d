package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"svidanie/internal/booking"
	"svidanie/internal/bot"
	"svidanie/internal/config"
	"svidanie/internal/database"
	"svidanie/internal/events"
	"svidanie/internal/logging"
	"svidanie/internal/metrics"
	"svidanie/internal/models"
	"svidanie/internal/notify"
	"svidanie/internal/repository"
	"svidanie/internal/service"
	"svidanie/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, services, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return err
	}
	defer db.Close()

	if err := db.SyncServices(context.Background(), services); err != nil {
		logger.Error().Err(err).Msg("Ошибка синхронизации каталога услуг")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	redisClient, sessions := initSessions(ctx, cfg, &logger)

	if cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Error().Msg("Задайте токен бота в config.yaml")
		return os.ErrInvalid
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug
	tgClient := bot.NewTelegramClient(botAPI)

	// Воркер доставки: читает outbox и шлет в Telegram
	notifier := notify.NewTelegramNotifier(tgClient, &logger)
	notifyWorker := worker.NewNotifyWorker(db, notifier, redisClient, worker.RetryPolicy{}, &logger)
	go notifyWorker.Start(ctx)

	eventBus := events.NewEventBus()
	lifecycle := booking.NewLifecycle(time.Now)
	referralService := service.NewReferralService(db, cfg.Telegram.MiniAppURL, time.Now, &logger)
	bookingService := service.NewBookingService(db, lifecycle, eventBus, notifyWorker, referralService, cfg.Escrow.FeePercent, time.Now, &logger)
	walletService := service.NewWalletService(db, cfg.Exports.Path, time.Now, &logger)
	userService := service.NewUserService(db, &logger)

	telegramBot := bot.NewBot(
		tgClient, cfg, sessions, userService, bookingService,
		walletService, referralService, db, notifyWorker, &logger,
	)

	logger.Info().Msg("Бот запущен...")
	telegramBot.StartReminders(ctx)
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, []models.Service, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	servicesPath := os.Getenv("SERVICES_PATH")
	if servicesPath == "" {
		servicesPath = "configs/services.yaml"
	}

	data, err := os.ReadFile(servicesPath)
	if err != nil {
		if os.IsNotExist(err) && len(cfg.Services) > 0 {
			logger.Warn().Str("path", servicesPath).Msg("services.yaml не найден, используем каталог из конфига")
			return cfg, cfg.Services, logger, closer, nil
		}
		logger.Error().Err(err).Msgf("Ошибка чтения %s", servicesPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var catalog struct {
		Services []models.Service `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга services.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	if err := config.ValidateServices(catalog.Services); err != nil {
		logger.Error().Err(err).Msg("Services validation failed")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, catalog.Services, logger, closer, nil
}

func initSessions(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.SessionService) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	ttl := time.Duration(models.DefaultRedisTTL) * time.Second
	primary := repository.NewRedisSessionRepository(redisClient, ttl)
	fallback := repository.NewMemorySessionRepository(ttl)
	sessionRepo := repository.NewFailoverSessionRepository(primary, fallback, logger)
	return redisClient, service.NewSessionService(sessionRepo, logger)
}
