package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"svidanie/internal/api"
	"svidanie/internal/booking"
	"svidanie/internal/config"
	"svidanie/internal/database"
	"svidanie/internal/events"
	"svidanie/internal/logging"
	"svidanie/internal/metrics"
	"svidanie/internal/models"
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

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, services, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)

	metrics.Register()
	eventBus := events.NewEventBus()
	subscribeTransitionMetrics(eventBus)

	// Очередь уведомлений: API только ставит задачи, доставляет бот.
	notifyQueue := worker.NewNotifyWorker(db, nil, redisClient, worker.RetryPolicy{}, &logger)

	lifecycle := booking.NewLifecycle(time.Now)
	referralService := service.NewReferralService(db, cfg.Telegram.MiniAppURL, time.Now, &logger)
	bookingService := service.NewBookingService(db, lifecycle, eventBus, notifyQueue, referralService, cfg.Escrow.FeePercent, time.Now, &logger)
	walletService := service.NewWalletService(db, cfg.Exports.Path, time.Now, &logger)
	userService := service.NewUserService(db, &logger)

	startExpirySweeper(ctx, bookingService, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	apiServer := api.NewHTTPServer(cfg.API, cfg.Admin, bookingService, walletService, referralService, userService, db, &logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()
	defer func() {
		_ = apiServer.Shutdown(context.Background())
	}()

	<-ctx.Done()
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
	logger := baseLogger.With().Str("component", "api-main").Logger()

	services, err := loadServicesCatalog(cfg, &logger)
	if err != nil {
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, services, logger, closer, nil
}

// loadServicesCatalog читает каталог услуг из отдельного yaml.
// Позиции из основного конфига служат фолбэком.
func loadServicesCatalog(cfg *config.Config, logger *zerolog.Logger) ([]models.Service, error) {
	servicesPath := os.Getenv("SERVICES_PATH")
	if servicesPath == "" {
		servicesPath = "configs/services.yaml"
	}

	data, err := os.ReadFile(servicesPath)
	if err != nil {
		if os.IsNotExist(err) && len(cfg.Services) > 0 {
			logger.Warn().Str("path", servicesPath).Msg("services.yaml не найден, используем каталог из конфига")
			return cfg.Services, nil
		}
		logger.Error().Err(err).Msgf("Ошибка чтения %s", servicesPath)
		return nil, err
	}

	var catalog struct {
		Services []models.Service `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга services.yaml")
		return nil, err
	}

	if err := config.ValidateServices(catalog.Services); err != nil {
		logger.Error().Err(err).Msg("Services validation failed")
		return nil, err
	}

	return catalog.Services, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, services []models.Service, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, *logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}

	if err := db.SyncServices(context.Background(), services); err != nil {
		logger.Error().Err(err).Msg("Ошибка синхронизации каталога услуг")
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}
	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}
	return client
}

// startExpirySweeper отменяет просроченные заявки раз в секунду.
func startExpirySweeper(ctx context.Context, bookings *service.BookingService, logger *zerolog.Logger) {
	go func() {
		ticker := time.NewTicker(models.ExpirySweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := bookings.SweepExpired(ctx); err != nil {
					logger.Error().Err(err).Msg("expiry sweep error")
				}
			}
		}
	}()
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Prometheus metrics listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
}

func subscribeTransitionMetrics(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingRejected,
		events.EventBookingSellerReady,
		events.EventBookingStarted,
		events.EventBookingExtended,
		events.EventBookingCompleted,
		events.EventBookingCancelled,
		events.EventBookingExpired,
	} {
		bus.Subscribe(eventType, func(ev *events.Event) error {
			metrics.IncTransition(ev.Type)
			return nil
		})
	}
}
