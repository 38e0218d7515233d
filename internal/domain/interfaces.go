package domain

import (
	"context"
	"time"

	"svidanie/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Repository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingWithVersion(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status models.BookingStatus) error
	GetBuyerBookings(ctx context.Context, buyerID int64) ([]*models.Booking, error)
	GetSellerBookings(ctx context.Context, sellerID int64) ([]*models.Booking, error)
	GetExpiredPending(ctx context.Context, now time.Time) ([]*models.Booking, error)
	GetBookingsByStatus(ctx context.Context, status models.BookingStatus) ([]*models.Booking, error)

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetUserTransactions(ctx context.Context, userID int64) ([]models.Transaction, error)
	GetUserTransactionsByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]models.Transaction, error)
	GetBookingTransactions(ctx context.Context, bookingID int64) ([]models.Transaction, error)

	CreateOrUpdateUser(ctx context.Context, user *models.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	GetReferredUsers(ctx context.Context, referralCode string) ([]models.User, error)
	UpdateUserActivity(ctx context.Context, telegramID int64) error
	SetUserBlacklisted(ctx context.Context, telegramID int64, blacklisted bool) error
	SetUserSchedule(ctx context.Context, telegramID int64, schedule *models.WorkSchedule) error
	GetAllUsers(ctx context.Context) ([]models.User, error)

	GetService(id int64) (models.Service, bool)
	GetActiveServices() []models.Service

	CreateNotifyTask(ctx context.Context, task *models.NotifyTask) error
	GetPendingNotifyTasks(ctx context.Context, limit int) ([]models.NotifyTask, error)
	UpdateNotifyTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

type SessionRepository interface {
	GetSession(ctx context.Context, userID int64) (*models.SessionState, error)
	SetSession(ctx context.Context, session *models.SessionState) error
	ClearSession(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramService расширяет отправку до полного цикла работы бота.
type TelegramService interface {
	TelegramSender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type SessionManager interface {
	GetSession(ctx context.Context, userID int64) (*models.SessionState, error)
	SetScreen(ctx context.Context, userID int64, screen string, data map[string]interface{}) error
	SetActiveBooking(ctx context.Context, userID, bookingID int64) error
	ClearSession(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// NotifyQueue ставит уведомление в очередь доставки.
type NotifyQueue interface {
	Enqueue(ctx context.Context, task *models.NotifyTask) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, serviceID, sellerID, buyerID int64, date, timeStr string, note string) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID int64) (*models.Booking, error)
	RejectBooking(ctx context.Context, bookingID int64) (*models.Booking, error)
	SellerReady(ctx context.Context, bookingID int64) (*models.Booking, error)
	BuyerReady(ctx context.Context, bookingID int64) (*models.Booking, error)
	ExtendBooking(ctx context.Context, bookingID int64, amount float64) (*models.Booking, error)
	CompleteBooking(ctx context.Context, bookingID int64) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID int64, reason string) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)
	SweepExpired(ctx context.Context) (int, error)
}

type WalletService interface {
	GetBalance(ctx context.Context, userID int64, currency models.Currency) (float64, error)
	Deposit(ctx context.Context, userID int64, amount float64, currency models.Currency) (*models.Transaction, error)
	Withdraw(ctx context.Context, userID int64, amount float64, currency models.Currency, address string) (*models.Transaction, error)
	GetTransactions(ctx context.Context, userID int64) ([]models.Transaction, error)
	ExportTransactions(ctx context.Context, userID int64, from, to time.Time) (string, error)
}

type UserService interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	IsBlacklisted(ctx context.Context, telegramID int64) bool
	SetBlacklisted(ctx context.Context, telegramID int64, blacklisted bool) error
	SetSchedule(ctx context.Context, telegramID int64, schedule *models.WorkSchedule) error
	UpdateUserActivity(ctx context.Context, telegramID int64) error
}

type ReferralService interface {
	GetReferralLink(ctx context.Context, userID int64) (string, error)
	RegisterReferral(ctx context.Context, userID int64, code string) error
	GetReferrals(ctx context.Context, userID int64) ([]models.ReferralUser, error)
	PayCommissions(ctx context.Context, booking *models.Booking) error
}
