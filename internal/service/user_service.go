package service

import (
	"context"
	"errors"
	"time"

	"svidanie/internal/database"
	"svidanie/internal/domain"
	"svidanie/internal/models"
	"svidanie/internal/referral"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewUserService(repo domain.Repository, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// SaveUser регистрирует или обновляет пользователя. Реферальный код
// выдается при первом сохранении.
func (s *UserService) SaveUser(ctx context.Context, user *models.User) error {
	existing, err := s.repo.GetUserByTelegramID(ctx, user.TelegramID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}

	if existing != nil {
		user.ReferralCode = existing.ReferralCode
		user.ReferredBy = existing.ReferredBy
		user.CreatedAt = existing.CreatedAt
	} else {
		user.ReferralCode = referral.GenerateCode(user.TelegramID, user.DisplayName)
		now := time.Now()
		user.CreatedAt = now
		user.LastActivity = now
	}

	return s.repo.CreateOrUpdateUser(ctx, user)
}

func (s *UserService) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.repo.GetUserByTelegramID(ctx, telegramID)
}

func (s *UserService) IsBlacklisted(ctx context.Context, telegramID int64) bool {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return false
	}
	return user.IsBlacklisted
}

func (s *UserService) SetBlacklisted(ctx context.Context, telegramID int64, blacklisted bool) error {
	return s.repo.SetUserBlacklisted(ctx, telegramID, blacklisted)
}

func (s *UserService) SetSchedule(ctx context.Context, telegramID int64, schedule *models.WorkSchedule) error {
	return s.repo.SetUserSchedule(ctx, telegramID, schedule)
}

func (s *UserService) UpdateUserActivity(ctx context.Context, telegramID int64) error {
	return s.repo.UpdateUserActivity(ctx, telegramID)
}
