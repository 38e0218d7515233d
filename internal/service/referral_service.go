package service

import (
	"context"
	"fmt"
	"time"

	"svidanie/internal/domain"
	"svidanie/internal/models"
	"svidanie/internal/referral"
	"svidanie/internal/wallet"

	"github.com/rs/zerolog"
)

type ReferralService struct {
	repo       domain.Repository
	miniAppURL string
	clock      func() time.Time
	logger     *zerolog.Logger
}

func NewReferralService(repo domain.Repository, miniAppURL string, clock func() time.Time, logger *zerolog.Logger) *ReferralService {
	if clock == nil {
		clock = time.Now
	}
	return &ReferralService{
		repo:       repo,
		miniAppURL: miniAppURL,
		clock:      clock,
		logger:     logger,
	}
}

// GetReferralLink отдает персональную ссылку, генерируя код при первом обращении.
func (s *ReferralService) GetReferralLink(ctx context.Context, userID int64) (string, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, userID)
	if err != nil {
		return "", err
	}

	if user.ReferralCode == "" {
		user.ReferralCode = referral.GenerateCode(user.TelegramID, user.DisplayName)
		if err := s.repo.CreateOrUpdateUser(ctx, user); err != nil {
			return "", fmt.Errorf("failed to save referral code: %w", err)
		}
	}

	return referral.BuildLink(s.miniAppURL, user.ReferralCode), nil
}

// RegisterReferral привязывает нового пользователя к пригласившему.
func (s *ReferralService) RegisterReferral(ctx context.Context, userID int64, code string) error {
	if !referral.ValidateCode(code) {
		return fmt.Errorf("invalid referral code: %q", code)
	}

	referrer, err := s.repo.GetUserByReferralCode(ctx, code)
	if err != nil {
		return fmt.Errorf("referrer not found: %w", err)
	}
	if referrer.TelegramID == userID {
		return fmt.Errorf("self-referral is not allowed")
	}

	user, err := s.repo.GetUserByTelegramID(ctx, userID)
	if err != nil {
		return err
	}
	if user.ReferredBy != "" {
		// Привязка делается один раз
		return nil
	}

	user.ReferredBy = code
	if err := s.repo.CreateOrUpdateUser(ctx, user); err != nil {
		return err
	}

	s.logger.Info().Int64("user_id", userID).Int64("referrer_id", referrer.TelegramID).Msg("Реферал привязан")
	return nil
}

// GetReferrals собирает дерево рефералов до третьего уровня.
func (s *ReferralService) GetReferrals(ctx context.Context, userID int64) ([]models.ReferralUser, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ReferralCode == "" {
		return nil, nil
	}

	var out []models.ReferralUser
	codes := []string{user.ReferralCode}

	for level := 1; level <= referral.MaxLevel; level++ {
		var nextCodes []string
		for _, code := range codes {
			referred, err := s.repo.GetReferredUsers(ctx, code)
			if err != nil {
				return nil, err
			}
			for _, r := range referred {
				spent, err := s.totalSpent(ctx, r.TelegramID)
				if err != nil {
					return nil, err
				}
				out = append(out, models.ReferralUser{
					ID:             r.TelegramID,
					Name:           r.DisplayName,
					RegisteredDate: r.CreatedAt,
					Level:          level,
					TotalSpent:     spent,
					YourEarnings:   referral.Commission(spent, level),
					IsActive:       spent > 0,
				})
				if r.ReferralCode != "" {
					nextCodes = append(nextCodes, r.ReferralCode)
				}
			}
		}
		codes = nextCodes
		if len(codes) == 0 {
			break
		}
	}

	return out, nil
}

// PayCommissions начисляет комиссии пригласившим покупателя,
// поднимаясь по цепочке до трех уровней.
func (s *ReferralService) PayCommissions(ctx context.Context, b *models.Booking) error {
	user, err := s.repo.GetUserByTelegramID(ctx, b.BuyerID)
	if err != nil {
		return err
	}

	code := user.ReferredBy
	for level := 1; level <= referral.MaxLevel && code != ""; level++ {
		referrer, err := s.repo.GetUserByReferralCode(ctx, code)
		if err != nil {
			// Код осиротел, цепочка обрывается
			s.logger.Warn().Str("code", code).Msg("Пригласивший не найден, комиссия не начислена")
			return nil
		}

		amount := referral.Commission(b.TotalPrice, level)
		if amount > 0 {
			tx := wallet.NewReferralCommission(s.clock(), referrer.TelegramID, b.ID, amount, b.Currency, level, b.BuyerName)
			if err := s.repo.CreateTransaction(ctx, &tx); err != nil {
				return fmt.Errorf("failed to pay level %d commission: %w", level, err)
			}
		}

		code = referrer.ReferredBy
	}

	return nil
}

func (s *ReferralService) totalSpent(ctx context.Context, userID int64) (float64, error) {
	txs, err := s.repo.GetUserTransactions(ctx, userID)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, tx := range txs {
		if tx.Status != models.TxCompleted {
			continue
		}
		switch tx.Type {
		case models.TxBookingPayment, models.TxBookingExtend, models.TxVIPPayment, models.TxTipSent:
			total += tx.Amount
		}
	}
	return total, nil
}
