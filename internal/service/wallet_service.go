package service

import (
	"context"
	"time"

	"svidanie/internal/database"
	"svidanie/internal/domain"
	"svidanie/internal/models"
	"svidanie/internal/wallet"

	"github.com/rs/zerolog"
)

type WalletService struct {
	repo      domain.Repository
	exportDir string
	clock     func() time.Time
	logger    *zerolog.Logger
}

func NewWalletService(repo domain.Repository, exportDir string, clock func() time.Time, logger *zerolog.Logger) *WalletService {
	if clock == nil {
		clock = time.Now
	}
	return &WalletService{
		repo:      repo,
		exportDir: exportDir,
		clock:     clock,
		logger:    logger,
	}
}

func (s *WalletService) GetBalance(ctx context.Context, userID int64, currency models.Currency) (float64, error) {
	txs, err := s.repo.GetUserTransactions(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance(txs, currency, 0), nil
}

func (s *WalletService) Deposit(ctx context.Context, userID int64, amount float64, currency models.Currency) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, database.ErrInsufficientFunds
	}

	tx := wallet.NewDeposit(s.clock(), userID, amount, currency)
	if err := s.repo.CreateTransaction(ctx, &tx); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", userID).Float64("amount", amount).Str("currency", string(currency)).Msg("Пополнение счета")
	return &tx, nil
}

func (s *WalletService) Withdraw(ctx context.Context, userID int64, amount float64, currency models.Currency, address string) (*models.Transaction, error) {
	balance, err := s.GetBalance(ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	if amount <= 0 || balance < amount {
		return nil, database.ErrInsufficientFunds
	}

	tx := wallet.NewWithdraw(s.clock(), userID, amount, currency, address)
	if err := s.repo.CreateTransaction(ctx, &tx); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", userID).Float64("amount", amount).Msg("Заявка на вывод создана")
	return &tx, nil
}

func (s *WalletService) GetTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	return s.repo.GetUserTransactions(ctx, userID)
}

// ExportTransactions выгружает историю за период в Excel и возвращает путь к файлу.
func (s *WalletService) ExportTransactions(ctx context.Context, userID int64, from, to time.Time) (string, error) {
	txs, err := s.repo.GetUserTransactionsByDateRange(ctx, userID, from, to)
	if err != nil {
		return "", err
	}
	return wallet.ExportExcel(s.exportDir, txs, from, to)
}
