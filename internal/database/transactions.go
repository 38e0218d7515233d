package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"svidanie/internal/models"
)

const txColumns = `id, user_id, type, amount, currency, status, description,
                 related_booking_id, from_user, to_user, fee, referral_level,
                 created_at, completed_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Currency, &t.Status, &t.Description,
		&t.RelatedBookingID, &t.FromUser, &t.ToUser, &t.Fee, &t.ReferralLevel,
		&t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (db *DB) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `INSERT INTO transactions (user_id, type, amount, currency, status, description,
                  related_booking_id, from_user, to_user, fee, referral_level, created_at, completed_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		t.UserID, t.Type, t.Amount, t.Currency, t.Status, t.Description,
		t.RelatedBookingID, t.FromUser, t.ToUser, t.Fee, t.ReferralLevel,
		t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	t.ID = id
	return nil
}

func (db *DB) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = ?`
	t, err := scanTransaction(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (db *DB) UpdateTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus, completedAt *time.Time) error {
	query := `UPDATE transactions SET status = ?, completed_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, status, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}

func (db *DB) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

func (db *DB) GetUserTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE user_id = ? ORDER BY created_at DESC`
	return db.queryTransactions(ctx, query, userID)
}

func (db *DB) GetUserTransactionsByDateRange(ctx context.Context, userID int64, from, to time.Time) ([]models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
              WHERE user_id = ? AND created_at >= ? AND created_at <= ?
              ORDER BY created_at DESC`
	return db.queryTransactions(ctx, query, userID, from, to)
}

func (db *DB) GetBookingTransactions(ctx context.Context, bookingID int64) ([]models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE related_booking_id = ? ORDER BY created_at ASC`
	return db.queryTransactions(ctx, query, bookingID)
}
