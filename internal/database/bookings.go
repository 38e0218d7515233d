package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"svidanie/internal/models"
)

const bookingColumns = `id, service_id, service_name, service_category, seller_id, seller_name,
                 buyer_id, buyer_name, date, time, duration, price_per_hour, total_price,
                 currency, status, note, remaining_time, created_at, confirmed_at,
                 seller_ready_at, buyer_ready_at, started_at, completed_at, expires_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.ServiceID, &b.ServiceName, &b.ServiceCategory, &b.SellerID, &b.SellerName,
		&b.BuyerID, &b.BuyerName, &b.Date, &b.Time, &b.Duration, &b.PricePerHour, &b.TotalPrice,
		&b.Currency, &b.Status, &b.Note, &b.RemainingTime, &b.CreatedAt, &b.ConfirmedAt,
		&b.SellerReadyAt, &b.BuyerReadyAt, &b.StartedAt, &b.CompletedAt, &b.ExpiresAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		b.ID, b.ServiceID, b.ServiceName, b.ServiceCategory, b.SellerID, b.SellerName,
		b.BuyerID, b.BuyerName, b.Date, b.Time, b.Duration, b.PricePerHour, b.TotalPrice,
		b.Currency, b.Status, b.Note, b.RemainingTime, b.CreatedAt, b.ConfirmedAt,
		b.SellerReadyAt, b.BuyerReadyAt, b.StartedAt, b.CompletedAt, b.ExpiresAt, b.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// UpdateBookingWithVersion перезаписывает изменяемые поля встречи, если её
// версия не поменялась с момента чтения. Версия в БД и в переданной записи
// инкрементируется.
func (db *DB) UpdateBookingWithVersion(ctx context.Context, b *models.Booking) error {
	query := `UPDATE bookings SET
	              duration = ?, total_price = ?, status = ?, remaining_time = ?,
	              confirmed_at = ?, seller_ready_at = ?, buyer_ready_at = ?,
	              started_at = ?, completed_at = ?, expires_at = ?,
	              version = version + 1
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query,
		b.Duration, b.TotalPrice, b.Status, b.RemainingTime,
		b.ConfirmedAt, b.SellerReadyAt, b.BuyerReadyAt,
		b.StartedAt, b.CompletedAt, b.ExpiresAt,
		b.ID, b.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	b.Version++
	return nil
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status models.BookingStatus) error {
	query := `UPDATE bookings SET status = ?, version = version + 1 WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (db *DB) GetBuyerBookings(ctx context.Context, buyerID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE buyer_id = ? ORDER BY created_at DESC`
	return db.queryBookings(ctx, query, buyerID)
}

func (db *DB) GetSellerBookings(ctx context.Context, sellerID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE seller_id = ? ORDER BY created_at DESC`
	return db.queryBookings(ctx, query, sellerID)
}

// GetExpiredPending возвращает неподтвержденные встречи, у которых вышло
// окно подтверждения.
func (db *DB) GetExpiredPending(ctx context.Context, now time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE status = ? AND expires_at IS NOT NULL AND expires_at < ?
              ORDER BY expires_at ASC`
	return db.queryBookings(ctx, query, models.StatusPendingConfirmation, now)
}

func (db *DB) GetBookingsByStatus(ctx context.Context, status models.BookingStatus) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = ? ORDER BY created_at DESC`
	return db.queryBookings(ctx, query, status)
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE date >= ? AND date <= ? ORDER BY date, time`
	return db.queryBookings(ctx, query, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
}
