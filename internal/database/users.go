package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"svidanie/internal/models"
)

const userColumns = `id, telegram_id, username, display_name, role, referral_code,
                 referred_by, is_blacklisted, schedule, last_activity, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var schedule sql.NullString
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.DisplayName, &u.Role, &u.ReferralCode,
		&u.ReferredBy, &u.IsBlacklisted, &schedule, &u.LastActivity, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if schedule.Valid && schedule.String != "" {
		var ws models.WorkSchedule
		if err := json.Unmarshal([]byte(schedule.String), &ws); err != nil {
			return nil, fmt.Errorf("failed to decode user schedule: %w", err)
		}
		u.Schedule = &ws
	}
	return u, nil
}

func marshalSchedule(ws *models.WorkSchedule) (any, error) {
	if ws == nil {
		return nil, nil
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user schedule: %w", err)
	}
	return string(data), nil
}

func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	query := `
        INSERT INTO users (telegram_id, username, display_name, role, referral_code, referred_by, is_blacklisted, last_activity, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(telegram_id) DO UPDATE SET
            username = excluded.username,
            display_name = excluded.display_name,
            role = excluded.role,
            referral_code = excluded.referral_code,
            referred_by = excluded.referred_by,
            is_blacklisted = excluded.is_blacklisted,
            last_activity = excluded.last_activity,
            updated_at = excluded.updated_at
    `
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		user.TelegramID,
		user.Username,
		user.DisplayName,
		user.Role,
		user.ReferralCode,
		user.ReferredBy,
		user.IsBlacklisted,
		user.LastActivity,
		user.CreatedAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (db *DB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = ?`
	u, err := scanUser(db.QueryRowContext(ctx, query, telegramID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = ?`
	u, err := scanUser(db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}
	return u, nil
}

// GetReferredUsers возвращает пользователей, пришедших по коду.
func (db *DB) GetReferredUsers(ctx context.Context, referralCode string) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referred_by = ? ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query, referralCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get referred users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (db *DB) UpdateUserActivity(ctx context.Context, telegramID int64) error {
	query := `UPDATE users SET last_activity = ?, updated_at = ? WHERE telegram_id = ?`
	now := time.Now()
	_, err := db.ExecContext(ctx, query, now, now, telegramID)
	return err
}

// SetUserSchedule сохраняет график доступности; nil очищает его.
func (db *DB) SetUserSchedule(ctx context.Context, telegramID int64, ws *models.WorkSchedule) error {
	payload, err := marshalSchedule(ws)
	if err != nil {
		return err
	}
	query := `UPDATE users SET schedule = ?, updated_at = ? WHERE telegram_id = ?`
	res, err := db.ExecContext(ctx, query, payload, time.Now(), telegramID)
	if err != nil {
		return fmt.Errorf("failed to set user schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) SetUserBlacklisted(ctx context.Context, telegramID int64, blacklisted bool) error {
	query := `UPDATE users SET is_blacklisted = ?, updated_at = ? WHERE telegram_id = ?`
	_, err := db.ExecContext(ctx, query, blacklisted, time.Now(), telegramID)
	return err
}

func (db *DB) GetAllUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
