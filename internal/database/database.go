package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"svidanie/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

type DB struct {
	*sql.DB
	log zerolog.Logger

	mu             sync.RWMutex
	servicesCache  map[int64]models.Service
	sortedServices []models.Service
}

func NewDB(path string, logger zerolog.Logger) (*DB, error) {
	// Создаем директорию для БД, если её нет
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn += "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	logger.Info().Str("path", path).Msg("База данных инициализирована")
	return &DB{
		DB:            db,
		log:           logger,
		servicesCache: make(map[int64]models.Service),
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Таблица пользователей
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            telegram_id INTEGER UNIQUE NOT NULL,
            username TEXT,
            display_name TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'buyer',
            referral_code TEXT UNIQUE,
            referred_by TEXT,
            is_blacklisted BOOLEAN NOT NULL DEFAULT 0,
            schedule TEXT,
            last_activity DATETIME NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Каталог услуг
		`CREATE TABLE IF NOT EXISTS services (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT,
            category TEXT NOT NULL,
            price REAL NOT NULL,
            duration REAL NOT NULL,
            currency TEXT NOT NULL DEFAULT 'RUB',
            is_active BOOLEAN NOT NULL DEFAULT 1,
            sort_order INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Таблица встреч
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY,
            service_id INTEGER NOT NULL,
            service_name TEXT NOT NULL,
            service_category TEXT NOT NULL,
            seller_id INTEGER NOT NULL,
            seller_name TEXT NOT NULL,
            buyer_id INTEGER NOT NULL,
            buyer_name TEXT NOT NULL,
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            duration REAL NOT NULL,
            price_per_hour REAL NOT NULL,
            total_price REAL NOT NULL,
            currency TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending_seller_confirmation',
            note TEXT,
            remaining_time INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            confirmed_at DATETIME,
            seller_ready_at DATETIME,
            buyer_ready_at DATETIME,
            started_at DATETIME,
            completed_at DATETIME,
            expires_at DATETIME,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		// Транзакции кошелька
		`CREATE TABLE IF NOT EXISTS transactions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            type TEXT NOT NULL,
            amount REAL NOT NULL,
            currency TEXT NOT NULL,
            status TEXT NOT NULL,
            description TEXT,
            related_booking_id INTEGER NOT NULL DEFAULT 0,
            from_user TEXT,
            to_user TEXT,
            fee REAL NOT NULL DEFAULT 0,
            referral_level INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            completed_at DATETIME
        )`,
		// Очередь уведомлений
		`CREATE TABLE IF NOT EXISTS notify_outbox (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            dedup_key TEXT UNIQUE NOT NULL,
            booking_id INTEGER NOT NULL,
            chat_id INTEGER NOT NULL,
            kind TEXT NOT NULL,
            message TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_users_telegram_id ON users(telegram_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_referral_code ON users(referral_code)`,
		`CREATE INDEX IF NOT EXISTS idx_users_referred_by ON users(referred_by)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_buyer_id ON bookings(buyer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_seller_id ON bookings(seller_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_expires_at ON bookings(expires_at)`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,

		`CREATE INDEX IF NOT EXISTS idx_notify_outbox_status ON notify_outbox(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %v", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
