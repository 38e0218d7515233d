package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"svidanie/internal/config"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const defaultBackupInterval = 24 * time.Hour

// BackupService периодически снимает копию sqlite-файла через VACUUM INTO.
// Интервал задается строкой time.ParseDuration в конфиге.
type BackupService struct {
	dbPath string
	cfg    config.BackupConfig
	logger zerolog.Logger
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		dbPath: dbPath,
		cfg:    cfg,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

func (s *BackupService) interval() time.Duration {
	if s.cfg.Schedule == "" {
		return defaultBackupInterval
	}
	d, err := time.ParseDuration(s.cfg.Schedule)
	if err != nil {
		s.logger.Warn().Err(err).Str("schedule", s.cfg.Schedule).Msg("Не удалось разобрать интервал бэкапа, беру сутки")
		return defaultBackupInterval
	}
	return d
}

func (s *BackupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("Бэкапы выключены")
		return
	}

	interval := s.interval()
	s.logger.Info().Dur("interval", interval).Msg("Бэкапы запущены")

	// Первая копия сразу, дальше по тикеру.
	if err := s.BackupOnce(); err != nil {
		s.logger.Error().Err(err).Msg("Стартовый бэкап не удался")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.BackupOnce(); err != nil {
				s.logger.Error().Err(err).Msg("Бэкап не удался")
			}
			s.prune()
		}
	}
}

// BackupOnce снимает одну копию БД в каталог хранения.
func (s *BackupService) BackupOnce() error {
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("svidanie_%s.db", time.Now().Format("20060102_150405"))
	dst := filepath.Join(s.cfg.StoragePath, name)

	src, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer src.Close()

	// VACUUM INTO дает консистентный снимок при живых писателях.
	if _, err := src.Exec(fmt.Sprintf("VACUUM INTO '%s'", dst)); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO не сработал, копирую файл напрямую")
		return s.copyFile(dst)
	}

	s.logger.Info().Str("path", dst).Msg("Бэкап готов")
	return nil
}

// copyFile — запасной путь; не атомарен для sqlite при параллельной записи.
func (s *BackupService) copyFile(dst string) error {
	in, err := os.Open(s.dbPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	s.logger.Info().Str("path", dst).Msg("Бэкап скопирован файлом")
	return nil
}

// prune удаляет копии старше retention_days.
func (s *BackupService) prune() {
	if s.cfg.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Не удалось прочитать каталог бэкапов")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", e.Name()).Msg("Удаляю старый бэкап")
			os.Remove(filepath.Join(s.cfg.StoragePath, e.Name()))
		}
	}
}
