package database

import (
	"context"
	"fmt"
	"time"

	"svidanie/internal/models"
)

// SyncServices обновляет каталог услуг из конфигурации и перестраивает кэш.
func (db *DB) SyncServices(ctx context.Context, services []models.Service) error {
	query := `INSERT INTO services (id, name, description, category, price, duration, currency, is_active, sort_order, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  description = excluded.description,
                  category = excluded.category,
                  price = excluded.price,
                  duration = excluded.duration,
                  currency = excluded.currency,
                  is_active = excluded.is_active,
                  sort_order = excluded.sort_order,
                  updated_at = excluded.updated_at`

	now := time.Now()
	for _, s := range services {
		if _, err := db.ExecContext(ctx, query,
			s.ID, s.Name, s.Description, s.Category, s.Price, s.Duration,
			s.Currency, s.IsActive, s.SortOrder, now, now,
		); err != nil {
			return fmt.Errorf("failed to sync service %d: %w", s.ID, err)
		}
	}

	db.mu.Lock()
	db.servicesCache = make(map[int64]models.Service, len(services))
	db.sortedServices = services
	for _, s := range services {
		db.servicesCache[s.ID] = s
	}
	db.mu.Unlock()

	db.log.Info().Int("count", len(services)).Msg("Каталог услуг синхронизирован")
	return nil
}

// GetService отдает услугу из кэша.
func (db *DB) GetService(id int64) (models.Service, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, ok := db.servicesCache[id]
	return s, ok
}

func (db *DB) GetActiveServices() []models.Service {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var services []models.Service
	for _, s := range db.sortedServices {
		if s.IsActive {
			services = append(services, s)
		}
	}
	return services
}
