package inmemdb

import (
	"context"

	"github.com/trezcool/asistencia/core/settings"
)

type settingsRepository struct {
	db *settingsTable
}

func NewSettingsRepository(db *DB) settings.Repository {
	return &settingsRepository{db: db.settings}
}

func (repo *settingsRepository) GetSettings(_ context.Context) (settings.Settings, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.row == nil {
		return settings.Settings{}, settings.ErrNotFound
	}
	return *repo.db.row, nil
}

func (repo *settingsRepository) SaveSettings(_ context.Context, s settings.Settings) (settings.Settings, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.row = &s
	return s, nil
}
