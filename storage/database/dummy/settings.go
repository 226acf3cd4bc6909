package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/settings"
)

type settingsRepository struct {
	db *DB
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *DB) settings.Repository {
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) GetPreferences(_ context.Context, userID string, _ ...core.DBExecutor) (settings.Preferences, error) {
	repo.db.preferences.RLock()
	defer repo.db.preferences.RUnlock()

	if p, ok := repo.db.preferences.rows[userID]; ok {
		return p, nil
	}
	return settings.Preferences{}, settings.ErrNotFound
}

func (repo *settingsRepository) SavePreferences(_ context.Context, p settings.Preferences, _ ...core.DBExecutor) (settings.Preferences, error) {
	repo.db.preferences.Lock()
	defer repo.db.preferences.Unlock()

	repo.db.preferences.rows[p.UserID] = p
	return p, nil
}

func (repo *settingsRepository) DeletePreferences(_ context.Context, userID string, _ ...core.DBExecutor) error {
	repo.db.preferences.Lock()
	defer repo.db.preferences.Unlock()

	if _, ok := repo.db.preferences.rows[userID]; !ok {
		return settings.ErrNotFound
	}
	delete(repo.db.preferences.rows, userID)
	return nil
}
