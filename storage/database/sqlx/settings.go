package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/settings"
)

const preferencesColumns = `user_id, theme, language, notifications, dashboard_layout, updated_at`

type preferencesRow struct {
	UserID          string    `db:"user_id"`
	Theme           string    `db:"theme"`
	Language        string    `db:"language"`
	Notifications   null.JSON `db:"notifications"`
	DashboardLayout null.JSON `db:"dashboard_layout"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func toPreferencesRow(p settings.Preferences) (preferencesRow, error) {
	row := preferencesRow{
		UserID:    p.UserID,
		Theme:     p.Theme,
		Language:  p.Language,
		UpdatedAt: p.UpdatedAt.UTC(),
	}
	layout := p.DashboardLayout
	if layout == nil {
		layout = map[string]interface{}{}
	}
	if err := row.Notifications.Marshal(p.Notifications); err != nil {
		return preferencesRow{}, errors.Wrap(err, "encoding notification preferences")
	}
	if err := row.DashboardLayout.Marshal(layout); err != nil {
		return preferencesRow{}, errors.Wrap(err, "encoding dashboard layout")
	}
	return row, nil
}

func (row preferencesRow) preferences() (settings.Preferences, error) {
	p := settings.Preferences{
		UserID:          row.UserID,
		Theme:           row.Theme,
		Language:        row.Language,
		DashboardLayout: map[string]interface{}{},
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if err := row.Notifications.Unmarshal(&p.Notifications); err != nil {
		return settings.Preferences{}, errors.Wrap(err, "decoding notification preferences")
	}
	if row.DashboardLayout.Valid {
		if err := row.DashboardLayout.Unmarshal(&p.DashboardLayout); err != nil {
			return settings.Preferences{}, errors.Wrap(err, "decoding dashboard layout")
		}
	}
	return p, nil
}

type settingsRepository struct {
	repository
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *sqlx.DB) settings.Repository {
	return &settingsRepository{repository{db: db}}
}

func (repo *settingsRepository) GetPreferences(ctx context.Context, userID string, exec ...core.DBExecutor) (settings.Preferences, error) {
	var row preferencesRow
	if err := get(ctx, repo.ext(exec), &row, `SELECT `+preferencesColumns+` FROM preferences WHERE user_id = ?`, userID); err != nil {
		return settings.Preferences{}, trapNoRows(err, settings.ErrNotFound, "getting preferences")
	}
	return row.preferences()
}

func (repo *settingsRepository) SavePreferences(ctx context.Context, p settings.Preferences, exec ...core.DBExecutor) (settings.Preferences, error) {
	row, err := toPreferencesRow(p)
	if err != nil {
		return settings.Preferences{}, err
	}
	err = namedExec(ctx, repo.ext(exec), `
		INSERT INTO preferences (`+preferencesColumns+`)
		VALUES (:user_id, :theme, :language, :notifications, :dashboard_layout, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			theme = EXCLUDED.theme, language = EXCLUDED.language, notifications = EXCLUDED.notifications,
			dashboard_layout = EXCLUDED.dashboard_layout, updated_at = EXCLUDED.updated_at`,
		row)
	if err != nil {
		return settings.Preferences{}, errors.Wrap(err, "saving preferences")
	}
	return p, nil
}

func (repo *settingsRepository) DeletePreferences(ctx context.Context, userID string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.ext(exec), `DELETE FROM preferences WHERE user_id = ?`, userID)
	if err != nil {
		return errors.Wrap(err, "deleting preferences")
	}
	if n == 0 {
		return settings.ErrNotFound
	}
	return nil
}
