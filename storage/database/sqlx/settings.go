package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core/settings"
)

type settingsRow struct {
	AttendanceToleranceMin int       `db:"attendance_tolerance_min"`
	LateThresholdMin       int       `db:"late_threshold_min"`
	UpdatedAt              time.Time `db:"updated_at"`
}

type settingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) settings.Repository {
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) GetSettings(ctx context.Context) (settings.Settings, error) {
	var row settingsRow
	q := "SELECT attendance_tolerance_min, late_threshold_min, updated_at FROM settings WHERE id = 1"
	if err := repo.db.GetContext(ctx, &row, q); err != nil {
		return settings.Settings{}, trapNoRowsErr(err, settings.ErrNotFound, "getting settings")
	}
	return settings.Settings(row), nil
}

func (repo *settingsRepository) SaveSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	q := `INSERT INTO settings (id, attendance_tolerance_min, late_threshold_min, updated_at)
		VALUES (1, :attendance_tolerance_min, :late_threshold_min, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			attendance_tolerance_min = EXCLUDED.attendance_tolerance_min,
			late_threshold_min = EXCLUDED.late_threshold_min,
			updated_at = EXCLUDED.updated_at`
	row := settingsRow{s.AttendanceToleranceMin, s.LateThresholdMin, s.UpdatedAt.UTC()}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return settings.Settings{}, errors.Wrap(err, "saving settings")
	}
	return settings.Settings(row), nil
}
