package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/asistencia/core/settings"
)

const settingsRowID = 1

type settingsRepository struct {
	db *gorm.DB
}

var _ settings.Repository = (*settingsRepository)(nil)

func NewSettingsRepository(db *gorm.DB) settings.Repository {
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) GetSettings(ctx context.Context) (settings.Settings, error) {
	var m settingsModel
	if err := repo.db.WithContext(ctx).Where("id = ?", settingsRowID).Take(&m).Error; err != nil {
		return settings.Settings{}, trapNotFound(err, settings.ErrNotFound, "getting settings")
	}
	return m.settings(), nil
}

func (repo *settingsRepository) SaveSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	m := settingsModel{
		ID:                     settingsRowID,
		AttendanceToleranceMin: s.AttendanceToleranceMin,
		LateThresholdMin:       s.LateThresholdMin,
		UpdatedAt:              s.UpdatedAt.UTC(),
	}
	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"attendance_tolerance_min", "late_threshold_min", "updated_at"}),
		}).
		Create(&m).Error
	if err != nil {
		return settings.Settings{}, errors.Wrap(err, "saving settings")
	}
	return m.settings(), nil
}
