package gormrepos

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/asistencia/core/attendance"
)

var recordKey = []clause.Column{{Name: "session_id"}, {Name: "student_id"}}

type recordRepository struct {
	db *gorm.DB
}

var _ attendance.Repository = (*recordRepository)(nil)

func NewAttendanceRepository(db *gorm.DB) attendance.Repository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) UpsertRecord(ctx context.Context, r attendance.Record) (attendance.Record, error) {
	m := toRecordModel(r)
	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   recordKey,
			DoUpdates: clause.AssignmentColumns([]string{"student_name", "status", "updated_at", "updated_by"}),
		}).
		Create(&m).Error
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting record")
	}
	return m.record(), nil
}

func (repo *recordRepository) SeedRecords(ctx context.Context, records []attendance.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	var inserted int64
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range records {
			m := toRecordModel(r)
			res := tx.Clauses(clause.OnConflict{Columns: recordKey, DoNothing: true}).Create(&m)
			if res.Error != nil {
				return errors.Wrapf(res.Error, "seeding %s", r.StudentID)
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

func (repo *recordRepository) ListRecords(ctx context.Context, sessionID string) ([]attendance.Record, error) {
	var models []recordModel
	err := repo.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("student_name, student_id").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	records := make([]attendance.Record, 0, len(models))
	for _, m := range models {
		records = append(records, m.record())
	}
	return records, nil
}
