package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/asistencia/core/schedule"
)

type slotRepository struct {
	db *gorm.DB
}

var _ schedule.Repository = (*slotRepository)(nil)

func NewSlotRepository(db *gorm.DB) schedule.Repository {
	return &slotRepository{db: db}
}

func slots(models []slotModel) []schedule.Slot {
	res := make([]schedule.Slot, 0, len(models))
	for _, m := range models {
		res = append(res, m.slot())
	}
	return res
}

func (repo *slotRepository) ListSlotsByWeekday(ctx context.Context, weekday time.Weekday) ([]schedule.Slot, error) {
	var models []slotModel
	if err := repo.db.WithContext(ctx).Where("weekday = ?", int(weekday)).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "selecting slots by weekday")
	}
	return slots(models), nil
}

func (repo *slotRepository) QuerySlots(ctx context.Context, filter schedule.QueryFilter) ([]schedule.Slot, error) {
	tx := repo.db.WithContext(ctx)
	if filter.RoomCode != "" {
		tx = tx.Where("lower(room_code) = lower(?)", filter.RoomCode)
	}
	if filter.Weekday != nil {
		tx = tx.Where("weekday = ?", *filter.Weekday)
	}
	var models []slotModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "querying slots")
	}
	return slots(models), nil
}

func (repo *slotRepository) GetSlot(ctx context.Context, id string) (schedule.Slot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Slot{}, schedule.ErrNotFound
	}
	var m slotModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return schedule.Slot{}, trapNotFound(err, schedule.ErrNotFound, "getting slot")
	}
	return m.slot(), nil
}

func (repo *slotRepository) CreateSlot(ctx context.Context, slot schedule.Slot) (schedule.Slot, error) {
	m := toSlotModel(slot)
	if err := repo.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return schedule.Slot{}, schedule.ErrSlotExists
		}
		return schedule.Slot{}, errors.Wrap(err, "inserting slot")
	}
	return m.slot(), nil
}

func (repo *slotRepository) DeleteSlotsByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := repo.db.WithContext(ctx).Where("id IN ?", ids).Delete(&slotModel{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "deleting slots")
	}
	return int(res.RowsAffected), nil
}
