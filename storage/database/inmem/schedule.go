package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/schedule"
)

type slotRepository struct {
	db *slotTable
}

var _ schedule.Repository = (*slotRepository)(nil)

func NewSlotRepository(db *DB) schedule.Repository {
	return &slotRepository{db: db.slot}
}

func (repo *slotRepository) query(match func(schedule.Slot) bool) []schedule.Slot {
	slots := make([]schedule.Slot, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		if match(*s) {
			slots = append(slots, *s)
		}
	}
	return slots
}

func (repo *slotRepository) ListSlotsByWeekday(_ context.Context, weekday time.Weekday) ([]schedule.Slot, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(func(s schedule.Slot) bool { return s.Weekday == weekday }), nil
}

func (repo *slotRepository) QuerySlots(_ context.Context, filter schedule.QueryFilter) ([]schedule.Slot, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(filter.Matches), nil
}

func (repo *slotRepository) GetSlot(_ context.Context, id string) (schedule.Slot, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return schedule.Slot{}, schedule.ErrNotFound
}

func (repo *slotRepository) CreateSlot(_ context.Context, slot schedule.Slot) (schedule.Slot, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, s := range repo.db.table {
		if s.Weekday == slot.Weekday && s.StartTime == slot.StartTime && core.SameFold(s.RoomCode, slot.RoomCode) {
			return schedule.Slot{}, schedule.ErrSlotExists
		}
	}
	repo.db.table[slot.ID] = &slot
	return slot, nil
}

func (repo *slotRepository) DeleteSlotsByID(_ context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}
