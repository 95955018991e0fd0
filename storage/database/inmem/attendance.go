package inmemdb

import (
	"context"

	"github.com/trezcool/asistencia/core/attendance"
)

type recordRepository struct {
	db *recordTable
}

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &recordRepository{db: db.record}
}

func (repo *recordRepository) UpsertRecord(_ context.Context, r attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[recordKey{r.SessionID, r.StudentID}] = &r
	return r, nil
}

func (repo *recordRepository) SeedRecords(_ context.Context, records []attendance.Record) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, r := range records {
		r := r
		key := recordKey{r.SessionID, r.StudentID}
		if _, exists := repo.db.table[key]; exists {
			continue
		}
		repo.db.table[key] = &r
		n++
	}
	return n, nil
}

func (repo *recordRepository) ListRecords(_ context.Context, sessionID string) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]attendance.Record, 0)
	for key, r := range repo.db.table {
		if key.sessionID == sessionID {
			records = append(records, *r)
		}
	}
	attendance.SortRecords(records)
	return records, nil
}
