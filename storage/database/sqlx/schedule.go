package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/schedule"
)

const slotColumns = "id, room_code, weekday, subject, group_name, start_time, end_time, created_at"

type slotRow struct {
	ID        string          `db:"id"`
	RoomCode  string          `db:"room_code"`
	Weekday   int16           `db:"weekday"`
	Subject   string          `db:"subject"`
	GroupName string          `db:"group_name"`
	StartTime clock.TimeOfDay `db:"start_time"`
	EndTime   clock.TimeOfDay `db:"end_time"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r slotRow) slot() schedule.Slot {
	return schedule.Slot{
		ID:        r.ID,
		RoomCode:  r.RoomCode,
		Weekday:   time.Weekday(r.Weekday),
		Subject:   r.Subject,
		GroupName: r.GroupName,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		CreatedAt: r.CreatedAt,
	}
}

func slots(rows []slotRow) []schedule.Slot {
	res := make([]schedule.Slot, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.slot())
	}
	return res
}

type slotRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*slotRepository)(nil) // interface compliance check

func NewSlotRepository(db *sqlx.DB) schedule.Repository {
	return &slotRepository{db: db}
}

func (repo *slotRepository) ListSlotsByWeekday(ctx context.Context, weekday time.Weekday) ([]schedule.Slot, error) {
	var rows []slotRow
	q := "SELECT " + slotColumns + " FROM schedule_slot WHERE weekday = $1"
	if err := repo.db.SelectContext(ctx, &rows, q, int(weekday)); err != nil {
		return nil, errors.Wrap(err, "selecting slots by weekday")
	}
	return slots(rows), nil
}

func (repo *slotRepository) QuerySlots(ctx context.Context, filter schedule.QueryFilter) ([]schedule.Slot, error) {
	q := "SELECT " + slotColumns + " FROM schedule_slot WHERE true"
	var args []interface{}
	if filter.RoomCode != "" {
		args = append(args, filter.RoomCode)
		q += " AND lower(room_code) = lower(?)"
	}
	if filter.Weekday != nil {
		args = append(args, *filter.Weekday)
		q += " AND weekday = ?"
	}

	var rows []slotRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying slots")
	}
	return slots(rows), nil
}

func (repo *slotRepository) GetSlot(ctx context.Context, id string) (schedule.Slot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Slot{}, schedule.ErrNotFound
	}
	var row slotRow
	q := "SELECT " + slotColumns + " FROM schedule_slot WHERE id = $1"
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return schedule.Slot{}, trapNoRowsErr(err, schedule.ErrNotFound, "getting slot")
	}
	return row.slot(), nil
}

func (repo *slotRepository) CreateSlot(ctx context.Context, slot schedule.Slot) (schedule.Slot, error) {
	row := slotRow{
		ID:        slot.ID,
		RoomCode:  slot.RoomCode,
		Weekday:   int16(slot.Weekday),
		Subject:   slot.Subject,
		GroupName: slot.GroupName,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		CreatedAt: slot.CreatedAt.UTC(),
	}
	q := `INSERT INTO schedule_slot (` + slotColumns + `)
		VALUES (:id, :room_code, :weekday, :subject, :group_name, :start_time, :end_time, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return schedule.Slot{}, schedule.ErrSlotExists
		}
		return schedule.Slot{}, errors.Wrap(err, "inserting slot")
	}
	return row.slot(), nil
}

func (repo *slotRepository) DeleteSlotsByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In("DELETE FROM schedule_slot WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building slot deletion")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting slots")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting slots")
	}
	return int(n), nil
}
