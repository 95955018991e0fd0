package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core/attendance"
)

const recordColumns = "session_id, student_id, student_name, status, updated_at, updated_by"

type recordRow struct {
	SessionID   string    `db:"session_id"`
	StudentID   string    `db:"student_id"`
	StudentName string    `db:"student_name"`
	Status      string    `db:"status"`
	UpdatedAt   time.Time `db:"updated_at"`
	UpdatedBy   string    `db:"updated_by"`
}

func toRecordRow(r attendance.Record) recordRow {
	return recordRow{
		SessionID:   r.SessionID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		Status:      string(r.Status),
		UpdatedAt:   r.UpdatedAt.UTC(),
		UpdatedBy:   r.UpdatedBy,
	}
}

func (r recordRow) record() attendance.Record {
	return attendance.Record{
		SessionID:   r.SessionID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		Status:      attendance.Status(r.Status),
		UpdatedAt:   r.UpdatedAt,
		UpdatedBy:   r.UpdatedBy,
	}
}

type recordRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*recordRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) UpsertRecord(ctx context.Context, r attendance.Record) (attendance.Record, error) {
	q := `INSERT INTO attendance_record (` + recordColumns + `)
		VALUES (:session_id, :student_id, :student_name, :status, :updated_at, :updated_by)
		ON CONFLICT (session_id, student_id) DO UPDATE SET
			student_name = EXCLUDED.student_name,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
		RETURNING ` + recordColumns
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "preparing record upsert")
	}
	defer func() { _ = stmt.Close() }()

	var row recordRow
	if err = stmt.GetContext(ctx, &row, toRecordRow(r)); err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting record")
	}
	return row.record(), nil
}

func (repo *recordRepository) SeedRecords(ctx context.Context, records []attendance.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning seed transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO attendance_record (` + recordColumns + `)
		VALUES (:session_id, :student_id, :student_name, :status, :updated_at, :updated_by)
		ON CONFLICT (session_id, student_id) DO NOTHING`
	stmt, err := tx.PrepareNamedContext(ctx, q)
	if err != nil {
		return 0, errors.Wrap(err, "preparing seed")
	}
	defer func() { _ = stmt.Close() }()

	var inserted int64
	for _, r := range records {
		res, err := stmt.ExecContext(ctx, toRecordRow(r))
		if err != nil {
			return 0, errors.Wrapf(err, "seeding %s", r.StudentID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "seeding")
		}
		inserted += n
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing seed")
	}
	return int(inserted), nil
}

func (repo *recordRepository) ListRecords(ctx context.Context, sessionID string) ([]attendance.Record, error) {
	var rows []recordRow
	q := "SELECT " + recordColumns + " FROM attendance_record WHERE session_id = $1 ORDER BY student_name, student_id"
	if err := repo.db.SelectContext(ctx, &rows, q, sessionID); err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}
