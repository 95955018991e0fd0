package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/session"
)

const sessionColumns = `id, session_code, room_code, session_date, subject, group_name, start_planned, end_planned,
	status, arrival_status, arrival_delay_min, started_at, ended_at, is_manual, created_at, updated_at`

const sessionValues = `:id, :session_code, :room_code, :session_date, :subject, :group_name, :start_planned, :end_planned,
	:status, :arrival_status, :arrival_delay_min, :started_at, :ended_at, :is_manual, :created_at, :updated_at`

// sessionOrderColumns maps API ordering fields to columns.
var sessionOrderColumns = map[string]string{
	"session_date":  "session_date",
	"start_planned": "start_planned",
	"room_code":     "room_code",
	"status":        "status",
	"created_at":    "created_at",
}

type sessionRow struct {
	ID              string      `db:"id"`
	Code            string      `db:"session_code"`
	RoomCode        string      `db:"room_code"`
	Date            time.Time   `db:"session_date"`
	Subject         string      `db:"subject"`
	GroupName       string      `db:"group_name"`
	StartPlanned    null.Int16  `db:"start_planned"`
	EndPlanned      null.Int16  `db:"end_planned"`
	Status          string      `db:"status"`
	ArrivalStatus   null.String `db:"arrival_status"`
	ArrivalDelayMin null.Int    `db:"arrival_delay_min"`
	StartedAt       null.Time   `db:"started_at"`
	EndedAt         null.Time   `db:"ended_at"`
	IsManual        bool        `db:"is_manual"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

// sessionArgs binds s for a named statement. The date travels as YYYY-MM-DD so that no zone shifts it.
func sessionArgs(s session.Session) map[string]interface{} {
	args := map[string]interface{}{
		"id":                s.ID,
		"session_code":      s.Code,
		"room_code":         s.RoomCode,
		"session_date":      clock.FormatDate(s.Date),
		"subject":           s.Subject,
		"group_name":        s.GroupName,
		"start_planned":     null.Int16{},
		"end_planned":       null.Int16{},
		"status":            string(s.Status),
		"arrival_status":    null.String{},
		"arrival_delay_min": null.IntFromPtr(s.ArrivalDelayMin),
		"started_at":        null.Time{},
		"ended_at":          null.Time{},
		"is_manual":         s.IsManual,
		"created_at":        s.CreatedAt.UTC(),
		"updated_at":        s.UpdatedAt.UTC(),
	}
	if s.StartPlanned != nil {
		args["start_planned"] = null.Int16From(int16(*s.StartPlanned))
	}
	if s.EndPlanned != nil {
		args["end_planned"] = null.Int16From(int16(*s.EndPlanned))
	}
	if s.ArrivalStatus != nil {
		args["arrival_status"] = null.StringFrom(string(*s.ArrivalStatus))
	}
	if s.StartedAt != nil {
		args["started_at"] = null.TimeFrom(s.StartedAt.UTC())
	}
	if s.EndedAt != nil {
		args["ended_at"] = null.TimeFrom(s.EndedAt.UTC())
	}
	return args
}

func (r sessionRow) session() session.Session {
	s := session.Session{
		ID:              r.ID,
		Code:            r.Code,
		RoomCode:        r.RoomCode,
		Date:            r.Date,
		Subject:         r.Subject,
		GroupName:       r.GroupName,
		Status:          session.Status(r.Status),
		ArrivalDelayMin: r.ArrivalDelayMin.Ptr(),
		StartedAt:       r.StartedAt.Ptr(),
		EndedAt:         r.EndedAt.Ptr(),
		IsManual:        r.IsManual,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.StartPlanned.Valid {
		tod := clock.TimeOfDay(r.StartPlanned.Int16)
		s.StartPlanned = &tod
	}
	if r.EndPlanned.Valid {
		tod := clock.TimeOfDay(r.EndPlanned.Int16)
		s.EndPlanned = &tod
	}
	if r.ArrivalStatus.Valid {
		a := session.Arrival(r.ArrivalStatus.String)
		s.ArrivalStatus = &a
	}
	return s
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) namedGet(ctx context.Context, q string, arg interface{}) (session.Session, error) {
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return session.Session{}, err
	}
	defer func() { _ = stmt.Close() }()

	var row sessionRow
	if err = stmt.GetContext(ctx, &row, arg); err != nil {
		return session.Session{}, err
	}
	return row.session(), nil
}

func (repo *sessionRepository) CreateSessionIfAbsent(ctx context.Context, s session.Session) (session.Session, error) {
	q := `INSERT INTO class_session (` + sessionColumns + `) VALUES (` + sessionValues + `)
		ON CONFLICT (lower(session_code)) DO NOTHING`
	if _, err := repo.db.NamedExecContext(ctx, q, sessionArgs(s)); err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return repo.GetSessionByCode(ctx, s.Code)
}

// UpsertSessionStart applies session.MergeStart in one statement. SET expressions read the
// row as it was before the update, so started_at decides for every preserved column.
// Codes are unique case-insensitively: the first spelling stored is kept.
func (repo *sessionRepository) UpsertSessionStart(ctx context.Context, s session.Session) (session.Session, error) {
	q := `INSERT INTO class_session (` + sessionColumns + `) VALUES (` + sessionValues + `)
		ON CONFLICT (lower(session_code)) DO UPDATE SET
			subject = COALESCE(NULLIF(EXCLUDED.subject, ''), class_session.subject),
			group_name = COALESCE(NULLIF(EXCLUDED.group_name, ''), class_session.group_name),
			start_planned = COALESCE(EXCLUDED.start_planned, class_session.start_planned),
			end_planned = COALESCE(EXCLUDED.end_planned, class_session.end_planned),
			status = CASE WHEN class_session.started_at IS NULL THEN EXCLUDED.status ELSE class_session.status END,
			arrival_status = CASE WHEN class_session.started_at IS NULL THEN EXCLUDED.arrival_status ELSE class_session.arrival_status END,
			arrival_delay_min = CASE WHEN class_session.started_at IS NULL THEN EXCLUDED.arrival_delay_min ELSE class_session.arrival_delay_min END,
			started_at = COALESCE(class_session.started_at, EXCLUDED.started_at),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + sessionColumns
	sess, err := repo.namedGet(ctx, q, sessionArgs(s))
	if err != nil {
		return session.Session{}, errors.Wrap(err, "upserting session")
	}
	return sess, nil
}

func (repo *sessionRepository) FinishSession(ctx context.Context, code string, endedAt time.Time) (session.Session, error) {
	q := `UPDATE class_session SET status = $2, ended_at = $3, updated_at = $3
		WHERE lower(session_code) = lower($1) AND status = $4
		RETURNING ` + sessionColumns
	var row sessionRow
	err := repo.db.GetContext(ctx, &row, q, code, string(session.StatusFinished), endedAt.UTC(), string(session.StatusInProgress))
	switch {
	case err == nil:
		return row.session(), nil
	case !errors.Is(err, sql.ErrNoRows):
		return session.Session{}, errors.Wrap(err, "finishing session")
	}

	// nothing updated: either there is no such session or it is not in progress
	if _, err = repo.GetSessionByCode(ctx, code); err != nil {
		return session.Session{}, err
	}
	return session.Session{}, session.ErrInvalidTransition
}

func (repo *sessionRepository) GetSessionByCode(ctx context.Context, code string) (session.Session, error) {
	var row sessionRow
	q := "SELECT " + sessionColumns + " FROM class_session WHERE lower(session_code) = lower($1)"
	if err := repo.db.GetContext(ctx, &row, q, code); err != nil {
		return session.Session{}, trapNoRowsErr(err, session.ErrNotFound, "getting session")
	}
	return row.session(), nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, filter session.QueryFilter, ordering ...core.DBOrdering) ([]session.Session, error) {
	var (
		where []string
		args  []interface{}
	)
	if d := filter.DateValue(); !d.IsZero() {
		where = append(where, "session_date = ?")
		args = append(args, clock.FormatDate(d))
	}
	if filter.RoomCode != "" {
		where = append(where, "lower(room_code) = lower(?)")
		args = append(args, filter.RoomCode)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		where = append(where, "status IN (?)")
		args = append(args, statuses)
	}

	q := "SELECT " + sessionColumns + " FROM class_session"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	orderBy := core.OrderByClause(ordering, sessionOrderColumns)
	if orderBy != "" {
		orderBy += ", "
	}
	q += " ORDER BY " + orderBy + "session_code ASC"

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building session query")
	}
	var rows []sessionRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]session.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.session())
	}
	return sessions, nil
}
