package gormrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/session"
)

// sessionOrderColumns maps API ordering fields to columns.
var sessionOrderColumns = map[string]string{
	"session_date":  "session_date",
	"start_planned": "start_planned",
	"room_code":     "room_code",
	"status":        "status",
	"created_at":    "created_at",
}

// sessionCodeConflict targets the case-insensitive unique index on session codes.
var sessionCodeConflict = []clause.Column{{Name: "lower(session_code)", Raw: true}}

// keepIfStarted leaves col untouched once the stored row has started.
func keepIfStarted(col string) clause.Expr {
	return gorm.Expr("CASE WHEN class_session.started_at IS NULL THEN excluded." + col + " ELSE class_session." + col + " END")
}

type sessionRepository struct {
	db *gorm.DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *gorm.DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSessionIfAbsent(ctx context.Context, s session.Session) (session.Session, error) {
	m := toSessionModel(s)
	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: sessionCodeConflict, DoNothing: true}).
		Create(&m).Error
	if err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return repo.GetSessionByCode(ctx, s.Code)
}

// UpsertSessionStart applies session.MergeStart in one statement; both engines evaluate
// the SET expressions against the row as it was before the update.
func (repo *sessionRepository) UpsertSessionStart(ctx context.Context, s session.Session) (session.Session, error) {
	m := toSessionModel(s)
	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: sessionCodeConflict,
			DoUpdates: clause.Assignments(map[string]interface{}{
				"subject":           gorm.Expr("COALESCE(NULLIF(excluded.subject, ''), class_session.subject)"),
				"group_name":        gorm.Expr("COALESCE(NULLIF(excluded.group_name, ''), class_session.group_name)"),
				"start_planned":     gorm.Expr("COALESCE(excluded.start_planned, class_session.start_planned)"),
				"end_planned":       gorm.Expr("COALESCE(excluded.end_planned, class_session.end_planned)"),
				"status":            keepIfStarted("status"),
				"arrival_status":    keepIfStarted("arrival_status"),
				"arrival_delay_min": keepIfStarted("arrival_delay_min"),
				"started_at":        gorm.Expr("COALESCE(class_session.started_at, excluded.started_at)"),
				"updated_at":        gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(&m).Error
	if err != nil {
		return session.Session{}, errors.Wrap(err, "upserting session")
	}
	return repo.GetSessionByCode(ctx, s.Code)
}

func (repo *sessionRepository) FinishSession(ctx context.Context, code string, endedAt time.Time) (session.Session, error) {
	endedAt = endedAt.UTC()
	res := repo.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("lower(session_code) = lower(?) AND status = ?", code, string(session.StatusInProgress)).
		Updates(map[string]interface{}{
			"status":     string(session.StatusFinished),
			"ended_at":   endedAt,
			"updated_at": endedAt,
		})
	if res.Error != nil {
		return session.Session{}, errors.Wrap(res.Error, "finishing session")
	}

	sess, err := repo.GetSessionByCode(ctx, code)
	if err != nil {
		return session.Session{}, err
	}
	if res.RowsAffected == 0 {
		return session.Session{}, session.ErrInvalidTransition
	}
	return sess, nil
}

func (repo *sessionRepository) GetSessionByCode(ctx context.Context, code string) (session.Session, error) {
	var m sessionModel
	if err := repo.db.WithContext(ctx).Where("lower(session_code) = lower(?)", code).Take(&m).Error; err != nil {
		return session.Session{}, trapNotFound(err, session.ErrNotFound, "getting session")
	}
	return m.session(), nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, filter session.QueryFilter, ordering ...core.DBOrdering) ([]session.Session, error) {
	tx := repo.db.WithContext(ctx)
	if d := filter.DateValue(); !d.IsZero() {
		tx = tx.Where("session_date = ?", dateOnly(d))
	}
	if filter.RoomCode != "" {
		tx = tx.Where("lower(room_code) = lower(?)", filter.RoomCode)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		tx = tx.Where("status IN ?", statuses)
	}
	if orderBy := core.OrderByClause(ordering, sessionOrderColumns); orderBy != "" {
		tx = tx.Order(orderBy)
	}

	var models []sessionModel
	if err := tx.Order("session_code ASC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]session.Session, 0, len(models))
	for _, m := range models {
		sessions = append(sessions, m.session())
	}
	return sessions, nil
}
