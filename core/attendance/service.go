package attendance

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/session"
)

var (
	// errors
	ErrMissingFields   = errors.New("missing_fields")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrRollCallBlocked = core.NewConflictError(errors.New("roll_call_blocked"))
	ErrWindowClosed    = core.NewConflictError(errors.New("window_closed"))
)

type (
	// Repository is the Attendance Ledger's storage.
	Repository interface {
		// UpsertRecord inserts or overwrites the (session, student) record; last write wins.
		UpsertRecord(ctx context.Context, r Record) (Record, error)
		// SeedRecords inserts the records whose student is not in the session yet and
		// returns how many were inserted. Existing records are left untouched.
		SeedRecords(ctx context.Context, records []Record) (int, error)
		ListRecords(ctx context.Context, sessionID string) ([]Record, error)
	}

	Service struct {
		repo     Repository
		sessions *session.Service
		clock    clock.Clock
		metrics  core.Metrics
	}
)

func NewService(repo Repository, sessions *session.Service, clk clock.Clock, metrics core.Metrics) *Service {
	if metrics == nil {
		metrics = core.NopMetrics
	}
	return &Service{repo: repo, sessions: sessions, clock: clk, metrics: metrics}
}

// Mark records one student's status in the session identified by code.
// Expects a validated MarkAttendance.
func (svc *Service) Mark(ctx context.Context, code string, ma MarkAttendance, by string) (Record, error) {
	records, err := svc.MarkMany(ctx, code, []MarkAttendance{ma}, by)
	if err != nil {
		return Record{}, err
	}
	return records[0], nil
}

// MarkMany applies several marks to the same session. The session checks run once,
// before anything is written.
func (svc *Service) MarkMany(ctx context.Context, code string, marks []MarkAttendance, by string) ([]Record, error) {
	sess, err := svc.sessions.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if sess.Status == session.StatusBlocked {
		return nil, ErrRollCallBlocked
	}
	if !sess.IsManual && needsWindow(marks) {
		open, err := svc.sessions.EditingWindowOpen(ctx, sess)
		if err != nil {
			return nil, err
		}
		if !open {
			return nil, ErrWindowClosed
		}
	}

	now := svc.clock.Now().UTC()
	records := make([]Record, 0, len(marks))
	for _, ma := range marks {
		rec, err := svc.repo.UpsertRecord(ctx, Record{
			SessionID:   sess.ID,
			StudentID:   ma.StudentID,
			StudentName: ma.StudentName,
			Status:      ma.Status,
			UpdatedAt:   now,
			UpdatedBy:   by,
		})
		if err != nil {
			return records, errors.Wrapf(err, "marking %s in %s", ma.StudentID, sess.Code)
		}
		svc.metrics.ObserveMark(string(rec.Status))
		records = append(records, rec)
	}
	return records, nil
}

// needsWindow is false only when every mark is "Justificado", which is allowed at any time.
func needsWindow(marks []MarkAttendance) bool {
	for _, ma := range marks {
		if ma.Status != StatusExcused {
			return true
		}
	}
	return false
}

// Seed completes the roll call of a session with every missing student marked "Ausente".
func (svc *Service) Seed(ctx context.Context, sessionID string, roster []session.Student, by string) (int, error) {
	if len(roster) == 0 {
		return 0, nil
	}
	now := svc.clock.Now().UTC()
	records := make([]Record, 0, len(roster))
	seen := make(map[string]struct{}, len(roster))
	for _, st := range roster {
		id := core.CleanString(st.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		records = append(records, Record{
			SessionID:   sessionID,
			StudentID:   id,
			StudentName: core.CleanString(st.Name),
			Status:      StatusAbsent,
			UpdatedAt:   now,
			UpdatedBy:   by,
		})
	}
	n, err := svc.repo.SeedRecords(ctx, records)
	if err != nil {
		return 0, errors.Wrap(err, "seeding roster")
	}
	return n, nil
}

// SeedRoster makes the service usable as the session registry's ledger.
func (svc *Service) SeedRoster(ctx context.Context, sess session.Session, roster []session.Student, by string) (int, error) {
	return svc.Seed(ctx, sess.ID, roster, by)
}

// Records returns the ledger of a stored session ordered by student name.
func (svc *Service) Records(ctx context.Context, sess session.Session) ([]Record, error) {
	records, err := svc.repo.ListRecords(ctx, sess.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing attendance records")
	}
	SortRecords(records)
	return records, nil
}

// List returns the roll call of the session identified by code.
func (svc *Service) List(ctx context.Context, code string) (Sheet, error) {
	sess, err := svc.sessions.Get(ctx, code)
	if err != nil {
		return Sheet{}, err
	}
	records, err := svc.Records(ctx, sess)
	if err != nil {
		return Sheet{}, err
	}
	open, err := svc.sessions.EditingWindowOpen(ctx, sess)
	if err != nil {
		return Sheet{}, err
	}
	return Sheet{
		Session:    sess,
		WindowOpen: open && sess.Status != session.StatusBlocked,
		Records:    records,
		Totals:     Totals(records),
	}, nil
}
