package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db.session}
}

// codeKey folds a session code: codes are unique case-insensitively, and the first spelling stored is kept.
func codeKey(code string) string { return strings.ToLower(code) }

func (repo *sessionRepository) CreateSessionIfAbsent(_ context.Context, s session.Session) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if existing, ok := repo.db.table[codeKey(s.Code)]; ok {
		return *existing, nil
	}
	repo.db.table[codeKey(s.Code)] = &s
	return s, nil
}

func (repo *sessionRepository) UpsertSessionStart(_ context.Context, s session.Session) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if existing, ok := repo.db.table[codeKey(s.Code)]; ok {
		merged := session.MergeStart(*existing, s)
		repo.db.table[codeKey(s.Code)] = &merged
		return merged, nil
	}
	repo.db.table[codeKey(s.Code)] = &s
	return s, nil
}

func (repo *sessionRepository) FinishSession(_ context.Context, code string, endedAt time.Time) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.table[codeKey(code)]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	if s.Status != session.StatusInProgress {
		return session.Session{}, session.ErrInvalidTransition
	}
	s.Status = session.StatusFinished
	s.EndedAt = &endedAt
	s.UpdatedAt = endedAt.UTC()
	return *s, nil
}

func (repo *sessionRepository) GetSessionByCode(_ context.Context, code string) (session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[codeKey(code)]; ok {
		return *s, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) QuerySessions(_ context.Context, filter session.QueryFilter, ordering ...core.DBOrdering) ([]session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := make([]session.Session, 0)
	for _, s := range repo.db.table {
		if filter.Matches(*s) {
			sessions = append(sessions, *s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return lessSession(sessions[i], sessions[j], ordering) })
	return sessions, nil
}

// lessSession compares on each ordering in turn, then on the session code.
func lessSession(a, b session.Session, ordering []core.DBOrdering) bool {
	for _, o := range ordering {
		c := compareSessionField(a, b, o.Field)
		if c == 0 {
			continue
		}
		if o.Ascending {
			return c < 0
		}
		return c > 0
	}
	return a.Code < b.Code
}

func compareSessionField(a, b session.Session, field string) int {
	switch field {
	case "session_date":
		return compareTime(a.Date, b.Date)
	case "start_planned":
		return compareInt(startOf(a), startOf(b))
	case "room_code":
		return compareString(a.RoomCode, b.RoomCode)
	case "status":
		return compareString(string(a.Status), string(b.Status))
	case "created_at":
		return compareTime(a.CreatedAt, b.CreatedAt)
	}
	return 0
}

func startOf(s session.Session) int {
	if s.StartPlanned == nil {
		return -1
	}
	return int(*s.StartPlanned)
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
