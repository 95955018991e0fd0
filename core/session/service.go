package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/settings"
)

var (
	// errors
	ErrBadRequest = core.NewValidationError(
		errors.New("bad_request"),
		core.FieldError{Field: "room", Error: "this field is required"},
	)
	ErrInvalidCode = core.NewValidationError(
		errors.New("invalid session code"),
		core.FieldError{Field: "session_code", Error: sessionCodeText},
	)
	ErrNotFound          = core.NewNotFoundError(errors.New("session_not_found"))
	ErrSlotNotFound      = schedule.ErrNotFound
	ErrInvalidTransition = core.NewConflictError(errors.New("invalid_transition"))
)

type (
	// Repository is the Session Registry's storage.
	// Implementations must make every write a single atomic statement keyed on the session code.
	Repository interface {
		// CreateSessionIfAbsent inserts s unless its code exists, and returns the stored row either way.
		CreateSessionIfAbsent(ctx context.Context, s Session) (Session, error)
		// UpsertSessionStart inserts s, or merges it into the existing row following MergeStart.
		UpsertSessionStart(ctx context.Context, s Session) (Session, error)
		// FinishSession moves an in_progress session to finished.
		// Returns ErrNotFound for unknown codes and ErrInvalidTransition for any other status.
		FinishSession(ctx context.Context, code string, endedAt time.Time) (Session, error)
		GetSessionByCode(ctx context.Context, code string) (Session, error)
		QuerySessions(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Session, error)
	}

	// Ledger seeds the roll call of a session that just went in progress.
	Ledger interface {
		SeedRoster(ctx context.Context, sess Session, roster []Student, by string) (int, error)
	}

	// FinishNotifier is told about sessions that were just finished.
	FinishNotifier interface {
		SessionFinished(ctx context.Context, sess Session)
	}

	Service struct {
		repo     Repository
		slots    *schedule.Service
		settings *settings.Service
		clock    clock.Clock
		logger   core.Logger
		metrics  core.Metrics
		ledger   Ledger
		notifier FinishNotifier
	}

	Option func(*Service)
)

func WithMetrics(m core.Metrics) Option { return func(svc *Service) { svc.metrics = m } }

func NewService(
	repo Repository,
	slots *schedule.Service,
	st *settings.Service,
	clk clock.Clock,
	logger core.Logger,
	opts ...Option,
) *Service {
	svc := &Service{
		repo:     repo,
		slots:    slots,
		settings: st,
		clock:    clk,
		logger:   logger,
		metrics:  core.NopMetrics,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SetLedger and SetFinishNotifier wire collaborators that themselves depend on this service.
func (svc *Service) SetLedger(l Ledger) { svc.ledger = l }

func (svc *Service) SetFinishNotifier(n FinishNotifier) { svc.notifier = n }

func (svc *Service) location() *time.Location {
	return svc.clock.Now().Location()
}

// ParseCode decodes a session code in the school's timezone.
func (svc *Service) ParseCode(s string) (Code, error) {
	return ParseCode(s, svc.location())
}

// Resolve finds the class happening in room right now.
// Catalog or settings failures come back as *core.UpstreamError, never as a "no match".
func (svc *Service) Resolve(ctx context.Context, room string) (Resolution, error) {
	res, err := svc.resolve(ctx, room)
	if err != nil {
		svc.metrics.ObserveResolution(OutcomeError)
		return Resolution{}, err
	}
	svc.metrics.ObserveResolution(res.Outcome())
	return res, nil
}

func (svc *Service) resolve(ctx context.Context, room string) (Resolution, error) {
	if core.CleanString(room) == "" {
		return Resolution{}, ErrBadRequest
	}
	now := svc.clock.Now()

	st, err := svc.settings.Get(ctx)
	if err != nil {
		return Resolution{}, core.NewUpstreamError("settings", err)
	}
	slots, err := svc.slots.ListForWeekday(ctx, now.Weekday())
	if err != nil {
		return Resolution{}, core.NewUpstreamError("schedule", err)
	}
	return Resolve(room, now, slots, st)
}

// Open records the resolved session as not_started, unless it already exists.
// Only an open (found, not blocked) resolution can be recorded.
func (svc *Service) Open(ctx context.Context, res Resolution) (Session, error) {
	if !res.Found || res.Blocked || res.Slot == nil {
		return Session{}, ErrInvalidTransition
	}
	now := svc.clock.Now()
	start, end := res.Slot.StartTime, res.Slot.EndTime
	sess := Session{
		ID:           uuid.New().String(),
		Code:         res.SessionCode,
		RoomCode:     res.RoomCode,
		Date:         res.Code.Date,
		Subject:      res.Slot.Subject,
		GroupName:    res.Slot.GroupName,
		StartPlanned: &start,
		EndPlanned:   &end,
		Status:       StatusNotStarted,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
	stored, err := svc.repo.CreateSessionIfAbsent(ctx, sess)
	if err != nil {
		return Session{}, errors.Wrap(err, "opening session")
	}
	return stored, nil
}

// Start transitions a session to in_progress (or blocked when the teacher is too late).
// Safe to repeat: a second start never moves started_at nor re-classifies the arrival.
// Expects a validated StartSession.
func (svc *Service) Start(ctx context.Context, ss StartSession) (StartResult, error) {
	code, err := svc.ParseCode(ss.SessionCode)
	if err != nil {
		return StartResult{}, err
	}
	if ss.RoomCode != "" && !core.SameFold(ss.RoomCode, code.Room) {
		return StartResult{}, core.NewValidationError(
			errors.New("room does not match session code"),
			core.FieldError{Field: "room_code", Error: roomMismatchText},
		)
	}

	now := svc.clock.Now()
	sess := Session{
		ID:        uuid.New().String(),
		Code:      code.String(),
		RoomCode:  code.Room,
		Date:      code.Date,
		Subject:   ss.Subject,
		GroupName: ss.GroupName,
		Status:    StatusInProgress,
		StartedAt: &now,
		IsManual:  code.Manual,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}

	if !code.Manual {
		if err := svc.planScheduled(ctx, &sess, code, ss, now); err != nil {
			return StartResult{}, err
		}
	}

	stored, err := svc.repo.UpsertSessionStart(ctx, sess)
	if err != nil {
		return StartResult{}, errors.Wrap(err, "starting session")
	}
	svc.metrics.ObserveTransition(string(stored.Status))
	if stored.Status == StatusBlocked {
		svc.logger.Info(fmt.Sprintf("session %s blocked: teacher arrived %d min late", stored.Code, derefInt(stored.ArrivalDelayMin)))
	}

	svc.seedRoster(ctx, stored, ss.Roster, ss.By)
	return StartResult{
		Session:         stored,
		Status:          stored.Status,
		ArrivalStatus:   stored.ArrivalStatus,
		ArrivalDelayMin: stored.ArrivalDelayMin,
	}, nil
}

// planScheduled fills the planning fields from the catalog (or the overrides) and classifies the arrival.
func (svc *Service) planScheduled(ctx context.Context, sess *Session, code Code, ss StartSession, now time.Time) error {
	st, err := svc.settings.Get(ctx)
	if err != nil {
		return core.NewUpstreamError("settings", err)
	}

	start := code.Start
	sess.StartPlanned = &start
	slot, err := svc.slots.FindSlot(ctx, code.Room, code.Date.Weekday(), code.Start)
	switch {
	case err == nil:
		end := slot.EndTime
		// one row per class whatever the caller's spelling of the room
		sess.Code = NewCode(slot.RoomCode, code.Date, code.Start).String()
		sess.RoomCode = slot.RoomCode
		sess.EndPlanned = &end
		if sess.Subject == "" {
			sess.Subject = slot.Subject
		}
		if sess.GroupName == "" {
			sess.GroupName = slot.GroupName
		}
		if ss.EndTime != "" {
			end, _ = clock.ParseTimeOfDay(ss.EndTime)
			sess.EndPlanned = &end
		}
	case errors.Is(err, schedule.ErrNotFound):
		if !ss.hasPlanningOverrides() {
			return ErrSlotNotFound
		}
		end, ok := clock.ParseTimeOfDay(ss.EndTime)
		if !ok {
			return core.NewValidationError(errors.New("invalid end time"), core.FieldError{Field: "end_time", Error: "must be a time such as 09:30"})
		}
		sess.EndPlanned = &end
	default:
		return core.NewUpstreamError("schedule", err)
	}

	delay := DelayMinutes(now, code.PlannedStart())
	arrival := Classify(delay, st)
	sess.ArrivalStatus = &arrival
	sess.ArrivalDelayMin = &delay
	if arrival == ArrivalTooLate {
		sess.Status = StatusBlocked
	}
	return nil
}

func (svc *Service) seedRoster(ctx context.Context, sess Session, roster []Student, by string) {
	if svc.ledger == nil || len(roster) == 0 || sess.Status != StatusInProgress {
		return
	}
	if _, err := svc.ledger.SeedRoster(ctx, sess, roster, by); err != nil {
		svc.logger.Error(fmt.Sprintf("session.seedRoster(%s): %v", sess.Code, err), err)
	}
}

// CreateManual opens today's ad-hoc session for a room, directly in progress.
// Expects a validated ManualSession.
func (svc *Service) CreateManual(ctx context.Context, ms ManualSession) (Session, error) {
	now := svc.clock.Now()
	code := NewManualCode(ms.RoomCode, now)
	sess := Session{
		ID:        uuid.New().String(),
		Code:      code.String(),
		RoomCode:  code.Room,
		Date:      code.Date,
		Subject:   ms.Subject,
		GroupName: ms.GroupName,
		Status:    StatusInProgress,
		StartedAt: &now,
		IsManual:  true,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	stored, err := svc.repo.UpsertSessionStart(ctx, sess)
	if err != nil {
		return Session{}, errors.Wrap(err, "creating manual session")
	}
	svc.metrics.ObserveTransition(string(stored.Status))
	svc.seedRoster(ctx, stored, ms.Roster, ms.By)
	return stored, nil
}

// Finish closes an in_progress session. Unknown codes are never created.
func (svc *Service) Finish(ctx context.Context, codeStr string) (Session, error) {
	code, err := svc.ParseCode(codeStr)
	if err != nil {
		return Session{}, err
	}
	sess, err := svc.repo.FinishSession(ctx, code.String(), svc.clock.Now())
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
			return Session{}, err
		}
		return Session{}, errors.Wrap(err, "finishing session")
	}
	svc.metrics.ObserveTransition(string(sess.Status))
	if svc.notifier != nil {
		svc.notifier.SessionFinished(ctx, sess)
	}
	return sess, nil
}

func (svc *Service) Get(ctx context.Context, codeStr string) (Session, error) {
	code, err := svc.ParseCode(codeStr)
	if err != nil {
		return Session{}, err
	}
	return svc.repo.GetSessionByCode(ctx, code.String())
}

// List returns the sessions matching filter, most recent first unless ordering says otherwise.
func (svc *Service) List(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Session, error) {
	if err := filter.Clean(svc.location()); err != nil {
		return nil, err
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "session_date"}, {Field: "start_planned", Ascending: true}}
	}
	sessions, err := svc.repo.QuerySessions(ctx, filter, ordering...)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	return sessions, nil
}

// EditingWindowOpen tells whether the roll call of sess can still be edited right now.
func (svc *Service) EditingWindowOpen(ctx context.Context, sess Session) (bool, error) {
	if sess.IsManual {
		return true, nil
	}
	st, err := svc.settings.Get(ctx)
	if err != nil {
		return false, core.NewUpstreamError("settings", err)
	}
	return sess.EditingWindowOpen(svc.clock.Now(), st), nil
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
