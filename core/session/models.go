package session

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/settings"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
	StatusBlocked    Status = "blocked"
)

var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusFinished, StatusBlocked}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal statuses are never left.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusBlocked
}

// Arrival classifies the scanning teacher's delay against the planned start.
type Arrival string

const (
	ArrivalOnTime  Arrival = "on_time"
	ArrivalLate    Arrival = "late"
	ArrivalTooLate Arrival = "too_late"
)

// Classify: delay <= tolerance is on time (early arrivals included),
// tolerance < delay <= late threshold is late, anything beyond is too late.
func Classify(delayMin int, st settings.Settings) Arrival {
	switch {
	case delayMin <= st.AttendanceToleranceMin:
		return ArrivalOnTime
	case delayMin <= st.LateThresholdMin:
		return ArrivalLate
	default:
		return ArrivalTooLate
	}
}

// DelayMinutes is the whole minutes elapsed from plannedStart to now, seconds truncated.
// Negative when early.
func DelayMinutes(now, plannedStart time.Time) int {
	return int(now.Truncate(time.Minute).Sub(plannedStart) / time.Minute)
}

// Session is one concrete occurrence of a slot on a date, or a manual ad-hoc class.
type Session struct {
	ID              string           `json:"id"`
	Code            string           `json:"session_code"`
	RoomCode        string           `json:"room_code"`
	Date            time.Time        `json:"-"`
	Subject         string           `json:"subject"`
	GroupName       string           `json:"group_name"`
	StartPlanned    *clock.TimeOfDay `json:"start_planned"`
	EndPlanned      *clock.TimeOfDay `json:"end_planned"`
	Status          Status           `json:"status"`
	ArrivalStatus   *Arrival         `json:"arrival_status"`
	ArrivalDelayMin *int             `json:"arrival_delay_min"`
	StartedAt       *time.Time       `json:"started_at"`
	EndedAt         *time.Time       `json:"ended_at"`
	IsManual        bool             `json:"is_manual"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	type alias Session
	return json.Marshal(struct {
		alias
		Date string `json:"session_date"`
	}{alias(s), clock.FormatDate(s.Date)})
}

// EditingWindowOpen reports whether roll-call edits other than "Justificado" are allowed at now:
// always for manual sessions, otherwise within ±tolerance of the planned start.
func (s Session) EditingWindowOpen(now time.Time, st settings.Settings) bool {
	if s.IsManual {
		return true
	}
	if s.StartPlanned == nil {
		return false
	}
	start := clock.At(s.Date, *s.StartPlanned, now.Location())
	delay := DelayMinutes(now, start)
	return delay >= -st.AttendanceToleranceMin && delay <= st.AttendanceToleranceMin
}

// MergeStart applies a start transition to an existing row: planning fields are refreshed
// (blank incoming values keep the stored ones), while started_at, the arrival classification
// and any status reached by an earlier start are kept.
// Repositories implement the same rule in their upsert statements.
func MergeStart(existing, incoming Session) Session {
	merged := existing
	if incoming.Subject != "" {
		merged.Subject = incoming.Subject
	}
	if incoming.GroupName != "" {
		merged.GroupName = incoming.GroupName
	}
	if incoming.StartPlanned != nil {
		merged.StartPlanned = incoming.StartPlanned
	}
	if incoming.EndPlanned != nil {
		merged.EndPlanned = incoming.EndPlanned
	}
	merged.UpdatedAt = incoming.UpdatedAt
	if existing.StartedAt == nil {
		merged.StartedAt = incoming.StartedAt
		merged.Status = incoming.Status
		merged.ArrivalStatus = incoming.ArrivalStatus
		merged.ArrivalDelayMin = incoming.ArrivalDelayMin
	}
	return merged
}

// Student is a roster entry used to seed the attendance ledger.
type Student struct {
	ID   string `json:"student_id" validate:"required,notblank"`
	Name string `json:"student_name" validate:"required,notblank"`
}

// StartSession contains information needed to start (or re-start) a session.
type StartSession struct {
	SessionCode string    `json:"session_code" validate:"required"`
	RoomCode    string    `json:"room_code"`
	Subject     string    `json:"subject"`
	GroupName   string    `json:"group_name"`
	EndTime     string    `json:"end_time" validate:"omitempty,timeofday"`
	Roster      []Student `json:"roster" validate:"omitempty,dive"`
	By          string    `json:"-"`
}

func (ss *StartSession) Validate(validate *validator.Validate) error {
	ss.SessionCode = core.CleanString(ss.SessionCode)
	ss.RoomCode = core.CleanString(ss.RoomCode)
	ss.Subject = core.CleanString(ss.Subject)
	ss.GroupName = core.CleanString(ss.GroupName)
	ss.EndTime = core.CleanString(ss.EndTime)
	return validate.Struct(ss)
}

// hasPlanningOverrides tells whether the caller supplied everything the catalog would.
func (ss StartSession) hasPlanningOverrides() bool {
	return ss.Subject != "" && ss.GroupName != "" && ss.EndTime != ""
}

// StartResult is what a start transition reports back.
type StartResult struct {
	Session         Session  `json:"session"`
	Status          Status   `json:"status"`
	ArrivalStatus   *Arrival `json:"arrival_status"`
	ArrivalDelayMin *int     `json:"arrival_delay_min"`
}

// ManualSession contains information needed to open an ad-hoc session.
type ManualSession struct {
	RoomCode  string    `json:"room_code" validate:"required,roomcode"`
	Subject   string    `json:"subject" validate:"required,notblank"`
	GroupName string    `json:"group_name" validate:"required,notblank"`
	Roster    []Student `json:"roster" validate:"omitempty,dive"`
	By        string    `json:"-"`
}

func (ms *ManualSession) Validate(validate *validator.Validate) error {
	ms.RoomCode = core.CleanString(ms.RoomCode)
	ms.Subject = core.CleanString(ms.Subject)
	ms.GroupName = core.CleanString(ms.GroupName)
	return validate.Struct(ms)
}

type QueryFilter struct {
	Date     string   `query:"date"` // YYYY-MM-DD
	RoomCode string   `query:"room"`
	Statuses []Status `query:"status"`

	date time.Time
}

// Clean normalizes the filter and parses its date in loc.
func (qf *QueryFilter) Clean(loc *time.Location) error {
	qf.RoomCode = core.CleanString(qf.RoomCode)
	qf.Date = core.CleanString(qf.Date)
	if qf.Date != "" {
		d, ok := clock.ParseDate(qf.Date, loc)
		if !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be a date such as 2025-01-31"})
		}
		qf.date = d
	}
	for _, st := range qf.Statuses {
		if !st.Valid() {
			return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "unknown status " + string(st)})
		}
	}
	return nil
}

// DateValue is the parsed Date; zero when the filter has none.
func (qf QueryFilter) DateValue() time.Time { return qf.date }

// Matches applies the filter in memory.
func (qf QueryFilter) Matches(s Session) bool {
	if !qf.date.IsZero() && clock.DateCode(s.Date) != clock.DateCode(qf.date) {
		return false
	}
	if qf.RoomCode != "" && !core.SameFold(s.RoomCode, qf.RoomCode) {
		return false
	}
	if len(qf.Statuses) > 0 {
		for _, st := range qf.Statuses {
			if s.Status == st {
				return true
			}
		}
		return false
	}
	return true
}
