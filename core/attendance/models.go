package attendance

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/session"
)

type Status string

const (
	StatusPresent Status = "Presente"
	StatusLate    Status = "Tarde"
	StatusAbsent  Status = "Ausente"
	StatusExcused Status = "Justificado"
)

var Statuses = []Status{StatusPresent, StatusLate, StatusAbsent, StatusExcused}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Record is one student's roll-call status in one session.
type Record struct {
	SessionID   string    `json:"-"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Status      Status    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
	UpdatedBy   string    `json:"updated_by"`
}

// SortRecords orders records by student name, then id.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].StudentName != records[j].StudentName {
			return records[i].StudentName < records[j].StudentName
		}
		return records[i].StudentID < records[j].StudentID
	})
}

// MarkAttendance contains information needed to mark one student.
type MarkAttendance struct {
	StudentID   string `json:"student_id" validate:"required,notblank"`
	StudentName string `json:"student_name" validate:"required,notblank"`
	Status      Status `json:"status" validate:"required,attendance_status"`
}

// Validate reports invalid_status when the status is unknown, missing_fields otherwise.
func (ma *MarkAttendance) Validate(validate *validator.Validate) error {
	ma.StudentID = core.CleanString(ma.StudentID)
	ma.StudentName = core.CleanString(ma.StudentName)
	ma.Status = Status(core.CleanString(string(ma.Status)))
	err := validate.Struct(ma)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]core.FieldError, 0, len(verrs))
	cause := ErrMissingFields
	for _, fe := range verrs {
		if fe.Tag() == statusTag {
			cause = ErrInvalidStatus
			fields = append(fields, core.FieldError{Field: fe.Field(), Error: statusText})
			continue
		}
		fields = append(fields, core.FieldError{Field: fe.Field(), Error: "this field is required"})
	}
	return core.NewValidationError(cause, fields...)
}

// Total counts the records holding a status.
type Total struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// Totals counts records per status, in the canonical status order.
func Totals(records []Record) []Total {
	counts := make(map[Status]int, len(Statuses))
	for _, r := range records {
		counts[r.Status]++
	}
	totals := make([]Total, 0, len(Statuses))
	for _, st := range Statuses {
		totals = append(totals, Total{Status: st, Count: counts[st]})
	}
	return totals
}

// Sheet is a session's roll call as shown to the teacher.
type Sheet struct {
	Session    session.Session `json:"session"`
	WindowOpen bool            `json:"window_open"`
	Records    []Record        `json:"records"`
	Totals     []Total         `json:"totals"`
}
