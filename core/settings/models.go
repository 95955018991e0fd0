package settings

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
)

const (
	DefaultToleranceMin     = 15
	DefaultLateThresholdMin = 30
	MaxMinutes              = 240
)

// Settings holds the two global attendance tunables.
// It is passed by value into the engine; nothing reads it from global state.
type Settings struct {
	AttendanceToleranceMin int       `json:"attendance_tolerance_min"`
	LateThresholdMin       int       `json:"late_threshold_min"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Default is used when no settings were ever saved.
func Default() Settings {
	return Settings{
		AttendanceToleranceMin: DefaultToleranceMin,
		LateThresholdMin:       DefaultLateThresholdMin,
	}
}

// Check enforces 0 <= tolerance <= late threshold <= MaxMinutes.
func (s Settings) Check() error {
	var flds []core.FieldError
	if s.AttendanceToleranceMin < 0 || s.AttendanceToleranceMin > MaxMinutes {
		flds = append(flds, core.FieldError{Field: "attendance_tolerance_min", Error: toleranceRangeText})
	}
	if s.LateThresholdMin < s.AttendanceToleranceMin || s.LateThresholdMin > MaxMinutes {
		flds = append(flds, core.FieldError{Field: "late_threshold_min", Error: lateThresholdText})
	}
	if flds != nil {
		return core.NewValidationError(errors.New("invalid settings"), flds...)
	}
	return nil
}

// UpdateSettings defines what information may be provided to modify the Settings.
type UpdateSettings struct {
	AttendanceToleranceMin *int `json:"attendance_tolerance_min" validate:"required,min=0,max=240"`
	LateThresholdMin       *int `json:"late_threshold_min" validate:"required,min=0,max=240"`
}

func (us *UpdateSettings) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}
