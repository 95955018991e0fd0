package settings

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/asistencia/core"
)

var (
	toleranceRangeText = fmt.Sprintf("must be between 0 and %d minutes", MaxMinutes)

	lateThresholdTag  = "latethreshold"
	lateThresholdText = fmt.Sprintf("must be between the attendance tolerance and %d minutes", MaxMinutes)
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(updateSettingsStructValidation, UpdateSettings{})
	core.RegisterCustomTranslation(validate, translator, lateThresholdTag, lateThresholdText)
}

// updateSettingsStructValidation keeps the late threshold at or above the tolerance.
func updateSettingsStructValidation(sl validator.StructLevel) {
	us, ok := sl.Current().Interface().(UpdateSettings)
	if !ok || us.AttendanceToleranceMin == nil || us.LateThresholdMin == nil {
		return
	}
	if *us.LateThresholdMin < *us.AttendanceToleranceMin {
		sl.ReportError(*us.LateThresholdMin, "late_threshold_min", "LateThresholdMin", lateThresholdTag, "")
	}
}
