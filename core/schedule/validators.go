package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/clock"
)

var (
	timeOfDayTag  = "timeofday"
	timeOfDayText = "must be a time of day such as 08:00, 0800 or 08:00:00"

	endAfterStartTag  = "endafterstart"
	endAfterStartText = "the class must end after it starts"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(timeOfDayTag, timeOfDayValidation)
	core.RegisterCustomTranslation(validate, translator, timeOfDayTag, timeOfDayText)

	validate.RegisterStructValidation(newSlotStructValidation, NewSlot{})
	core.RegisterCustomTranslation(validate, translator, endAfterStartTag, endAfterStartText)
}

// Custom Validators

func timeOfDayValidation(fl validator.FieldLevel) bool {
	_, ok := clock.ParseTimeOfDay(fl.Field().String())
	return ok
}

// newSlotStructValidation checks that a slot ends after it starts.
func newSlotStructValidation(sl validator.StructLevel) {
	ns, ok := sl.Current().Interface().(NewSlot)
	if !ok {
		return
	}
	start, okStart := clock.ParseTimeOfDay(ns.StartTime)
	end, okEnd := clock.ParseTimeOfDay(ns.EndTime)
	if okStart && okEnd && end <= start {
		sl.ReportError(ns.EndTime, "end_time", "EndTime", endAfterStartTag, "")
	}
}
