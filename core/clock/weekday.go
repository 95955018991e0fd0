package clock

import (
	"strconv"
	"strings"
	"time"
)

// Weekdays use Go's domain: 0=Sunday .. 6=Saturday.
var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "domingo": time.Sunday, "dom": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "lunes": time.Monday, "lun": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "martes": time.Tuesday, "mar": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "miercoles": time.Wednesday, "miércoles": time.Wednesday, "mie": time.Wednesday, "mié": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "jueves": time.Thursday, "jue": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "viernes": time.Friday, "vie": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "sabado": time.Saturday, "sábado": time.Saturday, "sab": time.Saturday, "sáb": time.Saturday,
}

// ParseWeekday accepts "0".."6" or an english/spanish day name, full or short,
// in any case and with an optional trailing dot ("Lun.").
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return WeekdayFromInt(n)
	}
	wd, ok := weekdayNames[s]
	return wd, ok
}

// WeekdayFromInt validates a 0..6 weekday index.
func WeekdayFromInt(n int) (time.Weekday, bool) {
	if n < 0 || n > 6 {
		return 0, false
	}
	return time.Weekday(n), true
}

// Weekday returns the local weekday of c.Now().
func Weekday(c Clock) time.Weekday {
	return c.Now().Weekday()
}
