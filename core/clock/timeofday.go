package clock

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed in minutes since midnight (0..1439).
type TimeOfDay int

// NewTimeOfDay returns ok=false when hour or minute is out of range.
func NewTimeOfDay(hour, minute int) (TimeOfDay, bool) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}
	return TimeOfDay(hour*60 + minute), true
}

// ParseTimeOfDay accepts "HHMM", "HH:MM", "H:MM" and "HH:MM:SS" (seconds are dropped).
// Malformed input yields ok=false; it never panics.
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	s = strings.TrimSpace(s)
	var hh, mm string

	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		if len(s) != 4 {
			return 0, false
		}
		hh, mm = s[:2], s[2:]
	case 2, 3:
		hh, mm = parts[0], parts[1]
	default:
		return 0, false
	}

	if len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return 0, false
	}
	h, ok := atoi(hh)
	if !ok {
		return 0, false
	}
	m, ok := atoi(mm)
	if !ok {
		return 0, false
	}
	if len(parts) == 3 {
		sec, ok := atoi(parts[2])
		if !ok || len(parts[2]) != 2 || sec > 59 {
			return 0, false
		}
	}
	return NewTimeOfDay(h, m)
}

// MustParseTimeOfDay panics on malformed input. Reserved for literals.
func MustParseTimeOfDay(s string) TimeOfDay {
	tod, ok := ParseTimeOfDay(s)
	if !ok {
		panic(fmt.Sprintf("clock: malformed time of day %q", s))
	}
	return tod
}

// atoi only accepts ASCII digits, unlike strconv.Atoi which allows signs.
func atoi(s string) (int, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }
func (t TimeOfDay) Valid() bool { return t >= 0 && t < minutesPerDay }

// String returns the canonical "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Compact returns the "HHMM" form used inside session codes.
func (t TimeOfDay) Compact() string {
	return fmt.Sprintf("%02d%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "time of day must be a string")
	}
	tod, ok := ParseTimeOfDay(s)
	if !ok {
		return errors.Errorf("malformed time of day %q", s)
	}
	*t = tod
	return nil
}

// Value stores the minutes since midnight.
func (t TimeOfDay) Value() (driver.Value, error) {
	return int64(t), nil
}

// Scan reads minutes since midnight, or a textual time of day.
func (t *TimeOfDay) Scan(v interface{}) error {
	switch x := v.(type) {
	case int64:
		*t = TimeOfDay(x)
	case int32:
		*t = TimeOfDay(x)
	case int:
		*t = TimeOfDay(x)
	case []byte:
		return t.scanString(string(x))
	case string:
		return t.scanString(x)
	default:
		return errors.Errorf("clock: cannot scan %T into TimeOfDay", v)
	}
	if !t.Valid() {
		return errors.Errorf("clock: time of day %d out of range", int(*t))
	}
	return nil
}

func (t *TimeOfDay) scanString(s string) error {
	tod, ok := ParseTimeOfDay(s)
	if !ok {
		return errors.Errorf("clock: malformed time of day %q", s)
	}
	*t = tod
	return nil
}
