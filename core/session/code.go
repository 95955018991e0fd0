package session

import (
	"regexp"
	"strings"
	"time"

	"github.com/trezcool/asistencia/core/clock"
)

const manualMarker = "manual"

// codeRegex strips the trailing -YYYYMMDD-(HHMM|manual); whatever precedes it is the room,
// which may itself contain hyphens.
var codeRegex = regexp.MustCompile(`^(.+)-(\d{8})-(\d{4}|` + manualMarker + `)$`)

// Code is the decoded form of a session code "<room>-<YYYYMMDD>-<HHMM|manual>".
// Codes are decoded once at the boundary and passed around in this form.
type Code struct {
	Room   string
	Date   time.Time // local midnight
	Start  clock.TimeOfDay
	Manual bool
}

// NewCode builds the code of a scheduled session.
func NewCode(room string, date time.Time, start clock.TimeOfDay) Code {
	return Code{Room: strings.TrimSpace(room), Date: clock.Date(date), Start: start}
}

// NewManualCode builds the code of an ad-hoc session held in room on date.
func NewManualCode(room string, date time.Time) Code {
	return Code{Room: strings.TrimSpace(room), Date: clock.Date(date), Manual: true}
}

// ParseCode decodes s, interpreting its date in loc.
func ParseCode(s string, loc *time.Location) (Code, error) {
	m := codeRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return Code{}, ErrInvalidCode
	}
	date, ok := clock.ParseDateCode(m[2], loc)
	if !ok {
		return Code{}, ErrInvalidCode
	}
	if m[3] == manualMarker {
		return NewManualCode(m[1], date), nil
	}
	start, ok := clock.ParseTimeOfDay(m[3])
	if !ok {
		return Code{}, ErrInvalidCode
	}
	return NewCode(m[1], date, start), nil
}

func (c Code) String() string {
	suffix := manualMarker
	if !c.Manual {
		suffix = c.Start.Compact()
	}
	return c.Room + "-" + clock.DateCode(c.Date) + "-" + suffix
}

// PlannedStart is the scheduled start instant. Meaningless for manual codes.
func (c Code) PlannedStart() time.Time {
	return clock.At(c.Date, c.Start, c.Date.Location())
}
