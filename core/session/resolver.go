package session

import (
	"strings"
	"time"

	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/settings"
)

// resolution outcomes, as reported to metrics
const (
	OutcomeOpen     = "open"
	OutcomeBlocked  = "blocked"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Resolution is the answer to "which class is happening in this room right now".
// Found with Blocked means a slot matched but the teacher is too late to start it.
type Resolution struct {
	Found           bool           `json:"found"`
	Blocked         bool           `json:"blocked"`
	RoomCode        string         `json:"room_code"`
	SessionCode     string         `json:"session_code"`
	Code            Code           `json:"-"`
	Slot            *schedule.Slot `json:"slot,omitempty"`
	ArrivalStatus   Arrival        `json:"arrival_status,omitempty"`
	ArrivalDelayMin int            `json:"arrival_delay_min"`
	ResolvedAt      time.Time      `json:"resolved_at"`
}

func (r Resolution) Outcome() string {
	switch {
	case !r.Found:
		return OutcomeNotFound
	case r.Blocked:
		return OutcomeBlocked
	default:
		return OutcomeOpen
	}
}

// Resolve picks the slot of room active at now among slots. It is a pure function:
// slots must be the catalog entries for now's weekday (others are ignored) and now must
// already be in the school's timezone.
//
// A slot is active when now falls within [start - tolerance, end + tolerance], bounds included.
// When several are active, the earliest start wins, then group, subject and id.
func Resolve(room string, now time.Time, slots []schedule.Slot, st settings.Settings) (Resolution, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return Resolution{}, ErrBadRequest
	}

	minute := clock.MinuteOfDay(now)
	var candidates []schedule.Slot
	for _, s := range slots {
		if s.Weekday != now.Weekday() || !s.InRoom(room) {
			continue
		}
		if minute >= int(s.StartTime)-st.AttendanceToleranceMin && minute <= int(s.EndTime)+st.AttendanceToleranceMin {
			candidates = append(candidates, s)
		}
	}

	if len(candidates) == 0 {
		code := NewManualCode(room, now)
		return Resolution{
			RoomCode:    code.Room,
			SessionCode: code.String(),
			Code:        code,
			ResolvedAt:  now,
		}, nil
	}

	schedule.Sort(candidates)
	slot := candidates[0]
	delay := minute - int(slot.StartTime)
	arrival := Classify(delay, st)
	code := NewCode(slot.RoomCode, now, slot.StartTime)
	return Resolution{
		Found:           true,
		Blocked:         arrival == ArrivalTooLate,
		RoomCode:        slot.RoomCode,
		SessionCode:     code.String(),
		Code:            code,
		Slot:            &slot,
		ArrivalStatus:   arrival,
		ArrivalDelayMin: delay,
		ResolvedAt:      now,
	}, nil
}
