package schedule

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/clock"
)

// Slot is one recurring weekly class: a subject taught to a group in a room.
type Slot struct {
	ID        string          `json:"id"`
	RoomCode  string          `json:"room_code"`
	Weekday   time.Weekday    `json:"weekday"`
	Subject   string          `json:"subject"`
	GroupName string          `json:"group_name"`
	StartTime clock.TimeOfDay `json:"start_time"`
	EndTime   clock.TimeOfDay `json:"end_time"`
	CreatedAt time.Time       `json:"created_at"`
}

// InRoom matches room codes the way scans do: trimmed and case-insensitive.
func (s Slot) InRoom(room string) bool {
	return core.SameFold(s.RoomCode, room)
}

// Sort orders slots by start time, then group name, then subject, then ID.
// This is the tie-break used whenever several slots could match.
func Sort(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.GroupName != b.GroupName {
			return a.GroupName < b.GroupName
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.ID < b.ID
	})
}

// NewSlot contains information needed to create a new Slot.
type NewSlot struct {
	RoomCode  string `json:"room_code" validate:"required,roomcode"`
	Weekday   *int   `json:"weekday" validate:"required,min=0,max=6"`
	Subject   string `json:"subject" validate:"required,notblank"`
	GroupName string `json:"group_name" validate:"required,notblank"`
	StartTime string `json:"start_time" validate:"required,timeofday"`
	EndTime   string `json:"end_time" validate:"required,timeofday"`
}

func (ns *NewSlot) Validate(validate *validator.Validate) error {
	ns.RoomCode = core.CleanString(ns.RoomCode)
	ns.Subject = core.CleanString(ns.Subject)
	ns.GroupName = core.CleanString(ns.GroupName)
	ns.StartTime = core.CleanString(ns.StartTime)
	ns.EndTime = core.CleanString(ns.EndTime)
	return validate.Struct(ns)
}

// slot must only be called on a validated NewSlot.
func (ns NewSlot) slot() Slot {
	start, _ := clock.ParseTimeOfDay(ns.StartTime)
	end, _ := clock.ParseTimeOfDay(ns.EndTime)
	return Slot{
		RoomCode:  ns.RoomCode,
		Weekday:   time.Weekday(*ns.Weekday),
		Subject:   ns.Subject,
		GroupName: ns.GroupName,
		StartTime: start,
		EndTime:   end,
	}
}

type QueryFilter struct {
	RoomCode string `query:"room"`
	Weekday  *int   `query:"weekday"`
}

func (qf *QueryFilter) Clean() {
	qf.RoomCode = core.CleanString(qf.RoomCode)
}

// Matches applies the filter in memory; repositories without a query language use it.
func (qf QueryFilter) Matches(s Slot) bool {
	if qf.RoomCode != "" && !s.InRoom(qf.RoomCode) {
		return false
	}
	if qf.Weekday != nil && int(s.Weekday) != *qf.Weekday {
		return false
	}
	return true
}
