package session

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/settings"
)

var cst = time.FixedZone("CST", -6*60*60)

func monday(hh, mm int) time.Time {
	return time.Date(2025, time.January, 6, hh, mm, 0, 0, cst)
}

func slot(id, room string, weekday time.Weekday, start, end, subject, group string) schedule.Slot {
	return schedule.Slot{
		ID:        id,
		RoomCode:  room,
		Weekday:   weekday,
		Subject:   subject,
		GroupName: group,
		StartTime: clock.MustParseTimeOfDay(start),
		EndTime:   clock.MustParseTimeOfDay(end),
	}
}

func TestResolve_scenario(t *testing.T) {
	slots := []schedule.Slot{slot("1", "A-101", time.Monday, "08:00", "09:30", "Math", "1A")}
	st := settings.Settings{AttendanceToleranceMin: 15, LateThresholdMin: 30}

	tests := []struct {
		name        string
		now         time.Time
		wantArrival Arrival
		wantDelay   int
		wantBlocked bool
	}{
		{name: "08:05", now: monday(8, 5), wantArrival: ArrivalOnTime, wantDelay: 5},
		{name: "08:10", now: monday(8, 10), wantArrival: ArrivalOnTime, wantDelay: 10},
		{name: "08:25", now: monday(8, 25), wantArrival: ArrivalLate, wantDelay: 25},
		{name: "08:35", now: monday(8, 35), wantArrival: ArrivalTooLate, wantDelay: 35, wantBlocked: true},
		{name: "08:50", now: monday(8, 50), wantArrival: ArrivalTooLate, wantDelay: 50, wantBlocked: true},
		{name: "early, at the tolerance bound", now: monday(7, 45), wantArrival: ArrivalOnTime, wantDelay: -15},
		{name: "seconds are truncated", now: monday(8, 15).Add(59 * time.Second), wantArrival: ArrivalOnTime, wantDelay: 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve("A-101", tt.now, slots, st)
			require.NoError(t, err)
			assert.True(t, res.Found)
			assert.Equal(t, tt.wantBlocked, res.Blocked)
			assert.Equal(t, tt.wantArrival, res.ArrivalStatus)
			assert.Equal(t, tt.wantDelay, res.ArrivalDelayMin)
			assert.Equal(t, "A-101-20250106-0800", res.SessionCode)
			require.NotNil(t, res.Slot)
			assert.Equal(t, "Math", res.Slot.Subject)
		})
	}
}

func TestResolve_window(t *testing.T) {
	slots := []schedule.Slot{slot("1", "A-101", time.Monday, "08:00", "09:30", "Math", "1A")}
	st := settings.Settings{AttendanceToleranceMin: 15, LateThresholdMin: 30}

	tests := []struct {
		now       time.Time
		wantFound bool
	}{
		{now: monday(7, 44), wantFound: false},
		{now: monday(7, 45), wantFound: true},
		{now: monday(9, 45), wantFound: true},
		{now: monday(9, 46), wantFound: false},
		{now: monday(8, 0).AddDate(0, 0, 1), wantFound: false}, // tuesday
	}
	for _, tt := range tests {
		t.Run(tt.now.Format("Mon 15:04"), func(t *testing.T) {
			res, err := Resolve("A-101", tt.now, slots, st)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, res.Found)
		})
	}
}

func TestResolve_notFound(t *testing.T) {
	slots := []schedule.Slot{slot("1", "A-101", time.Monday, "08:00", "09:30", "Math", "1A")}

	res, err := Resolve(" B-9 ", monday(8, 10), slots, settings.Default())
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.False(t, res.Blocked)
	assert.Nil(t, res.Slot)
	assert.Equal(t, "B-9", res.RoomCode)
	assert.Equal(t, "B-9-20250106-manual", res.SessionCode)
	assert.True(t, strings.HasSuffix(res.SessionCode, "-manual"))
	assert.Equal(t, OutcomeNotFound, res.Outcome())
}

func TestResolve_badRequest(t *testing.T) {
	for _, room := range []string{"", "   ", "\t"} {
		_, err := Resolve(room, monday(8, 0), nil, settings.Default())
		assert.Equal(t, ErrBadRequest, err, "room %q", room)
	}
}

func TestResolve_roomMatching(t *testing.T) {
	slots := []schedule.Slot{slot("1", "A-101", time.Monday, "08:00", "09:30", "Math", "1A")}

	res, err := Resolve("  a-101\t", monday(8, 0), slots, settings.Default())
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "A-101", res.RoomCode, "the catalog's room code is used")
	assert.Equal(t, "A-101-20250106-0800", res.SessionCode)
}

func TestResolve_tieBreak(t *testing.T) {
	st := settings.Settings{AttendanceToleranceMin: 30, LateThresholdMin: 60}
	slots := []schedule.Slot{
		slot("d", "A-101", time.Monday, "09:00", "10:00", "Art", "1A"),
		slot("c", "A-101", time.Monday, "08:00", "09:00", "Math", "2B"),
		slot("b", "A-101", time.Monday, "08:00", "09:00", "Math", "1A"),
		slot("a", "A-101", time.Monday, "08:00", "09:00", "Biology", "2B"),
		slot("e", "B-9", time.Monday, "07:00", "10:00", "Chemistry", "1A"),
	}

	res, err := Resolve("A-101", monday(8, 45), slots, st)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, "b", res.Slot.ID, "earliest start, then group, then subject")

	// determinism: input order does not matter
	for i := 0; i < len(slots); i++ {
		rotated := append(append([]schedule.Slot{}, slots[i:]...), slots[:i]...)
		again, err := Resolve("A-101", monday(8, 45), rotated, st)
		require.NoError(t, err)
		assert.Equal(t, res, again)
	}
}

func TestResolve_ignoresOtherWeekdays(t *testing.T) {
	slots := []schedule.Slot{slot("1", "A-101", time.Tuesday, "08:00", "09:30", "Math", "1A")}
	res, err := Resolve("A-101", monday(8, 0), slots, settings.Default())
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestClassify_grid(t *testing.T) {
	for tol := 0; tol <= settings.MaxMinutes; tol += 15 {
		for late := tol; late <= settings.MaxMinutes; late += 15 {
			st := settings.Settings{AttendanceToleranceMin: tol, LateThresholdMin: late}
			for d := -30; d <= settings.MaxMinutes+30; d++ {
				var want Arrival
				switch {
				case d <= tol:
					want = ArrivalOnTime
				case d <= late:
					want = ArrivalLate
				default:
					want = ArrivalTooLate
				}
				if got := Classify(d, st); got != want {
					t.Fatalf("Classify(%d, t=%d, L=%d) = %s, want %s", d, tol, late, got, want)
				}
			}
		}
	}
}

func TestClassify_resolveAgrees(t *testing.T) {
	// a slot starting at S classifies an arrival at S+d the same way Classify(d) does
	start := clock.MustParseTimeOfDay("10:00")
	slots := []schedule.Slot{{ID: "1", RoomCode: "R", Weekday: time.Monday, StartTime: start, EndTime: start + 240}}
	grid := []settings.Settings{
		{AttendanceToleranceMin: 0, LateThresholdMin: 0},
		{AttendanceToleranceMin: 5, LateThresholdMin: 10},
		{AttendanceToleranceMin: 15, LateThresholdMin: 30},
		{AttendanceToleranceMin: 240, LateThresholdMin: 240},
	}
	for _, st := range grid {
		for d := -st.AttendanceToleranceMin; d <= 240; d += 7 {
			now := monday(10, 0).Add(time.Duration(d) * time.Minute)
			res, err := Resolve("R", now, slots, st)
			require.NoError(t, err)
			require.True(t, res.Found, fmt.Sprintf("d=%d %+v", d, st))
			assert.Equal(t, Classify(d, st), res.ArrivalStatus)
			assert.Equal(t, res.ArrivalStatus == ArrivalTooLate, res.Blocked)
		}
	}
}
