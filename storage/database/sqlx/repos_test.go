package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/session"
	"github.com/trezcool/asistencia/storage/database/sqlx"
	"github.com/trezcool/asistencia/tests"
)

func setup(t *testing.T, hh, mm int) *testutil.Env {
	db := sqlxrepos.NewDB(testutil.OpenDB(t))
	env := testutil.NewEnvWith(t, testutil.Monday(testutil.Location(t), hh, mm), testutil.Repos{
		Slots:      sqlxrepos.NewSlotRepository(db),
		Settings:   sqlxrepos.NewSettingsRepository(db),
		Sessions:   sqlxrepos.NewSessionRepository(db),
		Attendance: sqlxrepos.NewAttendanceRepository(db),
	})
	testutil.SetSettings(t, env.Settings, 15, 30)
	testutil.CreateSlot(t, env.Slots, "A-101", time.Monday, "08:00", "09:30", "Math", "1A")
	return env
}

func TestSlotRepository(t *testing.T) {
	ctx := context.Background()
	env := setup(t, 8, 0)

	monday := int(time.Monday)
	_, err := env.Slots.Create(ctx, schedule.NewSlot{
		RoomCode: "a-101", Weekday: &monday, Subject: "Physics", GroupName: "1B", StartTime: "08:00", EndTime: "09:00",
	})
	assert.True(t, errors.Is(err, schedule.ErrSlotExists), "room codes are unique regardless of case: %v", err)

	slots, err := env.Slots.ListForWeekday(ctx, time.Monday)
	require.NoError(t, err)
	require.Len(t, slots, 1)

	n, err := env.Slots.Delete(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	env := setup(t, 8, 10)
	const code = "A-101-20250106-0800"

	started, err := env.Sessions.Start(ctx, session.StartSession{
		SessionCode: code,
		Roster:      []session.Student{{ID: "s2", Name: "Bruno"}, {ID: "s1", Name: "Ana"}},
	})
	require.NoError(t, err)
	assert.Equal(t, session.StatusInProgress, started.Status)
	assert.Equal(t, 10, *started.ArrivalDelayMin)

	env.Clock.Set(testutil.Monday(testutil.Location(t), 8, 40))
	again, err := env.Sessions.Start(ctx, session.StartSession{SessionCode: code})
	require.NoError(t, err)
	assert.Equal(t, session.ArrivalOnTime, *again.ArrivalStatus, "a repeated start keeps the first arrival")
	assert.True(t, again.Session.StartedAt.Equal(*started.Session.StartedAt))

	env.Clock.Set(testutil.Monday(testutil.Location(t), 8, 14))
	_, err = env.Attendance.Mark(ctx, code, attendance.MarkAttendance{StudentID: "s2", StudentName: "Bruno", Status: attendance.StatusLate}, "prof")
	require.NoError(t, err)

	sheet, err := env.Attendance.List(ctx, code)
	require.NoError(t, err)
	require.Len(t, sheet.Records, 2)
	assert.Equal(t, "Ana", sheet.Records[0].StudentName)
	assert.Equal(t, attendance.StatusLate, sheet.Records[1].Status)

	finished, err := env.Sessions.Finish(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, session.StatusFinished, finished.Status)

	_, err = env.Sessions.Finish(ctx, code)
	assert.Equal(t, session.ErrInvalidTransition, err)
	_, err = env.Sessions.Finish(ctx, "Z-1-20250106-manual")
	assert.Equal(t, session.ErrNotFound, err)

	sessions, err := env.Sessions.List(ctx, session.QueryFilter{Date: "2025-01-06", RoomCode: "a-101"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, code, sessions[0].Code)
}

func TestSessionStart_concurrent(t *testing.T) {
	ctx := context.Background()
	env := setup(t, 8, 5)
	ss := session.StartSession{SessionCode: "A-101-20250106-0800"}

	const n = 20
	var wg sync.WaitGroup
	results := make([]session.StartResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.Sessions.Start(ctx, ss)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Session.ID, results[i].Session.ID)
		assert.True(t, results[0].Session.StartedAt.Equal(*results[i].Session.StartedAt))
	}
	sessions, err := env.Sessions.List(ctx, session.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSessionStart_roomSpellingAndManual(t *testing.T) {
	ctx := context.Background()
	env := setup(t, 8, 5)

	res, err := env.Sessions.Resolve(ctx, "a-101")
	require.NoError(t, err)
	opened, err := env.Sessions.Open(ctx, res)
	require.NoError(t, err)
	started, err := env.Sessions.Start(ctx, session.StartSession{SessionCode: "a-101-20250106-0800"})
	require.NoError(t, err)
	assert.Equal(t, opened.ID, started.Session.ID)
	_, err = env.Sessions.Finish(ctx, "A-101-20250106-0800")
	require.NoError(t, err)

	manual, err := env.Sessions.CreateManual(ctx, session.ManualSession{RoomCode: "B-9", Subject: "Tutoring", GroupName: "2B"})
	require.NoError(t, err)
	restarted, err := env.Sessions.Start(ctx, session.StartSession{SessionCode: "b-9-20250106-manual"})
	require.NoError(t, err)
	assert.Equal(t, manual.ID, restarted.Session.ID)
	assert.Equal(t, "Tutoring", restarted.Session.Subject)
	assert.Equal(t, "2B", restarted.Session.GroupName)

	sessions, err := env.Sessions.List(ctx, session.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
