package testutil

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/session"
	"github.com/trezcool/asistencia/core/settings"
	"github.com/trezcool/asistencia/services/email"
	"github.com/trezcool/asistencia/services/logger"
	"github.com/trezcool/asistencia/storage/database/inmem"
)

// Location is the school timezone used across tests.
func Location(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Logf("tz database unavailable, using a fixed UTC-6 zone: %v", err)
		return time.FixedZone("CST", -6*60*60)
	}
	return loc
}

// Monday returns 2025-01-06 (a Monday) at hh:mm in loc.
func Monday(loc *time.Location, hh, mm int) time.Time {
	return time.Date(2025, time.January, 6, hh, mm, 0, 0, loc)
}

// Clock is a settable clock.Clock.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

var _ clock.Clock = (*Clock)(nil)

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// NewConfig returns a test configuration that needs no environment.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:         "Asistencia",
		Env:             "TEST",
		Debug:           true,
		TestMode:        true,
		SecretKey:       "test-secret",
		Timezone:        "America/Mexico_City",
		FrontendBaseURL: "http://localhost:3000",
	}
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// NewValidator returns a validator with every package's validators registered.
func NewValidator() *validator.Validate {
	validate, _ := NewValidation()
	return validate
}

// NewValidation also returns the translator the validators were registered with.
func NewValidation() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	settings.InitValidators(validate, translator)
	session.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

// Repos is one storage backend.
type Repos struct {
	Slots      schedule.Repository
	Settings   settings.Repository
	Sessions   session.Repository
	Attendance attendance.Repository
}

func InmemRepos() Repos {
	db := inmemdb.Open()
	return Repos{
		Slots:      inmemdb.NewSlotRepository(db),
		Settings:   inmemdb.NewSettingsRepository(db),
		Sessions:   inmemdb.NewSessionRepository(db),
		Attendance: inmemdb.NewAttendanceRepository(db),
	}
}

// Env wires the whole engine on one storage backend.
type Env struct {
	Conf       *core.Config
	Clock      *Clock
	Mail       *emailsvc.ConsoleServiceMock
	Slots      *schedule.Service
	Settings   *settings.Service
	Sessions   *session.Service
	Attendance *attendance.Service
}

// NewEnv starts the clock at now, on the in-memory database.
func NewEnv(t *testing.T, now time.Time) *Env {
	return NewEnvWith(t, now, InmemRepos())
}

// NewEnvWith starts the clock at now, on repos.
func NewEnvWith(t *testing.T, now time.Time, repos Repos) *Env {
	t.Helper()
	conf := NewConfig()
	logger := NewLogger(conf)
	core.ParseEmailTemplates(logger, true)

	env := &Env{
		Conf:     conf,
		Clock:    NewClock(now),
		Mail:     emailsvc.NewConsoleServiceMock(conf, logger),
		Slots:    schedule.NewService(repos.Slots),
		Settings: settings.NewService(repos.Settings),
	}
	env.Sessions = session.NewService(repos.Sessions, env.Slots, env.Settings, env.Clock, logger)
	env.Attendance = attendance.NewService(repos.Attendance, env.Sessions, env.Clock, nil)
	env.Sessions.SetLedger(env.Attendance)
	env.Sessions.SetFinishNotifier(attendance.NewReporter(env.Attendance, env.Mail, conf, logger))
	return env
}

// CreateSlot adds a slot to the catalog, failing the test on error.
func CreateSlot(t *testing.T, svc *schedule.Service, room string, weekday time.Weekday, start, end, subject, group string) schedule.Slot {
	wd := int(weekday)
	slot, err := svc.Create(context.Background(), schedule.NewSlot{
		RoomCode:  room,
		Weekday:   &wd,
		Subject:   subject,
		GroupName: group,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		t.Fatalf("CreateSlot() failed: %v", err)
	}
	return slot
}

// SetSettings saves tolerance and late threshold, failing the test on error.
func SetSettings(t *testing.T, svc *settings.Service, tolerance, late int) settings.Settings {
	s, err := svc.Update(context.Background(), settings.UpdateSettings{
		AttendanceToleranceMin: &tolerance,
		LateThresholdMin:       &late,
	})
	if err != nil {
		t.Fatalf("SetSettings() failed: %v", err)
	}
	return s
}
