package dig_container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/asistencia/apps/api/echo"
	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/session"
	"github.com/trezcool/asistencia/core/settings"
	emailsvc "github.com/trezcool/asistencia/services/email"
	logsvc "github.com/trezcool/asistencia/services/logger"
	metricsvc "github.com/trezcool/asistencia/services/metrics"
	"github.com/trezcool/asistencia/storage"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type Repositories struct {
	dig.Out

	Storage    *storage.Repositories
	Slots      schedule.Repository
	Settings   settings.Repository
	Sessions   session.Repository
	Attendance attendance.Repository
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	repos, err := storage.Open(context.Background(), conf, true)
	if err != nil {
		loggerParam.Logger.Fatal("setting up database: "+err.Error(), err)
	}
	return Repositories{
		Storage:    repos,
		Slots:      repos.Slots,
		Settings:   repos.Settings,
		Sessions:   repos.Sessions,
		Attendance: repos.Attendance,
	}
}

func newClock(conf *core.Config) clock.Clock {
	return clock.New(conf.Location())
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newMetrics(m *metricsvc.PrometheusMetrics) core.Metrics {
	return m
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	settings.InitValidators(validate, translator)
	session.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate
}

func newSessionService(
	repo session.Repository,
	slots *schedule.Service,
	st *settings.Service,
	clk clock.Clock,
	logger core.Logger,
	metrics core.Metrics,
) *session.Service {
	return session.NewService(repo, slots, st, clk, logger, session.WithMetrics(metrics))
}

// newAttendanceService also plugs the ledger and the finish report into the session registry.
func newAttendanceService(
	repo attendance.Repository,
	sessions *session.Service,
	clk clock.Clock,
	metrics core.Metrics,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *attendance.Service {
	svc := attendance.NewService(repo, sessions, clk, metrics)
	sessions.SetLedger(svc)
	sessions.SetFinishNotifier(attendance.NewReporter(svc, mailSvc, conf, logger))
	return svc
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newClock))
	must(c.Provide(newEmailService))
	must(c.Provide(metricsvc.NewPrometheusMetrics))
	must(c.Provide(newMetrics))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(schedule.NewService))
	must(c.Provide(settings.NewService))
	must(c.Provide(newSessionService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
