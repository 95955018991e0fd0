package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/session"
)

const summaryTemplate = "session_summary"

// Reporter mails the roll-call summary of finished sessions to the configured recipients.
type Reporter struct {
	ledger  *Service
	mailSvc core.EmailService
	conf    *core.Config
	logger  core.Logger
}

var _ session.FinishNotifier = (*Reporter)(nil)

func NewReporter(ledger *Service, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Reporter {
	return &Reporter{ledger: ledger, mailSvc: mailSvc, conf: conf, logger: logger}
}

type summaryData struct {
	Code, RoomCode, Subject, GroupName string
	Date, Start, End                   string
	StartedAt, EndedAt                 string
	Totals                             []Total
	Records                            []Record
}

func (r *Reporter) SessionFinished(ctx context.Context, sess session.Session) {
	if len(r.conf.ReportRecipients) == 0 {
		return
	}
	records, err := r.ledger.Records(ctx, sess)
	if err != nil {
		r.logger.Error(fmt.Sprintf("attendance.SessionFinished(%s): %v", sess.Code, err), err)
		return
	}

	r.mailSvc.SendMessages(&core.EmailMessage{
		To:           r.conf.ReportRecipients,
		Subject:      fmt.Sprintf("Roll call %s", sess.Code),
		TemplateName: summaryTemplate,
		TemplateData: summaryData{
			Code:      sess.Code,
			RoomCode:  sess.RoomCode,
			Subject:   sess.Subject,
			GroupName: sess.GroupName,
			Date:      clock.FormatDate(sess.Date),
			Start:     formatTimeOfDay(sess.StartPlanned),
			End:       formatTimeOfDay(sess.EndPlanned),
			StartedAt: formatInstant(sess.StartedAt, r.conf.Location()),
			EndedAt:   formatInstant(sess.EndedAt, r.conf.Location()),
			Totals:    Totals(records),
			Records:   records,
		},
	})
}

func formatTimeOfDay(tod *clock.TimeOfDay) string {
	if tod == nil {
		return "-"
	}
	return tod.String()
}

func formatInstant(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format("15:04")
}
