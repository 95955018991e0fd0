package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/session"
)

type sessionApi struct {
	svc      *session.Service
	ledger   *attendance.Service
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, svc *session.Service, ledger *attendance.Service, validate *validator.Validate) {
	api := sessionApi{
		svc:      svc,
		ledger:   ledger,
		validate: validate,
	}

	sg := g.Group("/sessions")
	sg.GET("", api.query)
	sg.GET("/resolve", api.resolve)
	sg.POST("/start", api.start)
	sg.POST("/manual", api.createManual)

	// detail endpoints
	dg := sg.Group("/:code")
	dg.GET("", api.retrieve)
	dg.POST("/finish", api.finish)
	dg.GET("/attendance", api.listAttendance)
	dg.PUT("/attendance", api.markAttendance)
}

type (
	ResolveResponse struct {
		session.Resolution
		Session *session.Session `json:"session,omitempty"`
	}

	SessionDetail struct {
		Session    session.Session `json:"session"`
		WindowOpen bool            `json:"window_open"`
	}

	// MarkRequest marks one student, or several at once when Records is set.
	MarkRequest struct {
		attendance.MarkAttendance
		Records []attendance.MarkAttendance `json:"records"`
	}
)

// Handlers

// resolve answers a room scan and records the found session as not_started.
func (api *sessionApi) resolve(ctx echo.Context) error {
	res, err := api.svc.Resolve(ctx.Request().Context(), ctx.QueryParam("room"))
	if err != nil {
		return err
	}
	resp := ResolveResponse{Resolution: res}
	if res.Outcome() == session.OutcomeOpen {
		sess, err := api.svc.Open(ctx.Request().Context(), res)
		if err != nil {
			return errors.Wrap(err, "opening session")
		}
		resp.Session = &sess
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *sessionApi) start(ctx echo.Context) error {
	var data session.StartSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StartSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.By = contextIdentity(ctx).Name()

	res, err := api.svc.Start(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *sessionApi) createManual(ctx echo.Context) error {
	var data session.ManualSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ManualSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	data.By = contextIdentity(ctx).Name()

	sess, err := api.svc.CreateManual(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) query(ctx echo.Context) error {
	filter := session.QueryFilter{
		Date:     ctx.QueryParam("date"),
		RoomCode: ctx.QueryParam("room"),
	}
	for _, val := range ctx.QueryParams()["status"] {
		for _, st := range strings.Split(val, ",") {
			if st = strings.TrimSpace(st); st != "" {
				filter.Statuses = append(filter.Statuses, session.Status(st))
			}
		}
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sessions, err := api.svc.List(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, err := api.svc.Get(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return err
	}
	open, err := api.svc.EditingWindowOpen(ctx.Request().Context(), sess)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SessionDetail{
		Session:    sess,
		WindowOpen: open && sess.Status != session.StatusBlocked,
	})
}

func (api *sessionApi) finish(ctx echo.Context) error {
	sess, err := api.svc.Finish(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) listAttendance(ctx echo.Context) error {
	sheet, err := api.ledger.List(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return err
	}
	if sheet.Records == nil {
		sheet.Records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *sessionApi) markAttendance(ctx echo.Context) error {
	var data MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	by := contextIdentity(ctx).Name()
	code := ctx.Param("code")

	if data.Records == nil {
		if err := data.MarkAttendance.Validate(api.validate); err != nil {
			return err
		}
		rec, err := api.ledger.Mark(ctx.Request().Context(), code, data.MarkAttendance, by)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, rec)
	}

	for i := range data.Records {
		if err := data.Records[i].Validate(api.validate); err != nil {
			return err
		}
	}
	records, err := api.ledger.MarkMany(ctx.Request().Context(), code, data.Records, by)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}
