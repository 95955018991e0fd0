package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/settings"
)

type catalogApi struct {
	slots    *schedule.Service
	settings *settings.Service
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, slots *schedule.Service, st *settings.Service, validate *validator.Validate) {
	api := catalogApi{
		slots:    slots,
		settings: st,
		validate: validate,
	}

	g.GET("/settings", api.retrieveSettings)
	g.PUT("/settings", api.updateSettings, adminMiddleware)

	sg := g.Group("/slots")
	sg.GET("", api.querySlots)
	sg.POST("", api.createSlot, adminMiddleware)
	sg.DELETE("", api.destroySlots, adminMiddleware)
	sg.GET("/:id", api.retrieveSlot)
	sg.DELETE("/:id", api.destroySlot, adminMiddleware)
}

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}

// Handlers

func (api *catalogApi) retrieveSettings(ctx echo.Context) error {
	st, err := api.settings.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *catalogApi) updateSettings(ctx echo.Context) error {
	var data settings.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	st, err := api.settings.Update(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *catalogApi) querySlots(ctx echo.Context) error {
	filter := schedule.QueryFilter{RoomCode: ctx.QueryParam("room")}
	if val := ctx.QueryParam("weekday"); val != "" {
		wd, ok := clock.ParseWeekday(val)
		if !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "weekday", Error: "must be 0 (sunday) to 6 (saturday) or a day name"})
		}
		n := int(wd)
		filter.Weekday = &n
	}

	slots, err := api.slots.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying slots")
	}
	if slots == nil {
		slots = []schedule.Slot{}
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *catalogApi) createSlot(ctx echo.Context) error {
	var data schedule.NewSlot
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSlot")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	slot, err := api.slots.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, slot)
}

func (api *catalogApi) retrieveSlot(ctx echo.Context) error {
	slot, err := api.slots.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, slot)
}

func (api *catalogApi) destroySlot(ctx echo.Context) error {
	n, err := api.slots.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting slot")
	}
	if n == 0 {
		return schedule.ErrNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) destroySlots(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	n, err := api.slots.Delete(ctx.Request().Context(), query.IDs...)
	if err != nil {
		return errors.Wrap(err, "deleting slots")
	}
	ctx.Response().Header().Set("X-Deleted-Count", strconv.Itoa(n))
	return ctx.NoContent(http.StatusNoContent)
}
