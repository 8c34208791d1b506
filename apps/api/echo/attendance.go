package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core/attendance"
	"github.com/gleeworld/gleeworld/core/member"
)

type attendanceApi struct {
	svc     *attendance.Service
	members *member.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service, members *member.Service) {
	api := attendanceApi{svc: svc, members: members}

	eg := g.Group("/events", jwt)
	eg.GET("", api.queryEvents)
	eg.POST("", api.createEvent, managerMiddleware())
	eg.GET("/:id", api.retrieveEvent)
	eg.PUT("/:id", api.updateEvent, managerMiddleware())
	eg.DELETE("/:id", api.destroyEvent, managerMiddleware())
	eg.GET("/:id/attendance", api.eventRecords, managerMiddleware())
	eg.POST("/:id/attendance", api.takeAttendance, managerMiddleware())

	ag := g.Group("/attendance", jwt)
	ag.GET("/summary", api.summary)
}

func (api *attendanceApi) queryEvents(ctx echo.Context) error {
	filter := new(attendance.EventFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Event{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.QueryEvents(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []attendance.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *attendanceApi) createEvent(ctx echo.Context) error {
	var data attendance.EventInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EventInput")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	e, err := api.svc.CreateEvent(ctx.Request().Context(), actor.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *attendanceApi) retrieveEvent(ctx echo.Context) error {
	e, err := api.svc.GetEvent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *attendanceApi) updateEvent(ctx echo.Context) error {
	var data attendance.EventInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EventInput")
	}
	e, err := api.svc.UpdateEvent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *attendanceApi) destroyEvent(ctx echo.Context) error {
	if err := api.svc.DeleteEvent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) eventRecords(ctx echo.Context) error {
	records, err := api.svc.EventRecords(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) takeAttendance(ctx echo.Context) error {
	var data attendance.TakeAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TakeAttendance")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	records, err := api.svc.TakeAttendance(ctx.Request().Context(), ctx.Param("id"), actor.ID, data)
	if err != nil {
		return errors.Wrap(err, "taking attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

// summary reports the attendance of `member_id` (default: the caller). Only managers may look at others.
func (api *attendanceApi) summary(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	memberID := ctx.QueryParam("member_id")
	if memberID == "" {
		memberID = actor.ID
	}
	if memberID != actor.ID && !actor.CanManage() {
		return errHttpForbidden
	}

	var period Period
	if err = period.Bind(ctx); err != nil {
		return err
	}
	s, err := api.svc.MemberSummary(ctx.Request().Context(), memberID, period.From, period.To)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, s)
}
