package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/notification"
)

type notificationApi struct {
	svc     *notification.Service
	members *member.Service
}

type countResponse struct {
	Count int `json:"count"`
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *notification.Service, members *member.Service) {
	api := notificationApi{svc: svc, members: members}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.list)
	ng.GET("/unread-count", api.unreadCount)
	ng.POST("/read-all", api.markAllRead)
	ng.POST("/:id/read", api.markRead)
	ng.GET("/campaigns", api.campaigns, managerMiddleware())
}

func (api *notificationApi) list(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	unreadOnly, _ := strconv.ParseBool(ctx.QueryParam("unread"))
	ns, err := api.svc.List(ctx.Request().Context(), actor.ID, unreadOnly)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if ns == nil {
		ns = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	n, err := api.svc.UnreadCount(ctx.Request().Context(), actor.ID)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, countResponse{Count: n})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if err = api.svc.MarkRead(ctx.Request().Context(), actor.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	n, err := api.svc.MarkAllRead(ctx.Request().Context(), actor.ID)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, countResponse{Count: n})
}

func (api *notificationApi) campaigns(ctx echo.Context) error {
	cs, err := api.svc.Campaigns(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing campaigns")
	}
	if cs == nil {
		cs = []notification.Campaign{}
	}
	return ctx.JSON(http.StatusOK, cs)
}
