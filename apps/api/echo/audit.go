package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/audit"
)

type auditApi struct {
	svc *audit.Service
}

func registerAuditAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *audit.Service) {
	api := auditApi{svc: svc}
	g.GET("/audit", api.query, jwt, adminMiddleware())
}

func (api *auditApi) query(ctx echo.Context) error {
	filter := &audit.QueryFilter{
		ActorID: ctx.QueryParam("actor_id"),
		Action:  ctx.QueryParam("action"),
	}
	since, err := parseQueryTime(ctx.QueryParam("since"), false)
	if err != nil {
		return core.NewFieldError("since", err.Error())
	}
	filter.Since = since

	entries, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying audit log")
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}
