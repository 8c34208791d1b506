package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core/excuse"
	"github.com/gleeworld/gleeworld/core/member"
)

type excuseApi struct {
	svc     *excuse.Service
	members *member.Service
}

func registerExcuseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *excuse.Service, members *member.Service) {
	api := excuseApi{svc: svc, members: members}

	xg := g.Group("/excuses", jwt)
	xg.GET("", api.query, managerMiddleware())
	xg.POST("", api.submit)
	xg.GET("/mine", api.mine)
	xg.GET("/:id", api.retrieve)
	xg.DELETE("/:id", api.destroy)
	xg.POST("/:id/forward", api.forward)
	xg.POST("/:id/return", api.sendBack)
	xg.POST("/:id/resubmit", api.resubmit)
	xg.POST("/:id/review", api.review)
}

func (api *excuseApi) query(ctx echo.Context) error {
	filter := new(excuse.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []excuse.Request{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reqs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying excuse requests")
	}
	if reqs == nil {
		reqs = []excuse.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *excuseApi) mine(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	reqs, err := api.svc.Mine(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying own excuse requests")
	}
	if reqs == nil {
		reqs = []excuse.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *excuseApi) submit(ctx echo.Context) error {
	var data excuse.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	r, err := api.svc.Submit(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "submitting excuse request")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *excuseApi) retrieve(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	r, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding excuse request")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *excuseApi) destroy(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting excuse request")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *excuseApi) forward(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	r, err := api.svc.Forward(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "forwarding excuse request")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *excuseApi) sendBack(ctx echo.Context) error {
	var data excuse.ReturnRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReturnRequest")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	r, err := api.svc.Return(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "returning excuse request")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *excuseApi) resubmit(ctx echo.Context) error {
	var data excuse.ResubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResubmitRequest")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	r, err := api.svc.Resubmit(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "resubmitting excuse request")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *excuseApi) review(ctx echo.Context) error {
	var data excuse.ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	r, err := api.svc.Review(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing excuse request")
	}
	return ctx.JSON(http.StatusOK, r)
}
