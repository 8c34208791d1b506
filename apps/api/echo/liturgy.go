package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core/liturgy"
)

type liturgyApi struct {
	svc *liturgy.Service
}

func registerLiturgyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *liturgy.Service) {
	api := liturgyApi{svc: svc}

	lg := g.Group("/liturgy", jwt)
	lg.GET("", api.retrieve)
	lg.GET("/:date", api.retrieve)
}

// retrieve returns the readings of `date` (YYYY-MM-DD, default: today).
func (api *liturgyApi) retrieve(ctx echo.Context) error {
	r, err := api.svc.Get(ctx.Request().Context(), ctx.Param("date"))
	if err != nil {
		return errors.Wrap(err, "getting readings")
	}
	return ctx.JSON(http.StatusOK, r)
}
