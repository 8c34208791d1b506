package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/library"
	"github.com/gleeworld/gleeworld/core/member"
)

const maxPDFSize = 50 << 20

type libraryApi struct {
	svc     *library.Service
	members *member.Service
}

func registerLibraryAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *library.Service, members *member.Service) {
	api := libraryApi{svc: svc, members: members}
	m := managerMiddleware()

	lg := g.Group("/library", jwt)
	lg.GET("", api.query)
	lg.POST("", api.create, m)
	lg.GET("/:id", api.retrieve)
	lg.PUT("/:id", api.update, m)
	lg.DELETE("/:id", api.destroy, m)
	lg.POST("/:id/pdf", api.uploadPDF, m)
}

func (api *libraryApi) query(ctx echo.Context) error {
	filter := new(library.Filter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []library.SheetMusic{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sms, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying sheet music")
	}
	if sms == nil {
		sms = []library.SheetMusic{}
	}
	return ctx.JSON(http.StatusOK, sms)
}

func (api *libraryApi) create(ctx echo.Context) error {
	var data library.SheetMusicInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SheetMusicInput")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	sm, err := api.svc.Create(ctx.Request().Context(), actor.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating sheet music")
	}
	return ctx.JSON(http.StatusCreated, sm)
}

func (api *libraryApi) retrieve(ctx echo.Context) error {
	sm, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding sheet music")
	}
	return ctx.JSON(http.StatusOK, sm)
}

func (api *libraryApi) update(ctx echo.Context) error {
	var data library.SheetMusicInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SheetMusicInput")
	}
	sm, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating sheet music")
	}
	return ctx.JSON(http.StatusOK, sm)
}

func (api *libraryApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting sheet music")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// uploadPDF expects a multipart form with the PDF in the `file` field.
func (api *libraryApi) uploadPDF(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldError("file", "This field is required.")
	}
	if fh.Size > maxPDFSize {
		return core.NewFieldError("file", "The file is too large.")
	}
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" {
		return core.NewFieldError("file", "Upload a PDF file.")
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	sm, err := api.svc.UploadPDF(ctx.Request().Context(), ctx.Param("id"), f)
	if err != nil {
		return errors.Wrap(err, "uploading pdf")
	}
	return ctx.JSON(http.StatusOK, sm)
}
