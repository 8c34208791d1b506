package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/assistant"
	"github.com/gleeworld/gleeworld/core/grading"
	"github.com/gleeworld/gleeworld/core/library"
	"github.com/gleeworld/gleeworld/core/liturgy"
	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/notification"
	"github.com/gleeworld/gleeworld/core/sightreading"
)

// functionsApi serves the small JSON-in/JSON-out endpoints under /v1/functions.
type functionsApi struct {
	members       *member.Service
	grading       *grading.Service
	sightReading  *sightreading.Service
	liturgy       *liturgy.Service
	library       *library.Service
	notifications *notification.Service
	assistant     *assistant.Service
	validate      *validator.Validate
}

type (
	submissionRequest struct {
		SubmissionID string `json:"submission_id"`
	}

	// comprehensiveFeedbackRequest is camel-cased, unlike its siblings.
	comprehensiveFeedbackRequest struct {
		SubmissionID string `json:"submissionId"`
	}

	liturgyRequest struct {
		Date string `json:"date" validate:"omitempty,isodate"`
	}
)

func (sr *submissionRequest) id() (string, error) {
	id := core.CleanString(sr.SubmissionID)
	if id == "" {
		return "", core.NewFieldError("submission_id", "This field is required.")
	}
	return id, nil
}

func registerFunctionsAPI(g *echo.Group, jwt, limit echo.MiddlewareFunc, api *functionsApi) {
	fg := g.Group("/functions", limit, jwt)
	fg.POST("/admin-reset-password", api.adminResetPassword, adminMiddleware())
	fg.POST("/bulk-assign-exec-board", api.bulkAssignExecBoard, adminMiddleware())
	fg.POST("/grade-submission-ai", api.gradeSubmission, staffMiddleware())
	fg.POST("/generate-midterm-feedback", api.midtermFeedback, staffMiddleware())
	fg.POST("/generate-comprehensive-feedback", api.comprehensiveFeedback, staffMiddleware())
	fg.POST("/generate-score", api.generateScore)
	fg.POST("/sync-usccb-liturgical", api.syncLiturgy)
	fg.POST("/migrate-sheet-music", api.migrateSheetMusic, adminMiddleware())
	fg.POST("/send-alumnae-email", api.sendAlumnaeEmail, managerMiddleware())
	fg.POST("/glee-assistant", api.gleeAssistant)
}

func (api *functionsApi) adminResetPassword(ctx echo.Context) error {
	var data member.AdminResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminResetPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	res, err := api.members.AdminResetPassword(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *functionsApi) bulkAssignExecBoard(ctx echo.Context) error {
	var data member.BulkExecAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkExecAssignment")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	res, err := api.members.AssignExecBoard(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "assigning exec board")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *functionsApi) gradeSubmission(ctx echo.Context) error {
	var data submissionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to submissionRequest")
	}
	id, err := data.id()
	if err != nil {
		return err
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	res, err := api.grading.GradeSubmission(ctx.Request().Context(), actor.ID, id)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *functionsApi) midtermFeedback(ctx echo.Context) error {
	var data submissionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to submissionRequest")
	}
	id, err := data.id()
	if err != nil {
		return err
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	res, err := api.grading.GenerateMidtermFeedback(ctx.Request().Context(), actor.ID, id)
	if err != nil {
		return errors.Wrap(err, "generating midterm feedback")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *functionsApi) comprehensiveFeedback(ctx echo.Context) error {
	var data comprehensiveFeedbackRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to comprehensiveFeedbackRequest")
	}
	id := core.CleanString(data.SubmissionID)
	if id == "" {
		return core.NewFieldError("submissionId", "This field is required.")
	}
	res, err := api.grading.GenerateComprehensiveFeedback(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "generating comprehensive feedback")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *functionsApi) generateScore(ctx echo.Context) error {
	var data sightreading.Params
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Params")
	}
	res, err := api.sightReading.Generate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating score")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *functionsApi) syncLiturgy(ctx echo.Context) error {
	var data liturgyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to liturgyRequest")
	}
	data.Date = core.CleanString(data.Date)
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	res, err := api.liturgy.Sync(ctx.Request().Context(), data.Date)
	if err != nil {
		return errors.Wrap(err, "syncing readings")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *functionsApi) migrateSheetMusic(ctx echo.Context) error {
	var data library.MigrationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MigrationRequest")
	}
	data.Action = core.CleanString(data.Action, true /* lower */)
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if data.Action == library.ActionCheckStatus {
		st, err := api.library.MigrationStatus(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "getting migration status")
		}
		return ctx.JSON(http.StatusOK, st)
	}

	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	res, err := api.library.Migrate(ctx.Request().Context(), actor.ID, data.Action)
	if err != nil {
		return errors.Wrap(err, "migrating sheet music")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *functionsApi) sendAlumnaeEmail(ctx echo.Context) error {
	var data notification.AlumnaeEmail
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AlumnaeEmail")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	res, err := api.notifications.SendAlumnaeEmail(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "sending alumnae email")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *functionsApi) gleeAssistant(ctx echo.Context) error {
	var data assistant.Request
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to assistant.Request")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	res, err := api.assistant.Ask(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "asking glee assistant")
	}
	return ctx.JSON(http.StatusOK, res)
}
