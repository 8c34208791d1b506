package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core/grading"
	"github.com/gleeworld/gleeworld/core/member"
)

type gradingApi struct {
	svc     *grading.Service
	members *member.Service
}

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *grading.Service, members *member.Service) {
	api := gradingApi{svc: svc, members: members}
	staff := staffMiddleware()

	gg := g.Group("/grading", jwt)
	gg.GET("/assignments", api.assignments)
	gg.POST("/assignments", api.createAssignment, staff)
	gg.GET("/assignments/:id", api.retrieveAssignment)
	gg.PUT("/assignments/:id", api.updateAssignment, staff)
	gg.DELETE("/assignments/:id", api.destroyAssignment, staff)
	gg.POST("/assignments/:id/submissions", api.submit)

	gg.GET("/submissions", api.submissions)
	gg.GET("/submissions/:id", api.retrieveSubmission)
	gg.GET("/submissions/:id/grade", api.gradeOf)
	gg.GET("/grades", api.grades)
}

func (api *gradingApi) assignments(ctx echo.Context) error {
	as, err := api.svc.Assignments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	if as == nil {
		as = []grading.Assignment{}
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *gradingApi) createAssignment(ctx echo.Context) error {
	var data grading.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	a, err := api.svc.CreateAssignment(ctx.Request().Context(), actor.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *gradingApi) retrieveAssignment(ctx echo.Context) error {
	a, err := api.svc.GetAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *gradingApi) updateAssignment(ctx echo.Context) error {
	var data grading.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	a, err := api.svc.UpdateAssignment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *gradingApi) destroyAssignment(ctx echo.Context) error {
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *gradingApi) submit(ctx echo.Context) error {
	var data grading.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	s, err := api.svc.Submit(ctx.Request().Context(), actor.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, s)
}

// isStaff reports whether the caller may see every student's work.
func isStaff(m member.Member) bool {
	return m.IsAdmin() || m.IsInstructor()
}

func (api *gradingApi) submissions(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	filter := new(grading.SubmissionFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []grading.Submission{})
	}
	if !isStaff(actor) {
		filter.StudentID = actor.ID
	}
	ss, err := api.svc.Submissions(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	if ss == nil {
		ss = []grading.Submission{}
	}
	return ctx.JSON(http.StatusOK, ss)
}

func (api *gradingApi) retrieveSubmission(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	s, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	if s.StudentID != actor.ID && !isStaff(actor) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *gradingApi) gradeOf(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	s, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	if s.StudentID != actor.ID && !isStaff(actor) {
		return errHttpNotFound
	}
	gr, err := api.svc.GradeOf(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "finding grade")
	}
	return ctx.JSON(http.StatusOK, gr)
}

func (api *gradingApi) grades(ctx echo.Context) error {
	actor, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	filter := new(grading.GradeFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []grading.Grade{})
	}
	if !isStaff(actor) {
		filter.StudentID = actor.ID
	}
	gs, err := api.svc.Grades(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing grades")
	}
	if gs == nil {
		gs = []grading.Grade{}
	}
	return ctx.JSON(http.StatusOK, gs)
}
